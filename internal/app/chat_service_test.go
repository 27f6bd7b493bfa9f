package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchrag/internal/model"
)

func TestResolveScope_SessionDocumentsWhenNoFilter(t *testing.T) {
	attached := uuid.New()
	legacy := uuid.New()
	session := &model.ChatSession{Documents: []model.Document{{ID: attached}}}
	session.SetDocumentIDs([]uuid.UUID{legacy})

	svc := &ChatService{}
	scope, err := svc.resolveScope(session, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{attached, legacy}, scope)
}

func TestResolveScope_EmptySessionSearchesCorpus(t *testing.T) {
	svc := &ChatService{}
	scope, err := svc.resolveScope(&model.ChatSession{}, nil)
	require.NoError(t, err)
	assert.Nil(t, scope)
}
