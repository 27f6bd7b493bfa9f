package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestChatSession_DocumentIDRoundTrip(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	var session ChatSession
	session.SetDocumentIDs(ids)

	assert.Equal(t, ids, session.DocumentIDList())
}

func TestChatSession_DocumentIDList_SkipsGarbage(t *testing.T) {
	session := ChatSession{DocumentIDs: datatypes.JSON(`["not-a-uuid"]`)}
	assert.Empty(t, session.DocumentIDList())

	session.DocumentIDs = datatypes.JSON(`{"wrong": "shape"}`)
	assert.Nil(t, session.DocumentIDList())
}

func TestChatSession_ScopedDocumentIDs_UnionDeduplicated(t *testing.T) {
	shared := uuid.New()
	legacyOnly := uuid.New()

	session := ChatSession{Documents: []Document{{ID: shared}}}
	session.SetDocumentIDs([]uuid.UUID{shared, legacyOnly})

	scoped := session.ScopedDocumentIDs()
	require.Len(t, scoped, 2)
	assert.Equal(t, shared, scoped[0])
	assert.Equal(t, legacyOnly, scoped[1])
}

func TestMessage_CitationRoundTrip(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	var msg Message
	msg.SetCitations(ids)

	assert.Equal(t, ids, msg.CitationIDs())
}

func TestChunk_MetadataMap(t *testing.T) {
	chunk := Chunk{Metadata: datatypes.JSON(`{"char_start": 42, "caption": "Figure 1"}`)}
	meta := chunk.MetadataMap()
	require.NotNil(t, meta)
	assert.Equal(t, float64(42), meta["char_start"])
	assert.Equal(t, "Figure 1", meta["caption"])

	assert.Nil(t, (&Chunk{}).MetadataMap())
	assert.Nil(t, (&Chunk{Metadata: datatypes.JSON(`broken`)}).MetadataMap())
}
