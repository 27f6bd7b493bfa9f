package app

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCitations_FirstSeenOrderDeduplicated(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	text := fmt.Sprintf("Claim one [[%s]]. Claim two [[%s]]. Repeat [[%s]].", a, b, a)

	ids := extractCitations(text)
	require.Len(t, ids, 2)
	assert.Equal(t, a, ids[0])
	assert.Equal(t, b, ids[1])
}

func TestExtractCitations_IgnoresMalformedMarkers(t *testing.T) {
	assert.Nil(t, extractCitations("no markers here"))
	assert.Nil(t, extractCitations("[[not-a-uuid]] [[12345]]"))
	assert.Nil(t, extractCitations("[single-bracket-0000-0000-0000-000000000000]"))
}

func TestExtractCitations_CaseInsensitiveHex(t *testing.T) {
	id := uuid.New()
	upper := fmt.Sprintf("[[%s]]", id)
	ids := extractCitations(upper)
	require.Len(t, ids, 1)
	assert.Equal(t, id, ids[0])
}

func TestValidateCitations_DropsUnretrieved(t *testing.T) {
	known := uuid.New()
	hallucinated := uuid.New()
	retrieved := []RetrievedChunk{{ChunkID: known}}

	valid, dropped := validateCitations([]uuid.UUID{known, hallucinated}, retrieved)
	require.Len(t, valid, 1)
	assert.Equal(t, known, valid[0])
	assert.Equal(t, 1, dropped)
}

func TestValidateCitations_PreservesOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	retrieved := []RetrievedChunk{{ChunkID: a}, {ChunkID: b}, {ChunkID: c}}

	valid, dropped := validateCitations([]uuid.UUID{c, a}, retrieved)
	assert.Equal(t, []uuid.UUID{c, a}, valid)
	assert.Zero(t, dropped)
}
