package textchunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First sentence. Second sentence! Third sentence? The end.")
	require.Len(t, sentences, 4)
	assert.Equal(t, "First sentence.", sentences[0])
	assert.Equal(t, "Second sentence!", sentences[1])
	assert.Equal(t, "Third sentence?", sentences[2])
	assert.Equal(t, "The end.", sentences[3])
}

func TestSplitSentences_NoBreakOnLowercase(t *testing.T) {
	// "e.g. apples" must not split: the terminator is followed by lowercase.
	sentences := SplitSentences("We like fruit, e.g. apples and pears. Second part.")
	require.Len(t, sentences, 2)
	assert.Equal(t, "We like fruit, e.g. apples and pears.", sentences[0])
}

func TestSplitSentences_ParagraphBreaks(t *testing.T) {
	sentences := SplitSentences("first paragraph without terminator\n\nsecond paragraph")
	require.Len(t, sentences, 2)
	assert.Equal(t, "first paragraph without terminator", sentences[0])
	assert.Equal(t, "second paragraph", sentences[1])
}

func TestChunk_Empty(t *testing.T) {
	c := New(DefaultTargetTokens, DefaultOverlapTokens)
	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("   \n\t  "))
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := New(DefaultTargetTokens, DefaultOverlapTokens)
	pieces := c.Chunk("One sentence. Another sentence.")
	require.Len(t, pieces, 1)
	assert.Equal(t, "One sentence. Another sentence.", pieces[0].Content)
	assert.Equal(t, 0, pieces[0].CharStart)
}

func TestChunk_BoundaryNeverSplitsSentence(t *testing.T) {
	// Target of 10 tokens = 40 chars forces a split after the second sentence.
	c := New(10, 0)
	pieces := c.Chunk("Sentence one. Sentence two. Sentence three.")
	require.Len(t, pieces, 2)
	assert.Equal(t, "Sentence one. Sentence two.", pieces[0].Content)
	assert.Equal(t, "Sentence three.", pieces[1].Content)
}

func TestChunk_OverlapIsSuffixOfPredecessor(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog near the river bank. ")
	}
	c := New(50, 10)
	pieces := c.Chunk(sb.String())
	require.Greater(t, len(pieces), 1)

	overlapChars := 10 * 4
	for i := 1; i < len(pieces); i++ {
		prev := pieces[i-1].Content
		tail := prev
		if len(prev) > overlapChars {
			tail = strings.TrimSpace(prev[len(prev)-overlapChars:])
		}
		assert.True(t, strings.HasSuffix(prev, tail),
			"overlap must be a suffix of chunk %d", i-1)
		assert.True(t, strings.HasPrefix(pieces[i].Content, tail),
			"chunk %d must start with the tail of chunk %d", i, i-1)
	}
}

func TestChunk_OversizedSentenceEmittedWhole(t *testing.T) {
	// One sentence far beyond the 40-char target, then a short one.
	long := strings.Repeat("word ", 100) + "end."
	c := New(10, 0)
	pieces := c.Chunk(long + " Short trailer.")
	require.Len(t, pieces, 2)
	assert.Equal(t, long, pieces[0].Content)
	assert.Equal(t, "Short trailer.", pieces[1].Content)
}

func TestChunk_EveryChunkWithinReason(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("Plain filler sentence number goes right here. ")
	}
	c := New(DefaultTargetTokens, DefaultOverlapTokens)
	pieces := c.Chunk(sb.String())
	require.NotEmpty(t, pieces)

	targetChars := DefaultTargetTokens * 4
	for _, p := range pieces {
		// A chunk may exceed the target by at most one sentence.
		assert.LessOrEqual(t, len(p.Content), targetChars+len("Plain filler sentence number goes right here. ")+DefaultOverlapTokens*4)
		assert.NotEmpty(t, strings.TrimSpace(p.Content))
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, -1)
	assert.Equal(t, DefaultTargetTokens, c.targetTokens)
	assert.Equal(t, DefaultOverlapTokens, c.overlapTokens)
}
