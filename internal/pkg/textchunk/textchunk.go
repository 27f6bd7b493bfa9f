// Package textchunk splits prose into bounded, overlapping passages that
// respect sentence boundaries.
package textchunk

import (
	"strings"
	"unicode"
)

const (
	DefaultTargetTokens  = 400
	DefaultOverlapTokens = 50

	// Rough approximation for English text.
	charsPerToken = 4
)

// Piece is one emitted chunk with the character offset of its start within
// the original prose stream.
type Piece struct {
	Content   string
	CharStart int
}

type Chunker struct {
	targetTokens  int
	overlapTokens int
}

func New(targetTokens, overlapTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = DefaultTargetTokens
	}
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	return &Chunker{
		targetTokens:  targetTokens,
		overlapTokens: overlapTokens,
	}
}

// Chunk greedily accumulates sentences until adding the next one would exceed
// the target size, then emits the chunk and seeds the next one with the tail
// of the emitted text as overlap. Two hard invariants: a chunk boundary never
// falls inside a sentence, and every chunk after the first starts with its
// predecessor's overlap tail. A single sentence longer than the target is
// emitted whole.
func (c *Chunker) Chunk(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	targetChars := c.targetTokens * charsPerToken
	overlapChars := c.overlapTokens * charsPerToken

	sentences := SplitSentences(text)

	var pieces []Piece
	var current []string
	currentLength := 0
	chunkStart := 0
	charPosition := 0

	flush := func() {
		content := strings.TrimSpace(strings.Join(current, " "))
		if content == "" {
			return
		}
		pieces = append(pieces, Piece{Content: content, CharStart: chunkStart})
	}

	for _, sentence := range sentences {
		sentenceLength := len(sentence)

		if currentLength+sentenceLength > targetChars && len(current) > 0 {
			flush()

			overlap := overlapTail(current, overlapChars)
			if overlap != "" {
				current = []string{overlap}
				currentLength = len(overlap)
				chunkStart = charPosition - len(overlap)
			} else {
				current = nil
				currentLength = 0
				chunkStart = charPosition
			}
		}

		current = append(current, sentence)
		currentLength += sentenceLength + 1 // +1 for the joining space
		charPosition += sentenceLength + 1
	}

	if len(current) > 0 {
		flush()
	}

	return pieces
}

// overlapTail returns the last maxChars of the accumulated chunk text, or all
// of it when shorter.
func overlapTail(sentences []string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	combined := strings.TrimSpace(strings.Join(sentences, " "))
	if len(combined) <= maxChars {
		return combined
	}
	// Trim so the next chunk's emitted content starts with this exact suffix.
	return strings.TrimSpace(combined[len(combined)-maxChars:])
}

// SplitSentences breaks text into sentence-like units: a terminator (.!?)
// followed by whitespace and an upper-case letter ends a sentence, and
// paragraph breaks act as a secondary split.
func SplitSentences(text string) []string {
	var sentences []string

	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Look past the terminator for whitespace then a capital.
		j := i + 1
		sawSpace := false
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			sawSpace = true
			j++
		}
		if sawSpace && j < len(runes) && unicode.IsUpper(runes[j]) {
			sentences = append(sentences, string(runes[start:i+1]))
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	var result []string
	for _, s := range sentences {
		for _, paragraph := range strings.Split(s, "\n\n") {
			if trimmed := strings.TrimSpace(paragraph); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
