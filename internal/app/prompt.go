package app

import (
	"fmt"
	"strings"

	"researchrag/internal/ai"
	"researchrag/internal/model"
)

const systemPromptTemplate = `You are a research assistant that answers questions strictly from the provided document excerpts.

Rules:
- Answer only from the context below. Do not use outside knowledge.
- After every claim taken from the context, cite its source by appending the chunk ID in double brackets, e.g. [[%s]].
- Cite only chunk IDs that appear in the context. Never invent an ID.
- If the context does not contain enough information to answer, reply exactly: "I don't have enough information in the provided documents to answer this question."

Context:
%s`

const exampleCitationID = "123e4567-e89b-12d3-a456-426614174000"

// buildSystemPrompt renders the retrieved chunks into labeled context blocks
// the model can cite from.
func buildSystemPrompt(chunks []RetrievedChunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		page := "unknown"
		if c.PageNumber != nil {
			page = fmt.Sprintf("%d", *c.PageNumber)
		}
		fmt.Fprintf(&b, "[Source: %s, Page %s, Chunk ID: %s]\n%s",
			c.DocumentName, page, c.ChunkID, c.Content)
	}
	context := b.String()
	if context == "" {
		context = "(no relevant excerpts were found)"
	}
	return fmt.Sprintf(systemPromptTemplate, exampleCitationID, context)
}

// historyMessages converts recent stored turns into prompt messages, with
// each turn truncated so old verbose answers cannot crowd out the context.
func historyMessages(history []model.Message, truncateChars int) []ai.ChatMessage {
	if truncateChars <= 0 {
		truncateChars = 500
	}
	out := make([]ai.ChatMessage, 0, len(history))
	for _, m := range history {
		content := m.Content
		// Cut at a rune boundary so multi-byte text stays valid.
		if runes := []rune(content); len(runes) > truncateChars {
			content = string(runes[:truncateChars]) + "..."
		}
		out = append(out, ai.ChatMessage{Role: m.Role, Content: content})
	}
	return out
}
