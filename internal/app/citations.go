package app

import (
	"regexp"

	"github.com/google/uuid"
)

// Citation markers are double-bracketed chunk UUIDs embedded by the model,
// e.g. [[a1b2c3d4-0000-0000-0000-000000000000]].
var citationPattern = regexp.MustCompile(`\[\[([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})\]\]`)

// extractCitations returns the cited chunk IDs in first-appearance order,
// deduplicated. Malformed markers are skipped.
func extractCitations(text string) []uuid.UUID {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(matches))
	var ids []uuid.UUID
	for _, m := range matches {
		id, err := uuid.Parse(m[1])
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// validateCitations keeps only IDs that belong to the retrieved set,
// preserving order. Hallucinated IDs are dropped silently; the caller gets
// the drop count for logging.
func validateCitations(cited []uuid.UUID, retrieved []RetrievedChunk) (valid []uuid.UUID, dropped int) {
	known := make(map[uuid.UUID]struct{}, len(retrieved))
	for _, c := range retrieved {
		known[c.ChunkID] = struct{}{}
	}
	for _, id := range cited {
		if _, ok := known[id]; ok {
			valid = append(valid, id)
		} else {
			dropped++
		}
	}
	return valid, dropped
}
