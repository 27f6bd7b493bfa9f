package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatSession groups messages and optionally scopes retrieval to a set of
// attached documents. Documents is the canonical association; DocumentIDs is
// the legacy flat list kept in sync with it for older clients. Deleting a
// document removes it from the association without touching the session.
type ChatSession struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title     *string        `gorm:"size:255" json:"title"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	DocumentIDs datatypes.JSON `json:"document_ids"` // legacy: JSON array of document uuid strings

	Documents []Document `gorm:"many2many:session_documents;constraint:OnDelete:CASCADE" json:"attached_documents,omitempty"`
	Messages  []Message  `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// SetDocumentIDs writes the legacy column.
func (s *ChatSession) SetDocumentIDs(ids []uuid.UUID) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	b, _ := json.Marshal(strs)
	s.DocumentIDs = datatypes.JSON(b)
}

// DocumentIDList parses the legacy column; unparsable entries are skipped.
func (s *ChatSession) DocumentIDList() []uuid.UUID {
	if len(s.DocumentIDs) == 0 {
		return nil
	}
	var strs []string
	if err := json.Unmarshal(s.DocumentIDs, &strs); err != nil {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(strs))
	for _, raw := range strs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ScopedDocumentIDs resolves the retrieval scope: the union of the attached
// document association and the legacy flat list, de-duplicated.
func (s *ChatSession) ScopedDocumentIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, doc := range s.Documents {
		if _, ok := seen[doc.ID]; ok {
			continue
		}
		seen[doc.ID] = struct{}{}
		ids = append(ids, doc.ID)
	}
	for _, id := range s.DocumentIDList() {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
