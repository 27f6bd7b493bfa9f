package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a chat session. Citations holds the validated chunk
// ids an assistant turn referenced, in first-seen order; it is written once
// with the message and never amended afterwards.
type Message struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	Role      string         `gorm:"size:16;not null" json:"role"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	Citations datatypes.JSON `json:"citations"` // JSON array of chunk uuid strings
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
}

// SetCitations writes the citation list.
func (m *Message) SetCitations(ids []uuid.UUID) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	b, _ := json.Marshal(strs)
	m.Citations = datatypes.JSON(b)
}

// CitationIDs parses the citation list; unparsable entries are skipped.
func (m *Message) CitationIDs() []uuid.UUID {
	if len(m.Citations) == 0 {
		return nil
	}
	var strs []string
	if err := json.Unmarshal(m.Citations, &strs); err != nil {
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
