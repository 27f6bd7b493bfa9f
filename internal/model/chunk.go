package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// MediaType tags what a chunk was extracted from.
const (
	MediaTypeText  = "text"
	MediaTypeTable = "table"
	MediaTypeImage = "image"
)

// Chunk is one retrievable unit of a document. The vector is written at
// insert time and never updated; re-processing a document deletes its chunks
// and inserts a fresh set.
type Chunk struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID       `gorm:"type:uuid;not null;index" json:"document_id"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	Vector     pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	MediaType  string          `gorm:"size:16;not null;default:text" json:"media_type"`

	// Parent-child chunking support; not populated by the current pipeline.
	ParentChunkID *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"parent_chunk_id,omitempty"`

	PageNumber *int           `json:"page_number"`
	BBox       datatypes.JSON `json:"bbox,omitempty"`
	ChunkIndex int            `json:"chunk_index"`
	Metadata   datatypes.JSON `json:"metadata"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// MetadataMap decodes the metadata column; nil on empty or malformed JSON.
func (c *Chunk) MetadataMap() map[string]interface{} {
	if len(c.Metadata) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(c.Metadata, &m); err != nil {
		return nil
	}
	return m
}
