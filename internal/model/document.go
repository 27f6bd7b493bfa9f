package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Document is an uploaded PDF. FileHash is the dedup key: uploading the same
// bytes twice resolves to the one existing row. Processed stays nil until an
// ingestion run commits its chunks.
type Document struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Filename         string         `gorm:"size:255;not null" json:"filename"`
	OriginalFilename string         `gorm:"size:255;not null" json:"original_filename"`
	FilePath         string         `gorm:"size:512;not null" json:"file_path"`
	FileSize         int64          `json:"file_size"`
	FileHash         string         `gorm:"size:64;not null;uniqueIndex" json:"file_hash"`
	PageCount        *int           `json:"page_count"`
	UploadDate       time.Time      `gorm:"autoCreateTime" json:"upload_date"`
	Processed        *time.Time     `json:"processed"`
	Metadata         datatypes.JSON `json:"metadata"`

	Chunks   []Chunk       `gorm:"constraint:OnDelete:CASCADE" json:"chunks,omitempty"`
	Sessions []ChatSession `gorm:"many2many:session_documents" json:"-"`
}
