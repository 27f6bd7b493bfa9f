package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"researchrag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDWithChunks(id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := r.db.Preload("Chunks", func(db *gorm.DB) *gorm.DB {
		return db.Order("chunk_index ASC")
	}).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document with chunks failed: %w", err)
	}
	return &doc, nil
}

// GetByHash looks up the dedup key; nil result means the bytes are new.
func (r *DocumentRepository) GetByHash(fileHash string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.Where("file_hash = ?", fileHash).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by hash failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List(offset, limit int) ([]model.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var docs []model.Document
	if err := r.db.Order("upload_date DESC").Offset(offset).Limit(limit).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

// CommitProcessed writes the ingestion result atomically: the full chunk set
// and the document's processed state land together or not at all.
func (r *DocumentRepository) CommitProcessed(id uuid.UUID, chunks []model.Chunk, pageCount int, metadata datatypes.JSON, processedAt time.Time) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if len(chunks) > 0 {
			if err := tx.Create(&chunks).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{
			"page_count": pageCount,
			"metadata":   metadata,
			"processed":  processedAt,
		}
		return tx.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return fmt.Errorf("commit processed document failed: %w", err)
	}
	return nil
}

// Delete removes the document row; chunk rows and session associations go
// with it via their FK constraints.
func (r *DocumentRepository) Delete(id uuid.UUID) error {
	if err := r.db.Delete(&model.Document{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
