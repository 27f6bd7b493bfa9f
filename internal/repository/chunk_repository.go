package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"researchrag/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) GetByID(id uuid.UUID) (*model.Chunk, error) {
	var chunk model.Chunk
	if err := r.db.Where("id = ?", id).First(&chunk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chunk failed: %w", err)
	}
	return &chunk, nil
}

func (r *ChunkRepository) GetByIDAndDocumentID(id, documentID uuid.UUID) (*model.Chunk, error) {
	var chunk model.Chunk
	if err := r.db.Where("id = ? AND document_id = ?", id, documentID).First(&chunk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chunk failed: %w", err)
	}
	return &chunk, nil
}

// DeleteByDocumentID clears a document's chunk set before re-processing.
func (r *ChunkRepository) DeleteByDocumentID(documentID uuid.UUID) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error; err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}

// SimilarChunkRow is one row of the similarity query, with the owning
// document's name denormalized in.
type SimilarChunkRow struct {
	ChunkID      uuid.UUID      `gorm:"column:chunk_id"`
	Content      string         `gorm:"column:content"`
	Similarity   float64        `gorm:"column:similarity"`
	DocumentID   uuid.UUID      `gorm:"column:document_id"`
	DocumentName string         `gorm:"column:document_name"`
	PageNumber   *int           `gorm:"column:page_number"`
	MediaType    string         `gorm:"column:media_type"`
	Metadata     datatypes.JSON `gorm:"column:metadata"`
}

// SearchSimilar ranks chunks by cosine similarity to the query vector.
// pgvector's <=> operator is cosine distance, so similarity = 1 - distance.
// An empty documentIDs slice means every document is eligible.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, embedding []float32, topK int, documentIDs []uuid.UUID) ([]SimilarChunkRow, error) {
	if topK <= 0 {
		topK = 5
	}
	queryVector := pgvector.NewVector(embedding)

	q := r.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.id AS chunk_id, chunks.content, chunks.document_id, chunks.page_number, chunks.media_type, chunks.metadata, documents.original_filename AS document_name, 1 - (chunks.vector <=> ?) AS similarity", queryVector).
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("chunks.vector IS NOT NULL")

	if len(documentIDs) > 0 {
		q = q.Where("chunks.document_id IN ?", documentIDs)
	}

	var rows []SimilarChunkRow
	err := q.Order("similarity DESC").Limit(topK).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	return rows, nil
}
