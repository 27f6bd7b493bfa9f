package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"researchrag/internal/ai"
	"researchrag/internal/model"
	"researchrag/internal/repository"
)

// RetrievedChunk is a scored passage handed to generation and echoed back to
// the client as a source. It never hits the database.
type RetrievedChunk struct {
	ChunkID      uuid.UUID `json:"chunk_id"`
	Content      string    `json:"content"`
	Similarity   float64   `json:"similarity"`
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	PageNumber   *int      `json:"page_number,omitempty"`
	MediaType    string    `json:"media_type"`
	ImageURL     *string   `json:"image_url,omitempty"`
	Caption      *string   `json:"caption,omitempty"`
}

// ChunkSearcher is the similarity-search contract; satisfied by
// repository.ChunkRepository.
type ChunkSearcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, topK int, documentIDs []uuid.UUID) ([]repository.SimilarChunkRow, error)
}

type RetrievalService struct {
	chunks   ChunkSearcher
	embedder *ai.EmbeddingService
	topK     int
	log      *zap.Logger
}

func NewRetrievalService(chunks ChunkSearcher, embedder *ai.EmbeddingService, topK int, log *zap.Logger) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalService{
		chunks:   chunks,
		embedder: embedder,
		topK:     topK,
		log:      log,
	}
}

// Retrieve embeds the query and returns the topK most similar chunks by
// cosine similarity, optionally restricted to the given documents. A nil or
// empty documentIDs searches the whole corpus.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, topK int, documentIDs []uuid.UUID) ([]RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if topK <= 0 {
		topK = s.topK
	}

	embedding := s.embedder.Embed(ctx, query)

	rows, err := s.chunks.SearchSimilar(ctx, embedding, topK, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	chunks := make([]RetrievedChunk, 0, len(rows))
	for _, row := range rows {
		chunk := RetrievedChunk{
			ChunkID:      row.ChunkID,
			Content:      row.Content,
			Similarity:   row.Similarity,
			DocumentID:   row.DocumentID,
			DocumentName: row.DocumentName,
			PageNumber:   row.PageNumber,
			MediaType:    row.MediaType,
		}
		if row.MediaType == model.MediaTypeImage {
			meta := decodeMetadata(row.Metadata)
			if url, ok := meta["image_url"].(string); ok && url != "" {
				chunk.ImageURL = &url
			}
			if caption, ok := meta["caption"].(string); ok && caption != "" {
				chunk.Caption = &caption
			}
		}
		chunks = append(chunks, chunk)
	}

	s.log.Debug("retrieved context",
		zap.Int("requested", topK),
		zap.Int("returned", len(chunks)),
		zap.Int("scoped_documents", len(documentIDs)))
	return chunks, nil
}
