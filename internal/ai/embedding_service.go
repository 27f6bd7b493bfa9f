package ai

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"math/rand"

	"go.uber.org/zap"
)

// EmbeddingConfig holds API settings for text embedding. A blank APIKey means
// no external model is configured and every call uses the mock.
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	BatchSize int
}

// EmbeddingService maps text to fixed-dimension vectors. The primary path is
// the external model; any failure there falls back to a deterministic mock so
// ingestion and query-time embeddings stay comparable without a live model.
// Callers never see an embedding failure.
type EmbeddingService struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
	log    *zap.Logger
}

func NewEmbeddingService(client *OpenAICompatibleClient, cfg EmbeddingConfig, log *zap.Logger) *EmbeddingService {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &EmbeddingService{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

func (s *EmbeddingService) Dimension() int {
	return s.cfg.Dimension
}

// Embed returns the vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) []float32 {
	vectors := s.EmbedBatch(ctx, []string{text})
	return vectors[0]
}

// EmbedBatch returns one vector per input text, output i matching input i.
// Remote calls are split into provider-sized batches; a failed batch falls
// back to mock vectors for that batch only.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors
	}

	if s.cfg.APIKey == "" {
		for i, text := range texts {
			vectors[i] = s.mockEmbedding(text)
		}
		return vectors
	}

	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		remote, err := s.client.remoteEmbed(ctx, s.cfg.BaseURL, s.cfg.APIKey, s.cfg.Model, batch)
		if err != nil {
			s.log.Warn("remote embedding failed, using mock fallback",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			for i, text := range batch {
				vectors[start+i] = s.mockEmbedding(text)
			}
			continue
		}
		for i := range remote {
			vectors[start+i] = remote[i]
		}
	}
	return vectors
}

// mockEmbedding derives the vector from a content hash, so the same text
// yields bit-identical vectors within a process and across processes.
func (s *EmbeddingService) mockEmbedding(text string) []float32 {
	sum := md5.Sum([]byte(text))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	rng := rand.New(rand.NewSource(seed))

	vector := make([]float32, s.cfg.Dimension)
	for i := range vector {
		vector[i] = float32(rng.Float64()*2 - 1)
	}
	return vector
}
