package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockOnlyService(dimension int) *EmbeddingService {
	return NewEmbeddingService(NewOpenAICompatibleClient(), EmbeddingConfig{
		Dimension: dimension,
	}, zap.NewNop())
}

func TestEmbed_Deterministic(t *testing.T) {
	svc := newMockOnlyService(1536)
	ctx := context.Background()

	first := svc.Embed(ctx, "the same text")
	second := svc.Embed(ctx, "the same text")
	assert.Equal(t, first, second)

	other := svc.Embed(ctx, "different text")
	assert.NotEqual(t, first, other)
}

func TestEmbed_Dimension(t *testing.T) {
	svc := newMockOnlyService(64)
	vec := svc.Embed(context.Background(), "hello")
	assert.Len(t, vec, 64)
}

func TestEmbed_ValueRange(t *testing.T) {
	svc := newMockOnlyService(256)
	vec := svc.Embed(context.Background(), "range check")
	for _, v := range vec {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.Less(t, v, float32(1))
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	svc := newMockOnlyService(32)
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma"}
	batch := svc.EmbedBatch(ctx, texts)
	require.Len(t, batch, 3)

	for i, text := range texts {
		assert.Equal(t, svc.Embed(ctx, text), batch[i])
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc := newMockOnlyService(32)
	assert.Empty(t, svc.EmbedBatch(context.Background(), nil))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(NewOpenAICompatibleClient(), EmbeddingConfig{}, zap.NewNop())
	assert.Equal(t, 1536, svc.Dimension())
}
