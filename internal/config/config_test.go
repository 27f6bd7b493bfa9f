package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "researchrag", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 400, cfg.RAG.ChunkTargetTokens)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlapTokens)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "document.ingest", cfg.RabbitMQ.IngestQueue)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("RAG_TOP_K", "12")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 12, cfg.RAG.TopK)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Contains(t, cfg.PostgresDSN(), "host=db.internal")
	assert.Contains(t, cfg.PostgresDSN(), "password=secret")
}

func TestLoad_InvalidIntEnvFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")
	t.Setenv("APP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
}

func TestImageDir(t *testing.T) {
	t.Setenv("CONFIG_FILE", "nonexistent.toml")
	t.Setenv("APP_STATIC_DIR", "/srv/static")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/static/images", cfg.ImageDir())
}
