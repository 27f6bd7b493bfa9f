package ai

import (
	"context"
	"encoding/json"
	"fmt"
)

// remoteEmbed calls the /embeddings endpoint with a batch input. The response
// order matches the input order per the OpenAI contract.
func (c *OpenAICompatibleClient) remoteEmbed(ctx context.Context, baseURL, apiKey, embeddingModel string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]interface{}{
		"model": embeddingModel,
		"input": texts,
	}
	raw, err := c.post(ctx, baseURL, apiKey, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(parsed.Data))
	}

	result := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(result) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		result[item.Index] = item.Embedding
	}
	return result, nil
}
