package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"ragdesk/internal/pkg/retry"
)

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text. Empty text is sent
// as is; the service decides what to do with it.
func (c *AzureOpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, "embedding", text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order.
func (c *AzureOpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := c.embed(ctx, "embedding batch", texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *AzureOpenAIClient) embed(ctx context.Context, op string, input interface{}) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": input,
	}
	endpoint := c.deploymentURL(c.cfg.EmbedDeployment, "embeddings", c.cfg.EmbedAPIVersion)

	raw, err := retry.Do(ctx, c.cfg.Retry, func() ([]byte, error) {
		return c.post(ctx, op, endpoint, reqBody)
	})
	if err != nil {
		return nil, err
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s json failed: %w", op, err)
	}
	result := make([][]float32, len(parsed.Data))
	for i, item := range parsed.Data {
		result[i] = item.Embedding
	}
	if indexed := byIndex(parsed); indexed != nil {
		result = indexed
	}
	return result, nil
}

// byIndex orders embeddings by their reported index, or returns nil when the
// indices are not a permutation of the positions.
func byIndex(resp embeddingResponse) [][]float32 {
	out := make([][]float32, len(resp.Data))
	seen := make([]bool, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) || seen[item.Index] {
			return nil
		}
		seen[item.Index] = true
		out[item.Index] = item.Embedding
	}
	return out
}
