package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/aksara-ai/aksara"
)

// EmbeddingProvider implements aksara.Embedder over the OpenAI embeddings
// API. Shares the HTTP plumbing with Provider.
type EmbeddingProvider struct {
	inner      *Provider
	dimensions int
}

// NewEmbedding creates an OpenAI-compatible embedding provider.
// dimensions must match the deployed model's output size; vector database
// adapters use it to validate collections.
func NewEmbedding(apiKey, model, baseURL string, dimensions int, opts ...ProviderOption) *EmbeddingProvider {
	return &EmbeddingProvider{
		inner:      NewProvider(apiKey, model, baseURL, opts...),
		dimensions: dimensions,
	}
}

// Name returns the provider name.
func (e *EmbeddingProvider) Name() string { return e.inner.name }

// Dimensions returns the embedding vector size.
func (e *EmbeddingProvider) Dimensions() int { return e.dimensions }

// Embed returns one vector per input text, in input order.
func (e *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body := EmbeddingRequest{Model: e.inner.model, Input: texts}

	resp, err := e.inner.sendHTTP(ctx, e.inner.baseURL+"/embeddings", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpErr(resp)
	}

	var embResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, &aksara.ErrLLM{Provider: e.inner.name, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if len(embResp.Data) != len(texts) {
		return nil, &aksara.ErrLLM{Provider: e.inner.name,
			Message: fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(embResp.Data))}
	}

	// The API may return vectors out of order; the index field is authoritative.
	sort.Slice(embResp.Data, func(i, j int) bool { return embResp.Data[i].Index < embResp.Data[j].Index })
	out := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

var _ aksara.Embedder = (*EmbeddingProvider)(nil)
