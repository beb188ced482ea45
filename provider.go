package aksara

import "context"

// Provider abstracts the LLM backend.
type Provider interface {
	// Chat sends the message history (and tool definitions, when present in
	// the request) and returns a complete response. The response carries
	// either tool calls or final text.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai", "together").
	Name() string
}

// Embedder abstracts text embedding, consumed by vector search adapters.
type Embedder interface {
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}

// SearchResult is one raw candidate returned by a similarity search.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float32        `json:"score"`
}

// VectorSearcher is the similarity-search capability consumed by the
// Retriever. Implementations wrap an external vector database; search/qdrant
// provides one for Qdrant.
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

// Classifier is the optional emotion-classification capability. Callers must
// substitute EmotionNeutral on any error; classification failure is never
// surfaced as a fatal error.
type Classifier interface {
	Classify(ctx context.Context, text string) (Emotion, error)
}
