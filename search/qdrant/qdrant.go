// Package qdrant implements aksara.VectorSearcher over a Qdrant collection.
// Queries are embedded with the configured aksara.Embedder, then searched
// with the official gRPC client.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/aksara-ai/aksara"
)

// Config holds the Qdrant connection and collection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
	// Collection is the collection to search.
	Collection string
	// ContentKey is the payload field holding the passage text.
	// Defaults to "content".
	ContentKey string
}

// Searcher is a VectorSearcher backed by one Qdrant collection.
type Searcher struct {
	client     *qdrant.Client
	embedder   aksara.Embedder
	collection string
	contentKey string
}

// New connects to Qdrant and returns a Searcher over cfg.Collection.
func New(cfg Config, embedder aksara.Embedder) (*Searcher, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name required")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: create client: %w", err)
	}
	contentKey := cfg.ContentKey
	if contentKey == "" {
		contentKey = "content"
	}
	return &Searcher{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		contentKey: contentKey,
	}, nil
}

// Close releases the underlying gRPC connection.
func (s *Searcher) Close() error { return s.client.Close() }

// Search embeds the query and returns the topK nearest passages.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]aksara.SearchResult, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("qdrant: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("qdrant: expected 1 query vector, got %d", len(vectors))
	}

	resp, err := s.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vectors[0],
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search points: %w", err)
	}

	results := make([]aksara.SearchResult, 0, len(resp.Result))
	for _, point := range resp.Result {
		metadata := payloadToMetadata(point.Payload)
		content, _ := metadata[s.contentKey].(string)
		delete(metadata, s.contentKey)
		results = append(results, aksara.SearchResult{
			Content:  content,
			Metadata: metadata,
			Score:    point.Score,
		})
	}
	return results, nil
}

// payloadToMetadata converts a Qdrant payload into plain Go values.
// Nested lists flatten to []any; unsupported kinds are skipped.
func payloadToMetadata(payload map[string]*qdrant.Value) map[string]any {
	metadata := make(map[string]any, len(payload))
	for key, value := range payload {
		if v, ok := valueToAny(value); ok {
			metadata[key] = v
		}
	}
	return metadata
}

func valueToAny(value *qdrant.Value) (any, bool) {
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue, true
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue, true
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue, true
	case *qdrant.Value_BoolValue:
		return v.BoolValue, true
	case *qdrant.Value_ListValue:
		if v.ListValue == nil {
			return nil, false
		}
		list := make([]any, 0, len(v.ListValue.Values))
		for _, item := range v.ListValue.Values {
			if iv, ok := valueToAny(item); ok {
				list = append(list, iv)
			}
		}
		return list, true
	default:
		return nil, false
	}
}

var _ aksara.VectorSearcher = (*Searcher)(nil)
