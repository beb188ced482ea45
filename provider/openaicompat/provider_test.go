package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aksara-ai/aksara"
)

func TestProviderChat(t *testing.T) {
	var gotAuth string
	var gotBody ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: &ChoiceMessage{Content: "halo"}}},
			Usage:   &Usage{PromptTokens: 3, CompletionTokens: 1},
		})
	}))
	defer srv.Close()

	p := NewProvider("sk-test", "gpt-4o-mini", srv.URL)
	resp, err := p.Chat(context.Background(), aksara.ChatRequest{
		Messages: []aksara.ChatMessage{aksara.UserMessage("hai")},
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "gpt-4o-mini" || len(gotBody.Messages) != 1 {
		t.Errorf("request body = %+v", gotBody)
	}
	if resp.Content != "halo" || resp.Usage.InputTokens != 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestProviderChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	p := NewProvider("", "m", srv.URL)
	_, err := p.Chat(context.Background(), aksara.ChatRequest{})

	var httpErr *aksara.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want ErrHTTP", err)
	}
	if httpErr.Status != 429 || httpErr.Body != "rate limited" {
		t.Errorf("ErrHTTP = %+v", httpErr)
	}
	if httpErr.RetryAfter.Seconds() != 7 {
		t.Errorf("RetryAfter = %v, want 7s", httpErr.RetryAfter)
	}
}

func TestProviderChatDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := NewProvider("", "m", srv.URL, WithName("local"))
	_, err := p.Chat(context.Background(), aksara.ChatRequest{})

	var llmErr *aksara.ErrLLM
	if !errors.As(err, &llmErr) || llmErr.Provider != "local" {
		t.Fatalf("err = %v, want ErrLLM from provider %q", err, "local")
	}
}

func TestEmbeddingProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req EmbeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		// Return vectors out of order; Embed must restore input order.
		_ = json.NewEncoder(w).Encode(EmbeddingResponse{Data: []EmbeddingData{
			{Index: 1, Embedding: []float32{0.2}},
			{Index: 0, Embedding: []float32{0.1}},
		}})
	}))
	defer srv.Close()

	e := NewEmbedding("", "text-embedding-3-small", srv.URL, 1)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[0][0] != 0.1 || vecs[1][0] != 0.2 {
		t.Fatalf("vecs = %v, want input order restored", vecs)
	}
	if e.Dimensions() != 1 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}

func TestEmbeddingCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(EmbeddingResponse{Data: []EmbeddingData{{Index: 0, Embedding: []float32{0.1}}}})
	}))
	defer srv.Close()

	e := NewEmbedding("", "m", srv.URL, 1)
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	var llmErr *aksara.ErrLLM
	if !errors.As(err, &llmErr) {
		t.Fatalf("err = %v, want ErrLLM on count mismatch", err)
	}
}
