package aksara

import (
	"context"
	"sync"
)

// mockProvider is a test Provider that returns canned responses in order and
// records every request it receives.
type mockProvider struct {
	mu        sync.Mutex
	name      string
	responses []ChatResponse // popped in order
	idx       int
	requests  []ChatRequest
	err       error
}

func (m *mockProvider) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return ChatResponse{}, m.err
	}
	if m.idx >= len(m.responses) {
		return ChatResponse{Content: "exhausted"}, nil
	}
	resp := m.responses[m.idx]
	m.idx++
	return resp, nil
}

// funcProvider adapts a function to the Provider interface.
type funcProvider struct {
	name string
	fn   func(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

func (f *funcProvider) Name() string { return f.name }
func (f *funcProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	return f.fn(ctx, req)
}

// funcSearcher adapts a function to the VectorSearcher interface.
type funcSearcher func(ctx context.Context, query string, topK int) ([]SearchResult, error)

func (f funcSearcher) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	return f(ctx, query, topK)
}

// mockStore is an in-memory ConversationStore with error injection.
type mockStore struct {
	mu        sync.Mutex
	threads   map[string][]Turn
	appended  [][]Turn
	loadErr   error
	appendErr error
}

func newMockStore() *mockStore {
	return &mockStore{threads: make(map[string][]Turn)}
}

func (m *mockStore) Load(_ context.Context, threadID string) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]Turn, len(m.threads[threadID]))
	copy(out, m.threads[threadID])
	return out, nil
}

func (m *mockStore) Append(_ context.Context, threadID string, turns []Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.threads[threadID] = append(m.threads[threadID], turns...)
	m.appended = append(m.appended, turns)
	return nil
}

// mockClassifier returns a fixed emotion or error.
type mockClassifier struct {
	emotion Emotion
	err     error
	calls   int
}

func (m *mockClassifier) Classify(context.Context, string) (Emotion, error) {
	m.calls++
	return m.emotion, m.err
}
