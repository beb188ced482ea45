package aksara

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is the sliding expiry window for conversation history.
const DefaultTTL = 24 * time.Hour

// ConversationStore holds per-thread turn history with a sliding expiry.
// Append is the sole mutator: it extends the history and resets the TTL
// atomically. Load returns an empty history for missing or expired threads;
// expiry is read-as-missing, never a partially expired list.
type ConversationStore interface {
	Load(ctx context.Context, threadID string) ([]Turn, error)
	Append(ctx context.Context, threadID string, turns []Turn) error
}

// TruncateHistory returns the most recent max turns, dropping the oldest
// first. Order is preserved. Used to bound prompt size before presenting
// history to the model.
func TruncateHistory(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	return turns[len(turns)-max:]
}

// --- LocalStore ---

type localThread struct {
	turns     []Turn
	expiresAt time.Time
}

// LocalStore is a process-local, non-shared ConversationStore with a sliding
// TTL. It backs tests and single-process deployments, and serves as the
// degradation target when a shared store is unreachable (NewFallbackStore).
type LocalStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	threads map[string]*localThread
	now     func() time.Time
}

var _ ConversationStore = (*LocalStore)(nil)

// NewLocalStore creates a LocalStore with the given sliding TTL.
// A non-positive ttl uses DefaultTTL.
func NewLocalStore(ttl time.Duration) *LocalStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LocalStore{
		ttl:     ttl,
		threads: make(map[string]*localThread),
		now:     time.Now,
	}
}

// Load returns a copy of the thread's history, or an empty history if the
// thread is missing or expired. Expired threads are dropped on read.
func (s *LocalStore) Load(_ context.Context, threadID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(t.expiresAt) {
		delete(s.threads, threadID)
		return nil, nil
	}
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out, nil
}

// Append extends the thread's history and resets the sliding TTL in one
// critical section, so concurrent readers never observe a partial write.
// Appending to an expired thread starts a fresh history.
func (s *LocalStore) Append(_ context.Context, threadID string, turns []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t, ok := s.threads[threadID]
	if !ok || !now.Before(t.expiresAt) {
		t = &localThread{}
		s.threads[threadID] = t
	}
	t.turns = append(t.turns, turns...)
	t.expiresAt = now.Add(s.ttl)
	return nil
}

// --- Fallback store ---

// fallbackStore wraps a shared ConversationStore and silently degrades to a
// process-local store when the backing store errors. A deliberate
// availability-over-consistency tradeoff: failures are logged, never
// surfaced to the caller.
type fallbackStore struct {
	primary ConversationStore
	local   *LocalStore
	logger  *slog.Logger
}

// FallbackOption configures a fallback store.
type FallbackOption func(*fallbackStore)

// WithFallbackLogger sets the logger for degradation warnings.
func WithFallbackLogger(l *slog.Logger) FallbackOption {
	return func(f *fallbackStore) { f.logger = l }
}

// NewFallbackStore wraps primary so that store failures degrade to a
// process-local history (with the same sliding ttl) instead of failing the
// request.
func NewFallbackStore(primary ConversationStore, ttl time.Duration, opts ...FallbackOption) ConversationStore {
	f := &fallbackStore{
		primary: primary,
		local:   NewLocalStore(ttl),
		logger:  nopLogger,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *fallbackStore) Load(ctx context.Context, threadID string) ([]Turn, error) {
	turns, err := f.primary.Load(ctx, threadID)
	if err != nil {
		f.logger.Warn("conversation store unreachable, reading local fallback",
			"thread", threadID, "error", err)
		return f.local.Load(ctx, threadID)
	}
	return turns, nil
}

func (f *fallbackStore) Append(ctx context.Context, threadID string, turns []Turn) error {
	if err := f.primary.Append(ctx, threadID, turns); err != nil {
		f.logger.Warn("conversation store unreachable, appending to local fallback",
			"thread", threadID, "error", err)
		return f.local.Append(ctx, threadID, turns)
	}
	return nil
}
