package aksara

import (
	"context"
	"sync"
	"time"
)

// threadLocks serializes request processing per conversation thread. Each
// thread has at most one in-flight request; a second request waits up to the
// configured bound, then fails with ErrConversationConflict. Different
// threads never contend.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	ch   chan struct{} // capacity 1, holds the lock token
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// acquire takes the lock for threadID, waiting up to maxWait. On success the
// returned release func must be called exactly once. Cancellation of ctx
// aborts the wait with ctx.Err(); exceeding maxWait returns
// ErrConversationConflict.
func (t *threadLocks) acquire(ctx context.Context, threadID string, maxWait time.Duration) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[threadID]
	if !ok {
		l = &threadLock{ch: make(chan struct{}, 1)}
		l.ch <- struct{}{}
		t.locks[threadID] = l
	}
	l.refs++
	t.mu.Unlock()

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case <-l.ch:
		return func() { t.release(threadID, l) }, nil
	case <-ctx.Done():
		t.drop(threadID, l)
		return nil, ctx.Err()
	case <-timer.C:
		t.drop(threadID, l)
		return nil, ErrConversationConflict
	}
}

func (t *threadLocks) release(threadID string, l *threadLock) {
	l.ch <- struct{}{}
	t.drop(threadID, l)
}

// drop decrements the refcount and removes the entry when no goroutine holds
// or waits for it, so idle threads do not accumulate lock state.
func (t *threadLocks) drop(threadID string, l *threadLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, threadID)
	}
}
