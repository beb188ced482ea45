package aksara

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestThreadLocksSerializeSameThread(t *testing.T) {
	locks := newThreadLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "t1", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	_, err = locks.acquire(ctx, "t1", 20*time.Millisecond)
	if !errors.Is(err, ErrConversationConflict) {
		t.Fatalf("second acquire err = %v, want ErrConversationConflict", err)
	}

	release()

	release2, err := locks.acquire(ctx, "t1", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire after release err = %v", err)
	}
	release2()
}

func TestThreadLocksIndependentThreads(t *testing.T) {
	locks := newThreadLocks()
	ctx := context.Background()

	r1, err := locks.acquire(ctx, "t1", 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	r2, err := locks.acquire(ctx, "t2", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("different thread blocked: %v", err)
	}
	r2()
}

func TestThreadLocksWaiterGetsLockOnRelease(t *testing.T) {
	locks := newThreadLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "t1", time.Second)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan func())
	go func() {
		r, err := locks.acquire(ctx, "t1", time.Second)
		if err != nil {
			t.Error(err)
			close(acquired)
			return
		}
		acquired <- r
	}()

	time.Sleep(10 * time.Millisecond)
	release()

	select {
	case r := <-acquired:
		if r != nil {
			r()
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the released lock")
	}
}

func TestThreadLocksCancelledWait(t *testing.T) {
	locks := newThreadLocks()

	release, err := locks.acquire(context.Background(), "t1", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.acquire(ctx, "t1", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestThreadLocksCleanUpIdleEntries(t *testing.T) {
	locks := newThreadLocks()
	release, err := locks.acquire(context.Background(), "t1", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Fatalf("idle lock entries retained: %d", len(locks.locks))
	}
}
