package aksara

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s := NewLocalStore(time.Hour)
	ctx := context.Background()

	turns, err := s.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Fatalf("unknown thread loaded %d turns, want 0", len(turns))
	}

	if err := s.Append(ctx, "t1", []Turn{
		{Role: RoleUser, Content: "halo", CreatedAt: 1},
		{Role: RoleAgent, Content: "hai", CreatedAt: 2},
	}); err != nil {
		t.Fatal(err)
	}

	turns, err = s.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 || turns[0].Content != "halo" || turns[1].Content != "hai" {
		t.Fatalf("loaded %+v, want both turns in order", turns)
	}
}

func TestLocalStoreExpiryReadsAsMissing(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewLocalStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.Append(ctx, "t1", []Turn{{Role: RoleUser, Content: "halo"}}); err != nil {
		t.Fatal(err)
	}

	// Just before expiry the history is intact.
	now = now.Add(time.Hour - time.Second)
	if turns, _ := s.Load(ctx, "t1"); len(turns) != 1 {
		t.Fatalf("got %d turns before expiry, want 1", len(turns))
	}

	// Load must not reset the window; only Append does.
	now = now.Add(2 * time.Second)
	if turns, _ := s.Load(ctx, "t1"); len(turns) != 0 {
		t.Fatal("expired thread still loaded turns")
	}
}

func TestLocalStoreAppendSlidesTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewLocalStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Append(ctx, "t1", []Turn{{Role: RoleUser, Content: "a"}})
	now = now.Add(50 * time.Minute)
	_ = s.Append(ctx, "t1", []Turn{{Role: RoleUser, Content: "b"}})

	// 70 minutes after the first append, 20 after the second: still live.
	now = now.Add(20 * time.Minute)
	turns, _ := s.Load(ctx, "t1")
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2 (append must reset the window)", len(turns))
	}
}

func TestLocalStoreAppendAfterExpiryStartsFresh(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewLocalStore(time.Hour)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Append(ctx, "t1", []Turn{{Role: RoleUser, Content: "stale"}})
	now = now.Add(2 * time.Hour)
	_ = s.Append(ctx, "t1", []Turn{{Role: RoleUser, Content: "fresh"}})

	turns, _ := s.Load(ctx, "t1")
	if len(turns) != 1 || turns[0].Content != "fresh" {
		t.Fatalf("got %+v, want only the fresh turn", turns)
	}
}

func TestTruncateHistory(t *testing.T) {
	turns := []Turn{
		{Content: "1"}, {Content: "2"}, {Content: "3"}, {Content: "4"},
	}
	got := TruncateHistory(turns, 2)
	if len(got) != 2 || got[0].Content != "3" || got[1].Content != "4" {
		t.Fatalf("TruncateHistory = %+v, want the 2 most recent", got)
	}
	if got := TruncateHistory(turns, 10); len(got) != 4 {
		t.Fatalf("short history truncated: %+v", got)
	}
	if got := TruncateHistory(turns, 0); len(got) != 4 {
		t.Fatalf("max 0 must disable truncation, got %+v", got)
	}
}

// failStore errors on everything.
type failStore struct{}

func (failStore) Load(context.Context, string) ([]Turn, error) {
	return nil, errors.New("connection refused")
}
func (failStore) Append(context.Context, string, []Turn) error {
	return errors.New("connection refused")
}

func TestFallbackStoreDegradesToLocal(t *testing.T) {
	s := NewFallbackStore(failStore{}, time.Hour)
	ctx := context.Background()

	if err := s.Append(ctx, "t1", []Turn{{Role: RoleUser, Content: "halo"}}); err != nil {
		t.Fatalf("append must degrade, got %v", err)
	}
	turns, err := s.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("load must degrade, got %v", err)
	}
	if len(turns) != 1 || turns[0].Content != "halo" {
		t.Fatalf("fallback lost the turn: %+v", turns)
	}
}

func TestFallbackStorePrefersPrimary(t *testing.T) {
	primary := newMockStore()
	s := NewFallbackStore(primary, time.Hour)
	ctx := context.Background()

	_ = s.Append(ctx, "t1", []Turn{{Role: RoleUser, Content: "halo"}})
	if len(primary.threads["t1"]) != 1 {
		t.Fatal("healthy primary not written")
	}
}
