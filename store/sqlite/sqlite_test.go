package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aksara-ai/aksara"
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"), opts...)
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadUnknownThread(t *testing.T) {
	s := newTestStore(t)
	turns, err := s.Load(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Fatalf("got %d turns, want 0", len(turns))
	}
}

func TestAppendAndLoadPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "t1", []aksara.Turn{
		{Role: aksara.RoleUser, Content: "berapa ukt?", CreatedAt: 1},
		{Role: aksara.RoleTool, Content: "dokumen", CreatedAt: 2},
		{Role: aksara.RoleAgent, Content: "Rp12,5 juta", CreatedAt: 3},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "t1", []aksara.Turn{
		{Role: aksara.RoleUser, Content: "kalau beasiswa?", CreatedAt: 4},
	}); err != nil {
		t.Fatal(err)
	}

	turns, err := s.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 4 {
		t.Fatalf("got %d turns, want 4", len(turns))
	}
	want := []string{"berapa ukt?", "dokumen", "Rp12,5 juta", "kalau beasiswa?"}
	for i, w := range want {
		if turns[i].Content != w {
			t.Errorf("turns[%d].Content = %q, want %q", i, turns[i].Content, w)
		}
	}
}

func TestThreadsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.Append(ctx, "t1", []aksara.Turn{{Role: aksara.RoleUser, Content: "a"}})
	_ = s.Append(ctx, "t2", []aksara.Turn{{Role: aksara.RoleUser, Content: "b"}})

	turns, _ := s.Load(ctx, "t1")
	if len(turns) != 1 || turns[0].Content != "a" {
		t.Fatalf("t1 turns = %+v", turns)
	}
}

func TestExpiryReadsAsMissing(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestStore(t,
		WithTTL(time.Hour),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_ = s.Append(ctx, "t1", []aksara.Turn{{Role: aksara.RoleUser, Content: "halo"}})

	now = now.Add(time.Hour + time.Second)
	turns, err := s.Load(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 0 {
		t.Fatalf("expired conversation loaded %d turns, want 0", len(turns))
	}
}

func TestAppendSlidesTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestStore(t,
		WithTTL(time.Hour),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_ = s.Append(ctx, "t1", []aksara.Turn{{Role: aksara.RoleUser, Content: "a"}})
	now = now.Add(50 * time.Minute)
	_ = s.Append(ctx, "t1", []aksara.Turn{{Role: aksara.RoleUser, Content: "b"}})

	now = now.Add(20 * time.Minute)
	turns, _ := s.Load(ctx, "t1")
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2 after the window slid", len(turns))
	}
}

func TestAppendAfterExpiryStartsFresh(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestStore(t,
		WithTTL(time.Hour),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_ = s.Append(ctx, "t1", []aksara.Turn{{Role: aksara.RoleUser, Content: "stale"}})
	now = now.Add(2 * time.Hour)
	_ = s.Append(ctx, "t1", []aksara.Turn{{Role: aksara.RoleUser, Content: "fresh"}})

	turns, _ := s.Load(ctx, "t1")
	if len(turns) != 1 || turns[0].Content != "fresh" {
		t.Fatalf("turns = %+v, want only the fresh turn", turns)
	}
}
