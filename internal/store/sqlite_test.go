package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"release_relay/internal/model"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMarkSeenAndHas(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	entry := model.SeenEntry{
		ID:          "https://vendor.example.com/new/2025/08/thing/",
		Title:       "New thing",
		PublishedAt: time.Date(2025, 8, 27, 18, 30, 0, 0, time.UTC),
		DeliveredAt: time.Date(2025, 8, 27, 18, 35, 0, 0, time.UTC),
	}

	seen, err := s.Has(ctx, entry.ID)
	if err != nil {
		t.Fatalf("has before insert: %v", err)
	}
	if seen {
		t.Fatal("expected id to be unseen before insert")
	}

	if err := s.MarkSeen(ctx, entry); err != nil {
		t.Fatalf("mark seen: %v", err)
	}

	seen, err = s.Has(ctx, entry.ID)
	if err != nil {
		t.Fatalf("has after insert: %v", err)
	}
	if !seen {
		t.Fatal("expected id to be seen after insert")
	}

	got, err := s.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(entry, *got); diff != "" {
		t.Errorf("stored entry mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkSeenIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	first := model.SeenEntry{
		ID:          "https://vendor.example.com/new/a/",
		Title:       "Original title",
		DeliveredAt: time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC),
	}
	if err := s.MarkSeen(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	second := first
	second.Title = "Changed title"
	second.DeliveredAt = second.DeliveredAt.Add(time.Hour)
	if err := s.MarkSeen(ctx, second); err != nil {
		t.Fatalf("duplicate insert should be a no-op, got: %v", err)
	}

	got, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// The original row wins; duplicates never overwrite.
	if diff := cmp.Diff(first, *got); diff != "" {
		t.Errorf("entry mismatch after duplicate insert (-want +got):\n%s", diff)
	}
}

func TestGetUnknownID(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	_, err := s.Get(ctx, "https://vendor.example.com/new/missing/")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestConcurrentMarkSeenDistinctIDs(t *testing.T) {
	ctx := context.Background()
	// File-backed: concurrent access opens extra pool connections, and
	// each :memory: connection would get its own empty database.
	s, err := NewSQLite(filepath.Join(t.TempDir(), "seen.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ids := []string{
		"https://vendor.example.com/new/a/",
		"https://vendor.example.com/new/b/",
		"https://vendor.example.com/new/c/",
		"https://vendor.example.com/new/d/",
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.MarkSeen(ctx, model.SeenEntry{ID: id, DeliveredAt: time.Now().UTC()})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("mark seen %s: %v", ids[i], err)
		}
	}
	for _, id := range ids {
		seen, err := s.Has(ctx, id)
		if err != nil {
			t.Fatalf("has %s: %v", id, err)
		}
		if !seen {
			t.Errorf("expected %s to be seen", id)
		}
	}
}

func TestClosedStoreReturnsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	_ = s.Close()

	_, err := s.Has(ctx, "https://vendor.example.com/new/a/")
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}

	err = s.MarkSeen(ctx, model.SeenEntry{ID: "x", DeliveredAt: time.Now()})
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
}
