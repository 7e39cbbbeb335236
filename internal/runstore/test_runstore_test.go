package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"appforge/internal/plan"
)

func sampleRecord(runID string, started time.Time) Record {
	return Record{
		RunID:    runID,
		Goal:     "build a crm",
		IsAtomic: false,
		Success:  true,
		TaskStatuses: map[string]plan.Status{
			"collect-requirements": plan.StatusSucceeded,
		},
		StartedAt:   started,
		CompletedAt: started.Add(2 * time.Second),
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	s := NewFileStore(path)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Save(ctx, sampleRecord("run-b", base.Add(time.Minute))); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, sampleRecord("run-a", base)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Goal != "build a crm" || !got.Success {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.TaskStatuses["collect-requirements"] != plan.StatusSucceeded {
		t.Fatalf("task statuses not persisted: %+v", got.TaskStatuses)
	}

	// A fresh store over the same file must see the saved rows.
	reopened := NewFileStore(path)
	rows, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 records, got %d", len(rows))
	}
	if rows[0].RunID != "run-a" || rows[1].RunID != "run-b" {
		t.Fatalf("records not ordered by start time: %s, %s", rows[0].RunID, rows[1].RunID)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "runs.json"))
	if _, err := s.Get(context.Background(), "no-such-run"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreRejectsEmptyRunID(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "runs.json"))
	if err := s.Save(context.Background(), Record{Goal: "orphan"}); err == nil {
		t.Fatal("expected an error for an empty run id")
	}
}

func TestFileStoreUpsert(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "runs.json"))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := sampleRecord("run-a", base)
	rec.Success = false
	rec.Reason = "verification failed"
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec.Success = true
	rec.Reason = ""
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := s.Get(ctx, "run-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Success || got.Reason != "" {
		t.Fatalf("record not overwritten: %+v", got)
	}
	rows, _ := s.List(ctx)
	if len(rows) != 1 {
		t.Fatalf("upsert should keep one row, got %d", len(rows))
	}
}

type countingStore struct {
	inner Store
	gets  int
}

func (c *countingStore) Save(ctx context.Context, rec Record) error { return c.inner.Save(ctx, rec) }
func (c *countingStore) Get(ctx context.Context, id string) (Record, error) {
	c.gets++
	return c.inner.Get(ctx, id)
}
func (c *countingStore) List(ctx context.Context) ([]Record, error) { return c.inner.List(ctx) }

func TestCachedGetHitsOriginOnce(t *testing.T) {
	origin := &countingStore{inner: NewFileStore(filepath.Join(t.TempDir(), "runs.json"))}
	cached, err := NewCached(origin, 8)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := cached.Save(ctx, sampleRecord("run-a", base)); err != nil {
		t.Fatalf("save: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := cached.Get(ctx, "run-a"); err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
	}
	if origin.gets != 0 {
		t.Fatalf("save should prime the cache, origin saw %d gets", origin.gets)
	}

	if _, err := cached.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound passthrough, got %v", err)
	}
	if origin.gets != 1 {
		t.Fatalf("miss should reach the origin once, saw %d", origin.gets)
	}
}
