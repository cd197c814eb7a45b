package scratchledger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenwicklabs/audiopipe/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndForget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, "batch-1", "/scratch/batch-1"); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	entries, err := store.OlderThan(ctx, 0)
	if err != nil {
		t.Fatalf("OlderThan returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].BatchID != "batch-1" {
		t.Fatalf("expected one entry for batch-1, got %+v", entries)
	}

	if err := store.Forget(ctx, "batch-1"); err != nil {
		t.Fatalf("Forget returned error: %v", err)
	}

	entries, err = store.OlderThan(ctx, 0)
	if err != nil {
		t.Fatalf("OlderThan returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries after forget, got %+v", entries)
	}
}

func TestOlderThanRespectsAge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, "fresh-batch", "/scratch/fresh"); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	entries, err := store.OlderThan(ctx, time.Hour)
	if err != nil {
		t.Fatalf("OlderThan returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no stale entries for a fresh record, got %+v", entries)
	}
}

func TestReaperSweepOnceRemovesOrphans(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	orphanPath := filepath.Join(dir, "orphan-batch")
	if err := os.MkdirAll(orphanPath, 0o755); err != nil {
		t.Fatalf("mkdir orphan path: %v", err)
	}
	if err := store.Record(ctx, "orphan-batch", orphanPath); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reaper := NewReaper(store, 0, logger)

	removed, err := reaper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(orphanPath); !os.IsNotExist(err) {
		t.Fatalf("expected orphan directory to be removed, stat err=%v", err)
	}
}
