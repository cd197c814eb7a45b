package scratchledger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Reaper periodically removes scratch directories older than maxAge that
// the scratch ledger still tracks — the sign of a worker that crashed
// before it could finalize the batch and delete its own directory.
type Reaper struct {
	store  *Store
	maxAge time.Duration
	logger *slog.Logger
}

// NewReaper builds a Reaper bound to store, sweeping entries older than
// maxAge.
func NewReaper(store *Store, maxAge time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{store: store, maxAge: maxAge, logger: logger}
}

// SweepOnce runs a single sweep pass and returns the number of directories
// removed.
func (r *Reaper) SweepOnce(ctx context.Context) (int, error) {
	entries, err := r.store.OlderThan(ctx, r.maxAge)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		r.logger.Warn("removing orphan scratch directory",
			slog.String("batch_id", entry.BatchID),
			slog.String("path", entry.Path),
			slog.Time("created_at", entry.CreatedAt),
		)
		if err := os.RemoveAll(entry.Path); err != nil {
			r.logger.Error("failed to remove orphan scratch directory",
				slog.String("batch_id", entry.BatchID),
				slog.String("path", entry.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := r.store.Forget(ctx, entry.BatchID); err != nil {
			r.logger.Error("failed to forget scratch directory after removal",
				slog.String("batch_id", entry.BatchID),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}
	return removed, nil
}

// Run sweeps on the given interval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.SweepOnce(ctx); err != nil {
				r.logger.Error("scratch reaper sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
