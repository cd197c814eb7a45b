// Package scratchledger tracks scratch directories created by the Unpack
// Worker on this node, independent of the distributed batch ledger in the
// Queue & Counter Service. A periodic reaper uses it to find and remove
// directories left behind by a crashed worker before finalisation.
package scratchledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fenwicklabs/audiopipe/internal/config"
)

// Store manages scratch-directory bookkeeping backed by a local SQLite
// database.
type Store struct {
	db *sql.DB
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the scratch ledger database under the
// configured log directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("scratchledger: ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "scratch.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("scratchledger: open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("scratchledger: apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS scratch_directories (
	batch_id   TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	created_at TEXT NOT NULL
);`
	return s.execWithoutResultRetry(ctx, schema)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Record registers a newly created scratch directory for batchID.
func (s *Store) Record(ctx context.Context, batchID, path string) error {
	return s.execWithoutResultRetry(ctx,
		"INSERT OR REPLACE INTO scratch_directories (batch_id, path, created_at) VALUES (?, ?, ?)",
		batchID, path, time.Now().UTC().Format(time.RFC3339Nano),
	)
}

// Forget removes batchID's scratch directory entry, called once the
// GPU Worker finalizes the batch and deletes the directory itself.
func (s *Store) Forget(ctx context.Context, batchID string) error {
	return s.execWithoutResultRetry(ctx, "DELETE FROM scratch_directories WHERE batch_id = ?", batchID)
}

// PathFor returns the scratch directory recorded for batchID, if any.
func (s *Store) PathFor(ctx context.Context, batchID string) (string, bool, error) {
	var path string
	err := s.db.QueryRowContext(ctx,
		"SELECT path FROM scratch_directories WHERE batch_id = ?", batchID,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("scratchledger: lookup path for %s: %w", batchID, err)
	}
	return path, true, nil
}

// ScratchEntry is a single tracked scratch directory.
type ScratchEntry struct {
	BatchID   string
	Path      string
	CreatedAt time.Time
}

// OlderThan returns entries whose created_at is older than maxAge, for the
// periodic reaper to sweep.
func (s *Store) OlderThan(ctx context.Context, maxAge time.Duration) ([]ScratchEntry, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx,
		"SELECT batch_id, path, created_at FROM scratch_directories WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("scratchledger: query stale entries: %w", err)
	}
	defer rows.Close()

	var entries []ScratchEntry
	for rows.Next() {
		var entry ScratchEntry
		var createdRaw string
		if err := rows.Scan(&entry.BatchID, &entry.Path, &createdRaw); err != nil {
			return nil, fmt.Errorf("scratchledger: scan stale entry: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdRaw)
		if err != nil {
			continue
		}
		entry.CreatedAt = parsed
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scratchledger: iterate stale entries: %w", err)
	}
	return entries, nil
}
