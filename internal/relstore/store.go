// Package relstore wraps the relational store backing AudioRecord,
// Transcript, and Classification rows. It is the GPU Worker's and the
// operator CLI's only path to Postgres.
package relstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/retry"
)

// Store manages relational persistence backed by Postgres.
type Store struct {
	pool  *pgxpool.Pool
	retry retry.Policy
}

// Open connects to the relational store described by cfg and applies any
// pending migrations. The initial connection attempt and its opening ping
// are retried under the shared backoff policy, since a freshly started
// Postgres instance may not yet be accepting connections.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("relstore: parse dsn: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Postgres.MaxConns
	}

	policy := retry.NewPolicy(cfg.Retry)
	var pool *pgxpool.Pool
	err = policy.Do(ctx, func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("relstore: connect: %w", err)
	}

	store := &Store{pool: pool, retry: policy}
	if err := store.applyMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies connectivity to the relational store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
