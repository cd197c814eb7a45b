package queueclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrLedgerNotFound indicates the ledger for a batch has already been
// finalized (its keys deleted) or never existed.
var ErrLedgerNotFound = errors.New("queueclient: batch ledger not found")

func totalKey(batchID string) string     { return fmt.Sprintf("batch:%s:total", batchID) }
func processedKey(batchID string) string { return fmt.Sprintf("batch:%s:processed", batchID) }
func s3KeyKey(batchID string) string     { return fmt.Sprintf("batch:%s:s3_key", batchID) }

// SetLedgerTotal sets batch:{id}:total and batch:{id}:s3_key, initializing
// batch:{id}:processed to zero. Called once by the Unpack Worker after a
// batch's clips have been counted.
func (c *Client) SetLedgerTotal(ctx context.Context, batchID string, total int64, archiveKey string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, totalKey(batchID), total, 0)
	pipe.Set(ctx, processedKey(batchID), 0, 0)
	pipe.Set(ctx, s3KeyKey(batchID), archiveKey, 0)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("queueclient: set ledger total for %s: %w", batchID, err)
	}
	return nil
}

// IncrementProcessed atomically increments batch:{id}:processed by one and
// returns the resulting value alongside the batch's total. A batch whose
// ledger has already been finalized (total key absent) returns
// ErrLedgerNotFound: the caller should treat this as an already-finalized,
// idempotent no-op rather than an error.
func (c *Client) IncrementProcessed(ctx context.Context, batchID string) (processed, total int64, err error) {
	processed, err = c.rdb.IncrBy(ctx, processedKey(batchID), 1).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("queueclient: increment processed for %s: %w", batchID, err)
	}

	totalStr, err := c.rdb.Get(ctx, totalKey(batchID)).Result()
	if errors.Is(err, redis.Nil) {
		return processed, 0, ErrLedgerNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("queueclient: read total for %s: %w", batchID, err)
	}
	total, convErr := strconv.ParseInt(totalStr, 10, 64)
	if convErr != nil {
		return 0, 0, fmt.Errorf("queueclient: parse total for %s: %w", batchID, convErr)
	}
	return processed, total, nil
}

// LedgerStatus is a point-in-time snapshot of a batch's ledger counters,
// read without mutating them.
type LedgerStatus struct {
	ArchiveKey string
	Processed  int64
	Total      int64
}

// GetLedgerStatus reads batch:{id}:total, batch:{id}:processed, and
// batch:{id}:s3_key without incrementing anything, for CLI/status reporting.
func (c *Client) GetLedgerStatus(ctx context.Context, batchID string) (LedgerStatus, error) {
	pipe := c.rdb.TxPipeline()
	totalCmd := pipe.Get(ctx, totalKey(batchID))
	processedCmd := pipe.Get(ctx, processedKey(batchID))
	archiveCmd := pipe.Get(ctx, s3KeyKey(batchID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return LedgerStatus{}, fmt.Errorf("queueclient: read ledger status for %s: %w", batchID, err)
	}

	totalStr, err := totalCmd.Result()
	if errors.Is(err, redis.Nil) {
		return LedgerStatus{}, ErrLedgerNotFound
	}
	if err != nil {
		return LedgerStatus{}, fmt.Errorf("queueclient: read total for %s: %w", batchID, err)
	}
	total, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil {
		return LedgerStatus{}, fmt.Errorf("queueclient: parse total for %s: %w", batchID, err)
	}

	processedStr, err := processedCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return LedgerStatus{}, fmt.Errorf("queueclient: read processed for %s: %w", batchID, err)
	}
	var processed int64
	if processedStr != "" {
		processed, err = strconv.ParseInt(processedStr, 10, 64)
		if err != nil {
			return LedgerStatus{}, fmt.Errorf("queueclient: parse processed for %s: %w", batchID, err)
		}
	}

	archiveKey, err := archiveCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return LedgerStatus{}, fmt.Errorf("queueclient: read s3_key for %s: %w", batchID, err)
	}

	return LedgerStatus{ArchiveKey: archiveKey, Processed: processed, Total: total}, nil
}

// ArchiveKey returns the batch:{id}:s3_key value, or ErrLedgerNotFound once
// the ledger has been finalized.
func (c *Client) ArchiveKey(ctx context.Context, batchID string) (string, error) {
	value, err := c.rdb.Get(ctx, s3KeyKey(batchID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrLedgerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("queueclient: read s3_key for %s: %w", batchID, err)
	}
	return value, nil
}

// FinalizeLedger deletes all three ledger keys for a batch. Deleting a
// nonexistent key is a no-op in Redis, which is what makes a concurrent
// finalisation attempt after deletion safe (R1).
func (c *Client) FinalizeLedger(ctx context.Context, batchID string) error {
	if err := c.rdb.Del(ctx, totalKey(batchID), processedKey(batchID), s3KeyKey(batchID)).Err(); err != nil {
		return fmt.Errorf("queueclient: finalize ledger for %s: %w", batchID, err)
	}
	return nil
}
