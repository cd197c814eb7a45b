// Package queueclient wraps the Queue & Counter Service: a Redis-compatible
// store of FIFO lists (the unpack/transcribe/failed queues) and atomic
// integer counters (the batch ledger). The Unpack Worker and GPU Worker
// never talk to Redis directly; they go through this package.
package queueclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fenwicklabs/audiopipe/internal/config"
)

// Client is a thin, typed wrapper around a Redis connection pool.
type Client struct {
	rdb    *redis.Client
	queues config.Queue
}

// New dials the Queue & Counter Service described by cfg, applying the
// shared retry policy's bounds to go-redis's own command-level retry.
func New(cfg *config.Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Queue.Addr,
		Password:        cfg.Queue.Password,
		DB:              cfg.Queue.DB,
		DialTimeout:     time.Duration(cfg.Queue.DialTimeoutSeconds) * time.Second,
		MaxRetries:      cfg.Retry.MaxAttempts,
		MinRetryBackoff: time.Duration(cfg.Retry.BaseSeconds) * time.Second,
		MaxRetryBackoff: time.Duration(cfg.Retry.MaxSeconds) * time.Second,
	})
	return &Client{rdb: rdb, queues: cfg.Queue}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies connectivity to the Queue & Counter Service.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PushUnpack enqueues an archive object key for the Unpack Worker.
func (c *Client) PushUnpack(ctx context.Context, archiveKey string) error {
	return c.rdb.LPush(ctx, c.queues.UnpackQueue, archiveKey).Err()
}

// PopUnpack blocks for up to timeout for the next archive object key.
// An empty string and ErrEmpty indicate the timeout elapsed with nothing
// available.
func (c *Client) PopUnpack(ctx context.Context, timeout time.Duration) (string, error) {
	return c.brpop(ctx, c.queues.UnpackQueue, timeout)
}

// PushTranscribeJSON enqueues a JSON-encoded transcribe queue item.
func (c *Client) PushTranscribeJSON(ctx context.Context, payload []byte) error {
	return c.rdb.LPush(ctx, c.queues.TranscribeQueue, payload).Err()
}

// PopTranscribe blocks for up to timeout for the next transcribe queue item.
func (c *Client) PopTranscribe(ctx context.Context, timeout time.Duration) (string, error) {
	return c.brpop(ctx, c.queues.TranscribeQueue, timeout)
}

// PushFailed enqueues an archive object key onto the operator-facing failed
// queue for manual inspection.
func (c *Client) PushFailed(ctx context.Context, archiveKey string) error {
	return c.rdb.LPush(ctx, c.queues.FailedQueue, archiveKey).Err()
}

// QueueLength reports the current length of the named queue, for CLI status
// output.
func (c *Client) QueueLength(ctx context.Context, queueName string) (int64, error) {
	return c.rdb.LLen(ctx, queueName).Result()
}

// ErrEmpty indicates a blocking pop's timeout elapsed with no item ready.
var ErrEmpty = errors.New("queueclient: no item available before timeout")

func (c *Client) brpop(ctx context.Context, key string, timeout time.Duration) (string, error) {
	result, err := c.rdb.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("queueclient: brpop %s: %w", key, err)
	}
	if len(result) != 2 {
		return "", fmt.Errorf("queueclient: brpop %s: unexpected reply shape", key)
	}
	return result[1], nil
}
