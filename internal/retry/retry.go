// Package retry provides the bounded exponential backoff policy shared by
// transient infrastructure calls in the pipeline: blob store requests and
// relational store connections. The queue client passes the same bounds to
// go-redis's own command retry instead. The classifier's HTTP client
// keeps its own status-aware retry loop instead, since it must honor a
// Retry-After response header.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fenwicklabs/audiopipe/internal/config"
)

// Policy wraps cenkalti/backoff/v4's exponential backoff with the
// repository's default bounds: base 1s, cap 30s, at most 5 attempts.
type Policy struct {
	base     time.Duration
	cap      time.Duration
	attempts int
}

// NewPolicy builds a Policy from configuration.
func NewPolicy(cfg config.Retry) Policy {
	return Policy{
		base:     time.Duration(cfg.BaseSeconds) * time.Second,
		cap:      time.Duration(cfg.MaxSeconds) * time.Second,
		attempts: cfg.MaxAttempts,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.base
	b.MaxInterval = p.cap
	b.Multiplier = 2
	b.RandomizationFactor = 0
	bounded := backoff.WithMaxRetries(b, uint64(maxAttempts(p.attempts)-1))
	return backoff.WithContext(bounded, ctx)
}

func maxAttempts(attempts int) int {
	if attempts <= 0 {
		return 1
	}
	return attempts
}

// Permanent marks err as non-retryable, causing Do to return immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op, retrying on any error it returns except one wrapped by
// Permanent, up to the policy's attempt cap with exponential backoff between
// tries.
func (p Policy) Do(ctx context.Context, op func() error) error {
	err := backoff.Retry(op, p.backOff(ctx))
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	return err
}
