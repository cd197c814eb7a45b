package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/fenwicklabs/audiopipe/internal/config"
)

// Daemon enforces single-instance execution for a worker process and wires its
// lifecycle to OS shutdown signals. Both the unpack worker and the GPU worker
// embed one of these rather than duplicating lock and signal handling.
type Daemon struct {
	name     string
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon that guards name against concurrent execution using
// a lock file under cfg.Paths.LogDir.
func New(name string, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if name == "" {
		return nil, errors.New("daemon requires a name")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, name+".lock")
	return &Daemon{
		name:     name,
		logger:   logger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Acquire takes the single-instance lock. It returns an error if another
// process already holds it.
func (d *Daemon) Acquire() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another %s instance is already running", d.name)
	}

	d.running.Store(true)
	d.logger.Info("worker lock acquired", "lock_path", d.lockPath)
	return nil
}

// Release drops the single-instance lock.
func (d *Daemon) Release() {
	if !d.running.Load() {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release worker lock", "error", err)
	}
	d.running.Store(false)
	d.logger.Info("worker lock released")
}

// Running reports whether the lock is currently held by this process.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the path to the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// WithSignalContext returns a context that is canceled when the process
// receives SIGINT or SIGTERM, along with a function that releases the
// associated signal notification. Worker main loops should select on
// ctx.Done() to begin a graceful shutdown.
func WithSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return ctx, stop
}

// Run acquires the lock, invokes fn with a signal-aware context, and releases
// the lock on return regardless of outcome.
func (d *Daemon) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := d.Acquire(); err != nil {
		return err
	}
	defer d.Release()

	runCtx, stop := WithSignalContext(ctx)
	defer stop()

	runCtx, cancel := context.WithCancel(runCtx)
	d.cancel = cancel
	defer cancel()

	return fn(runCtx)
}

// Stop cancels the context passed to the running fn, if any.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}
