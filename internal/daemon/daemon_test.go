package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/daemon"
	"github.com/fenwicklabs/audiopipe/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	return &cfg
}

func TestDaemonAcquireRelease(t *testing.T) {
	cfg := testConfig(t)
	logger := logging.NewNop()

	d, err := daemon.New("unpackworker", cfg, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	if err := d.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}

	if err := d.Acquire(); err == nil {
		t.Fatal("expected second acquire to fail")
	}

	d.Release()
	if d.Running() {
		t.Fatal("expected daemon to be stopped after release")
	}
}

func TestDaemonRunReturnsFnError(t *testing.T) {
	cfg := testConfig(t)
	logger := logging.NewNop()

	d, err := daemon.New("gpuworker", cfg, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	wantErr := errors.New("boom")
	gotErr := d.Run(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(gotErr, wantErr) {
		t.Fatalf("expected wrapped error %v, got %v", wantErr, gotErr)
	}
	if d.Running() {
		t.Fatal("expected lock released after Run returns")
	}
}

func TestDaemonRunStopCancelsContext(t *testing.T) {
	cfg := testConfig(t)
	logger := logging.NewNop()

	d, err := daemon.New("unpackworker", cfg, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		done <- d.Run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	d.Stop()

	if err := <-done; err == nil {
		t.Fatal("expected Run to return context cancellation error")
	}
}
