// Command unpackworker runs the Unpack Worker process: it pops archive keys
// from the unpack queue, extracts and transcodes their clips, and hands the
// results to the GPU Worker fleet via the transcribe queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/fenwicklabs/audiopipe/internal/blobstore"
	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/daemon"
	"github.com/fenwicklabs/audiopipe/internal/logging"
	"github.com/fenwicklabs/audiopipe/internal/queueclient"
	"github.com/fenwicklabs/audiopipe/internal/scratchledger"
	"github.com/fenwicklabs/audiopipe/internal/unpack"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	d, err := daemon.New("unpackworker", cfg, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	return d.Run(context.Background(), func(ctx context.Context) error {
		return runWorker(ctx, cfg, logger)
	})
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	blob, err := blobstore.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect blob store: %w", err)
	}

	queue := queueclient.New(cfg)
	defer func() { _ = queue.Close() }()
	if err := queue.Ping(ctx); err != nil {
		return fmt.Errorf("connect queue service: %w", err)
	}

	scratch, err := scratchledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open scratch ledger: %w", err)
	}
	defer func() { _ = scratch.Close() }()

	logger.Info("unpack worker starting")
	worker := unpack.New(cfg, queue, blob, scratch, logger)
	return worker.Run(ctx)
}
