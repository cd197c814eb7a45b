// Command gpuworker runs the GPU Worker process: it drains the transcribe
// queue, runs WhisperX transcription and harmful-content classification on
// each clip, persists the results, and finalizes each batch's ledger once
// every clip it contains has been accounted for.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fenwicklabs/audiopipe/internal/blobstore"
	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/daemon"
	"github.com/fenwicklabs/audiopipe/internal/gpuworker"
	"github.com/fenwicklabs/audiopipe/internal/logging"
	"github.com/fenwicklabs/audiopipe/internal/queueclient"
	"github.com/fenwicklabs/audiopipe/internal/relstore"
	"github.com/fenwicklabs/audiopipe/internal/scratchledger"
	"github.com/fenwicklabs/audiopipe/internal/services/llm"
	"github.com/fenwicklabs/audiopipe/internal/services/whisperx"
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

	d, err := daemon.New("gpuworker", cfg, logger)
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

	rel, err := relstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect relational store: %w", err)
	}
	defer rel.Close()

	scratch, err := scratchledger.Open(cfg)
	if err != nil {
		return fmt.Errorf("open scratch ledger: %w", err)
	}
	defer func() { _ = scratch.Close() }()

	transcribe := whisperx.NewService(whisperx.Config{
		Model:       cfg.Processing.WhisperXModel,
		CUDAEnabled: cfg.Processing.WhisperXCUDAEnabled,
	})

	classifier := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	reaper := scratchledger.NewReaper(scratch, time.Duration(cfg.Processing.ScratchMaxAgeHours)*time.Hour, logger)
	go reaper.Run(ctx, time.Hour)

	logger.Info("gpu worker starting")
	worker := gpuworker.New(cfg, queue, blob, rel, scratch, transcribe, classifier, logger)
	return worker.Run(ctx)
}
