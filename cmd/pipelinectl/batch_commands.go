package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/queueclient"
	"github.com/fenwicklabs/audiopipe/internal/relstore"
)

func newBatchCommand(configFlag *string) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Inspect batch ledgers and processing statistics",
	}
	batchCmd.AddCommand(newBatchShowCommand(configFlag))
	batchCmd.AddCommand(newBatchStatsCommand(configFlag))
	return batchCmd
}

func newBatchShowCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a batch's ledger counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client := queueclient.New(cfg)
			defer func() { _ = client.Close() }()

			status, err := client.GetLedgerStatus(cmd.Context(), args[0])
			if errors.Is(err, queueclient.ErrLedgerNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "batch %s has no active ledger (finalized or unknown)\n", args[0])
				return nil
			}
			if err != nil {
				return fmt.Errorf("read ledger status: %w", err)
			}

			rows := [][]string{
				{"archive_key", status.ArchiveKey},
				{"processed", strconv.FormatInt(status.Processed, 10)},
				{"total", strconv.FormatInt(status.Total, 10)},
			}
			table := renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newBatchStatsCommand(configFlag *string) *cobra.Command {
	var windowHours int
	var flaggedLimit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show processing statistics and pending flagged clips over a trailing window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx := context.Background()
			store, err := relstore.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect relational store: %w", err)
			}
			defer store.Close()

			window := time.Duration(windowHours) * time.Hour
			stats, err := store.GetProcessingStats(ctx, window)
			if err != nil {
				return fmt.Errorf("read processing stats: %w", err)
			}

			statusRows := make([][]string, 0, len(stats.StatusCounts))
			for status, count := range stats.StatusCounts {
				statusRows = append(statusRows, []string{status, strconv.FormatInt(count, 10)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable([]string{"Status", "Count"}, statusRows, []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "flagged: %d / %d classified\n", stats.FlaggedCount, stats.TotalClassified)

			clips, err := store.PendingFlagged(ctx, window, flaggedLimit)
			if err != nil {
				return fmt.Errorf("read pending flagged clips: %w", err)
			}
			if len(clips) == 0 {
				return nil
			}
			clipRows := make([][]string, 0, len(clips))
			for _, clip := range clips {
				category := ""
				if clip.Category != nil {
					category = *clip.Category
				}
				clipRows = append(clipRows, []string{
					strconv.FormatInt(clip.AudioID, 10),
					clip.OriginalFilename,
					fmt.Sprintf("%.2f", clip.Score),
					category,
				})
			}
			fmt.Fprint(out, renderTable([]string{"Audio ID", "Filename", "Score", "Category"}, clipRows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}

	cmd.Flags().IntVar(&windowHours, "window-hours", 24, "Trailing window in hours")
	cmd.Flags().IntVar(&flaggedLimit, "limit", 20, "Maximum pending flagged clips to list")
	return cmd
}
