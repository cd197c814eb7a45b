package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fenwicklabs/audiopipe/internal/config"
	"github.com/fenwicklabs/audiopipe/internal/queueclient"
)

func newQueueCommand(configFlag *string) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the unpack/transcribe/failed queues",
	}
	queueCmd.AddCommand(newQueueStatsCommand(configFlag))
	return queueCmd
}

func newQueueStatsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the length of each queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client := queueclient.New(cfg)
			defer func() { _ = client.Close() }()

			ctx := context.Background()
			queues := []struct{ label, name string }{
				{"unpack", cfg.Queue.UnpackQueue},
				{"transcribe", cfg.Queue.TranscribeQueue},
				{"failed", cfg.Queue.FailedQueue},
			}
			rows := make([][]string, 0, len(queues))
			for _, q := range queues {
				length, err := client.QueueLength(ctx, q.name)
				if err != nil {
					return fmt.Errorf("read %s queue length: %w", q.label, err)
				}
				rows = append(rows, []string{q.label, q.name, strconv.FormatInt(length, 10)})
			}

			table := renderTable([]string{"Queue", "Key", "Length"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
