// Command pipelinectl is the operator CLI for the pipeline: it inspects
// queue depth, batch ledger state, and processing statistics without
// requiring direct Redis/Postgres access.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "pipelinectl",
		Short:         "Inspect and operate the audio ingestion pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newQueueCommand(&configFlag))
	rootCmd.AddCommand(newBatchCommand(&configFlag))

	return rootCmd
}
