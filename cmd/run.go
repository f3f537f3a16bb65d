package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/pktgraph/internal/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured graph in the foreground",
	Long: `Run the graph described by the config file.

The process will:
  1. Load the config file and initialize logging
  2. Start the metrics endpoint (if enabled)
  3. Build and configure every element of the graph
  4. Start the control socket (if enabled)
  5. Push packets from the source until it is exhausted or SIGINT/SIGTERM arrives

SIGHUP reloads log settings and element arguments from the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGraph(cmd.Context())
	},
}

func runGraph(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := daemon.New(configFile)
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		d.Stop()
		return fmt.Errorf("failed to start: %w", err)
	}
	return d.Run(ctx)
}
