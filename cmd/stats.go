package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show runtime statistics",
	Long:  `Query the running graph for per-element packet counters and runner totals.`,
	Run: func(cmd *cobra.Command, args []string) {
		runStatsCommand()
	},
}

func runStatsCommand() {
	stats, err := newClient().GraphStats(context.Background())
	if err != nil {
		exitWithError("failed to query stats", err)
	}

	resultJSON, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		exitWithError("failed to format result", err)
	}
	fmt.Println(string(resultJSON))
}
