// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/pktgraph/internal/control"
)

var (
	// Global flags
	configFile string
	socketPath string
	timeout    time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pktgraph",
	Short: "pktgraph - packet processing graph runner",
	Long: `pktgraph runs packets from a capture file or a generator through a graph of
elements such as CheckIPHeader, Paint and Print.

While a graph runs, element handlers can be read and written through a
local control socket.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/pktgraph/config.yml",
		"config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/var/run/pktgraph.sock",
		"control socket path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"control request timeout")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(classesCmd)
	rootCmd.AddCommand(handlersCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(statsCmd)
}

func newClient() *control.Client {
	return control.NewClient(socketPath, timeout)
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
