package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/pktgraph/internal/checksum"
	"firestige.xyz/pktgraph/internal/config"
	"firestige.xyz/pktgraph/internal/diag"
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/elements"
	"firestige.xyz/pktgraph/internal/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a graph file",
	Long: `Build a graph file (JSON or YAML) without running any traffic.

Every element is configured, so all argument errors are reported at once.
File format is auto-detected from extension (.json, .yaml, .yml).
Elements that open files at configuration time, such as ToDump, create them.

Examples:
  pktgraph validate -f graph.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

var validateGraphFile string

func init() {
	validateCmd.Flags().StringVarP(&validateGraphFile, "file", "f", "",
		"graph file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidateCommand() {
	cfg, err := config.ParseGraphFile(validateGraphFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	rec := diag.NewRecorder()
	g, err := graph.Build(*cfg, elements.NewRegistry(), element.NewEnv(rec, checksum.ModeFast))
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(os.Stderr, "INVALID: %s\n", line)
		}
		os.Exit(1)
	}
	defer g.Close()

	fmt.Printf("VALID: %d element(s), %d connection(s), entry %s\n",
		len(cfg.Elements), len(cfg.Connections), entryName(cfg))
	for _, ec := range cfg.Elements {
		proc, _ := g.Processing(ec.Name)
		fmt.Printf("  %-16s %-14s %-10s %s\n", ec.Name, ec.Class, proc, config.JoinArgs(ec.Arguments()))
	}
}

func entryName(cfg *config.GraphConfig) string {
	if cfg.Entry != "" {
		return cfg.Entry
	}
	return cfg.Elements[0].Name
}
