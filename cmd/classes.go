package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/pktgraph/internal/elements"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the built-in element classes",
	Run: func(cmd *cobra.Command, args []string) {
		for _, class := range elements.NewRegistry().Classes() {
			fmt.Println(class)
		}
	},
}
