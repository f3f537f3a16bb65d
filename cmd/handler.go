package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "List the handlers of the running graph",
	Run: func(cmd *cobra.Command, args []string) {
		list, err := newClient().HandlerList(context.Background())
		if err != nil {
			exitWithError("failed to list handlers", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "HANDLER\tMODE")
		for _, h := range list {
			mode := ""
			if h.Readable {
				mode += "r"
			}
			if h.Writable {
				mode += "w"
			}
			fmt.Fprintf(w, "%s\t%s\n", h.Name, mode)
		}
		w.Flush()
	},
}

var readCmd = &cobra.Command{
	Use:   "read <element>.<handler>",
	Short: "Read a handler of the running graph",
	Long: `Read a handler of the running graph.

Examples:
  pktgraph read chk.drops
  pktgraph read paint.config`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newClient().HandlerRead(context.Background(), args[0])
		if err != nil {
			exitWithError(fmt.Sprintf("failed to read %s", args[0]), err)
		}
		fmt.Print(v)
		if !strings.HasSuffix(v, "\n") {
			fmt.Println()
		}
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <element>.<handler> [value...]",
	Short: "Write a handler of the running graph",
	Long: `Write a handler of the running graph. Remaining arguments are joined with
spaces to form the value.

Examples:
  pktgraph write chk.config "10.0.0.255 192.168.1.255"
  pktgraph write print.config "in, 64"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		value := strings.Join(args[1:], " ")
		if err := newClient().HandlerWrite(context.Background(), args[0], value); err != nil {
			exitWithError(fmt.Sprintf("failed to write %s", args[0]), err)
		}
	},
}
