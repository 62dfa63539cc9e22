package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/usemiddleman/middleman/types"
)

func floorsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "floors <collection>...",
		Short: "Look up collection floor prices",
		Long: `
Look up floor prices in ustars. Collections whose floor is unknown are shown
with a dash; at most 40 collections are queried per invocation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, rt *runtime, args []string) error {
			ctx, cancel := commandContext(cmd, timeout)
			defer cancel()

			var floors types.FloorMap
			_ = rt.spin("Fetching floors...", func(*spinner.Spinner) error {
				floors = rt.indexer().Floors(ctx, args)
				return nil
			})
			if rt.json {
				return rt.printJSON(floors)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			color.New(color.FgGreen, color.Bold).Fprintln(w, "COLLECTION\tFLOOR")
			for _, addr := range args {
				price := "-"
				if f, ok := floors[addr]; ok {
					price = f.String()
				}
				fmt.Fprintf(w, "%s\t%s\n", addr, price)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout, 0 for none")
	return cmd
}
