package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/usemiddleman/middleman/types"
)

func imagesCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "images <collection:tokenId>...",
		Short: "Resolve token images through batched indexer queries",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, rt *runtime, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, timeout)
			defer cancel()

			var images map[string]*string
			err = rt.spin("Fetching images...", func(*spinner.Spinner) error {
				var err error
				images, err = rt.indexer().TokenImages(ctx, keys)
				return err
			})
			if err := partial(err); err != nil {
				return err
			}
			if rt.json {
				return rt.printJSON(images)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			color.New(color.FgGreen, color.Bold).Fprintln(w, "TOKEN\tIMAGE")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, deref(images[k.String()]))
			}
			return w.Flush()
		}),
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout, 0 for none")
	return cmd
}

func detailsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "details <collection:tokenId>...",
		Short: "Fetch token descriptions and traits",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, rt *runtime, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, timeout)
			defer cancel()

			var details map[string]*types.TokenDetails
			err = rt.spin("Fetching details...", func(*spinner.Spinner) error {
				var err error
				details, err = rt.indexer().TokenDetails(ctx, keys)
				return err
			})
			if err := partial(err); err != nil {
				return err
			}
			if rt.json {
				return rt.printJSON(details)
			}

			bold := color.New(color.Bold)
			for _, k := range keys {
				bold.Println(k.String())
				d := details[k.String()]
				if d == nil {
					fmt.Println("  unavailable")
					continue
				}
				fmt.Printf("  %s\n", strings.TrimSpace(deref(d.Description)))
				for _, t := range d.Traits {
					line := fmt.Sprintf("  - %s: %s", t.Name, t.Value)
					if t.RarityPercent != nil {
						line += fmt.Sprintf(" (%.2f%%)", *t.RarityPercent)
					}
					fmt.Println(line)
				}
			}
			return nil
		}),
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout, 0 for none")
	return cmd
}

// partial downgrades a partial batch failure to a warning.
func partial(err error) error {
	var pbf *types.PartialBatchFailure
	if errors.As(err, &pbf) {
		printWarning("%v: %s", pbf, strings.Join(pbf.Failed, ", "))
		return nil
	}
	return err
}
