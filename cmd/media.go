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

func mediaCmd() *cobra.Command {
	var (
		concurrency int
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "media <collection:tokenId>...",
		Short: "Resolve token media directly from the chain",
		Long: `
Resolve token images from cw721 nft_info and the token metadata URI, without
the indexer. Tokens that fail to resolve are reported with their error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: run(func(cmd *cobra.Command, rt *runtime, args []string) error {
			keys, err := parseKeys(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = rt.cfg.GetMediaConcurrency()
			}
			ctx, cancel := commandContext(cmd, timeout)
			defer cancel()

			var media map[string]types.ResolvedMedia
			err = rt.spin("Resolving media...", func(s *spinner.Spinner) error {
				var err error
				media, err = rt.chain().BatchResolveMedia(ctx, keys, concurrency, func(done, total int) {
					s.Lock()
					s.Suffix = fmt.Sprintf(" Resolving media... %d/%d", done, total)
					s.Unlock()
				})
				return err
			})
			if err != nil {
				return err
			}
			if rt.json {
				return rt.printJSON(media)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			color.New(color.FgGreen, color.Bold).Fprintln(w, "TOKEN\tIMAGE\tTOKEN URI")
			for _, k := range keys {
				m := media[k.String()]
				image := deref(m.Image)
				if m.Error != "" {
					image = color.RedString(m.Error)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", k, image, deref(m.RawTokenURI))
			}
			return w.Flush()
		}),
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", types.DefaultMediaConcurrency, "Parallel lookups (max 6)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout, 0 for none")
	return cmd
}
