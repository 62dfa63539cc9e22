package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/usemiddleman/middleman/indexer"
	"github.com/usemiddleman/middleman/types"
)

func tokensCmd() *cobra.Command {
	var (
		all      bool
		cursor   string
		limit    int
		maxTotal int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tokens <owner>",
		Short: "List NFTs owned by an address",
		Long: `
List NFTs owned by an address through the adaptive indexer client.

Without --all a single page is printed together with the cursor of the next
page. With --all every page is fetched up to --max tokens; when a page fails
the tokens collected so far are still printed.`,
		Args: cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, rt *runtime, args []string) error {
			ctx, cancel := commandContext(cmd, timeout)
			defer cancel()
			client := rt.indexer()
			owner := args[0]

			if !all {
				var page indexer.Page[types.IndexedToken]
				err := rt.spin("Fetching tokens...", func(*spinner.Spinner) error {
					var err error
					page, err = client.OwnedTokensPage(ctx, owner, cursor, limit)
					return err
				})
				if err != nil {
					return err
				}
				if rt.json {
					return rt.printJSON(page)
				}
				printTokens(page.Entities)
				printVariant(page.Variant)
				if page.NextCursor != "" {
					fmt.Printf("next cursor: %s\n", page.NextCursor)
				}
				return nil
			}

			var tokens []types.IndexedToken
			fetchErr := rt.spin("Fetching all tokens...", func(*spinner.Spinner) error {
				var err error
				tokens, err = client.OwnedTokens(ctx, owner, maxTotal)
				return err
			})
			if fetchErr != nil && len(tokens) == 0 {
				return fetchErr
			}
			if rt.json {
				if err := rt.printJSON(tokens); err != nil {
					return err
				}
			} else {
				printTokens(tokens)
				printVariant(client.ActiveVariants()[indexer.OperationOwnedTokens])
			}
			if fetchErr != nil {
				printWarning("partial result: %v", fetchErr)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor returned by a previous page")
	cmd.Flags().IntVar(&limit, "limit", types.DefaultOwnedPageSize, "Page size")
	cmd.Flags().IntVar(&maxTotal, "max", types.DefaultOwnedMaxTotal, "Maximum number of tokens with --all")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout, 0 for none")

	return cmd
}

func printTokens(tokens []types.IndexedToken) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	color.New(color.FgGreen, color.Bold).Fprintln(w, "COLLECTION\tTOKEN\tNAME\tIMAGE")
	for _, t := range tokens {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.CollectionAddr, t.TokenID, deref(t.Name), deref(t.Image))
	}
	_ = w.Flush()
	fmt.Printf("\n%d tokens\n", len(tokens))
}

func printVariant(name string) {
	if name == "" {
		return
	}
	color.Cyan("variant: %s", name)
}
