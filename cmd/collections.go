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

func collectionsCmd() *cobra.Command {
	var (
		all      bool
		owner    string
		cursor   string
		limit    int
		maxTotal int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List collections known to the indexer",
		Long: `
List collections known to the indexer. With --owner only the addresses of
collections held by that owner are printed.`,
		Args: cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, rt *runtime, _ []string) error {
			ctx, cancel := commandContext(cmd, timeout)
			defer cancel()
			client := rt.indexer()

			if owner != "" {
				var addrs []string
				_ = rt.spin("Fetching owned collections...", func(*spinner.Spinner) error {
					addrs = client.OwnedCollections(ctx, owner)
					return nil
				})
				if rt.json {
					return rt.printJSON(addrs)
				}
				for _, a := range addrs {
					fmt.Println(a)
				}
				return nil
			}

			if !all {
				var page indexer.Page[types.IndexedCollection]
				err := rt.spin("Fetching collections...", func(*spinner.Spinner) error {
					var err error
					page, err = client.CollectionsPage(ctx, cursor, limit)
					return err
				})
				if err != nil {
					return err
				}
				if rt.json {
					return rt.printJSON(page)
				}
				printCollections(page.Entities)
				printVariant(page.Variant)
				if page.NextCursor != "" {
					fmt.Printf("next cursor: %s\n", page.NextCursor)
				}
				return nil
			}

			var collections []types.IndexedCollection
			fetchErr := rt.spin("Fetching all collections...", func(*spinner.Spinner) error {
				var err error
				collections, err = client.AllCollections(ctx, maxTotal)
				return err
			})
			if fetchErr != nil && len(collections) == 0 {
				return fetchErr
			}
			if rt.json {
				if err := rt.printJSON(collections); err != nil {
					return err
				}
			} else {
				printCollections(collections)
				printVariant(client.ActiveVariants()[indexer.OperationCollections])
			}
			if fetchErr != nil {
				printWarning("partial result: %v", fetchErr)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page")
	cmd.Flags().StringVar(&owner, "owner", "", "Only list collections held by this address")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor returned by a previous page")
	cmd.Flags().IntVar(&limit, "limit", types.DefaultCollectionPageSize, "Page size")
	cmd.Flags().IntVar(&maxTotal, "max", types.DefaultCollectionMaxTotal, "Maximum number of collections with --all")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout, 0 for none")

	return cmd
}

func printCollections(collections []types.IndexedCollection) {
	if len(collections) == 0 {
		fmt.Println("\nNo collections found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	color.New(color.FgGreen, color.Bold).Fprintln(w, "COLLECTION\tNAME\tMINTED")
	for _, c := range collections {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.CollectionAddr, deref(c.Name), deref(c.MintedAt))
	}
	_ = w.Flush()
	fmt.Printf("\n%d collections\n", len(collections))
}
