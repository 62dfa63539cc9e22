package cmd

import (
	"github.com/spf13/cobra"

	"github.com/usemiddleman/middleman/config"
)

func SetVersion(version, commit string) {
	config.SetBuildInfo(version, commit)
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "middleman",
		Short: "Query the Stargaze indexer and escrow contract behind the middleman swap app",
		Long: `
middleman talks to the Stargaze GraphQL indexer with an adaptive client that
survives schema drift, and to the escrow and cw721 contracts through LCD
endpoints.

Examples:
  middleman tokens stars1... --all
  middleman floors stars1collectionA stars1collectionB
  middleman images stars1collection:12 stars1collection:13
  middleman offers sender stars1...
  middleman proxy`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")

	cmd.AddCommand(tokensCmd())
	cmd.AddCommand(collectionsCmd())
	cmd.AddCommand(floorsCmd())
	cmd.AddCommand(imagesCmd())
	cmd.AddCommand(detailsCmd())
	cmd.AddCommand(mediaCmd())
	cmd.AddCommand(offersCmd())
	cmd.AddCommand(paramsCmd())
	cmd.AddCommand(proxyCmd())

	return cmd
}
