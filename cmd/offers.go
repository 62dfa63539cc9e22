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

func offersCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:       "offers <sender|peer> <address>",
		Short:     "List escrow offers sent by or addressed to an account",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"sender", "peer"},
		RunE: run(func(cmd *cobra.Command, rt *runtime, args []string) error {
			ctx, cancel := commandContext(cmd, timeout)
			defer cancel()
			q := rt.chain()

			var resp *types.OffersResponse
			err := rt.spin("Fetching offers...", func(*spinner.Spinner) error {
				var err error
				switch args[0] {
				case "sender":
					resp, err = q.OffersBySender(ctx, args[1])
				case "peer":
					resp, err = q.OffersByPeer(ctx, args[1])
				default:
					err = types.NewInvalidValueError("direction", args[0], "expected sender or peer")
				}
				return err
			})
			if err != nil {
				return err
			}
			if rt.json {
				return rt.printJSON(resp)
			}
			if len(resp.Offers) == 0 {
				fmt.Println("\nNo offers found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			color.New(color.FgGreen, color.Bold).Fprintln(w, "ID\tSENDER\tPEER\tOFFERED\tWANTED\tFUNDS\tEXPIRES")
			for _, o := range resp.Offers {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
					o.ID, o.Sender, o.Peer, len(o.OfferedNfts), len(o.WantedNfts), formatCoins(o.OfferedFunds), o.ExpiresAt)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall timeout, 0 for none")
	return cmd
}

func paramsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show escrow contract parameters",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, rt *runtime, _ []string) error {
			var resp *types.ParamsResponse
			err := rt.spin("Fetching params...", func(*spinner.Spinner) error {
				var err error
				resp, err = rt.chain().Params(cmd.Context())
				return err
			})
			if err != nil {
				return err
			}
			if rt.json {
				return rt.printJSON(resp)
			}

			p := resp.Params
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintf(w, "maintainer\t%s\n", p.Maintainer)
			fmt.Fprintf(w, "max offers\t%d\n", p.MaxOffers)
			fmt.Fprintf(w, "bundle limit\t%d\n", p.BundleLimit)
			fmt.Fprintf(w, "offer expiry\t%d..%d\n", p.OfferExpiry.Min, p.OfferExpiry.Max)
			return w.Flush()
		}),
	}
	return cmd
}

func formatCoins(coins []types.Coin) string {
	if len(coins) == 0 {
		return "-"
	}
	out := ""
	for i, c := range coins {
		if i > 0 {
			out += ","
		}
		out += c.Amount + c.Denom
	}
	return out
}
