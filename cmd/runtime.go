package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/usemiddleman/middleman/chain"
	"github.com/usemiddleman/middleman/config"
	"github.com/usemiddleman/middleman/graphql"
	"github.com/usemiddleman/middleman/indexer"
	"github.com/usemiddleman/middleman/log"
	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/sentry_integration"
	"github.com/usemiddleman/middleman/types"
)

// runtime bundles what every subcommand needs.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	json   bool
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	logger := log.NewLogger(cfg)

	metrics.Init(cfg.GetChainId())
	if err := sentry_integration.Init(cfg.GetSentryConfig()); err != nil {
		logger.Warn("sentry disabled", slog.String("error", err.Error()))
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	return &runtime{cfg: cfg, logger: logger, json: jsonOut}, nil
}

func (r *runtime) close() {
	sentry_integration.Flush()
}

func (r *runtime) indexer() *indexer.Client {
	transport := graphql.NewClient(r.cfg.GetIndexerConfig(), r.logger)
	return indexer.NewClient(transport, r.cfg.GetCacheConfig(), r.logger)
}

func (r *runtime) chain() *chain.Querier {
	return chain.NewQuerier(r.cfg.GetChainConfig(), r.cfg.GetCacheConfig(), r.cfg.GetMaxConcurrentRequests(), r.logger)
}

// spin runs fn behind a spinner unless JSON output was requested.
func (r *runtime) spin(suffix string, fn func(s *spinner.Spinner) error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	if !r.json {
		s.Suffix = " " + suffix
		s.Start()
	}
	err := fn(s)
	if !r.json {
		s.Stop()
	}
	return err
}

func (r *runtime) printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printWarning(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format+"\n", args...)
}

func printError(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "\nError: %v\n\n", err)
}

func parseKeys(args []string) ([]types.EntityKey, error) {
	keys := make([]types.EntityKey, 0, len(args))
	for _, a := range args {
		k, err := types.ParseEntityKey(a)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// commandContext cancels on timeout when one is given.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

// run wraps a subcommand body with runtime setup and error printing.
func run(fn func(cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			printError(err)
			return err
		}
		defer rt.close()

		tx, ctx := sentry_integration.StartSentryTransaction(cmd.Context(), "cli", cmd.CommandPath())
		defer tx.Finish()
		cmd.SetContext(ctx)

		if err := fn(cmd, rt, args); err != nil {
			printError(err)
			return err
		}
		return nil
	}
}
