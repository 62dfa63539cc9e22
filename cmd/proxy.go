package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/usemiddleman/middleman/metrics"
	"github.com/usemiddleman/middleman/proxy"
)

func proxyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the GraphQL CORS proxy",
		Long: `
Run the CORS proxy in front of the GraphQL indexer.

Browsers send GET or POST requests to /graphql; the proxy forwards them as POST
to the configured upstream and answers with permissive CORS headers for the
allowed origins. Configure it with the PROXY_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: run(func(_ *cobra.Command, rt *runtime, _ []string) error {
			logger := rt.logger
			server := proxy.New(rt.cfg.GetProxyConfig(), rt.cfg.GetIndexerConfig().Timeout, logger)
			metricsServer := metrics.NewServer(rt.cfg, logger)

			go func() {
				if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", slog.String("error", err.Error()))
				}
			}()

			// graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sigChan
				logger.Info("shutting down proxy...")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(ctx); err != nil {
					logger.Error("metrics shutdown failed", slog.String("error", err.Error()))
				}
				if err := server.Shutdown(); err != nil {
					logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
					os.Exit(1)
				}
			}()

			return server.Start()
		}),
	}

	return cmd
}
