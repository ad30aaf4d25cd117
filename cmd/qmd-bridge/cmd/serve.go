package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/s950329/qmd-bridge/internal/auth"
	"github.com/s950329/qmd-bridge/internal/gateway"
	"github.com/s950329/qmd-bridge/internal/indexer"
	"github.com/s950329/qmd-bridge/internal/qmd"
	"github.com/s950329/qmd-bridge/internal/server"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge server",
		Long: `Start the HTTP server in the foreground. It serves authenticated execution
and index-trigger endpoints on the configured host and port, and starts the
configured background indexing strategy for every tenant.

Use 'qmd-bridge daemon start' to run it in the background instead.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore()
	if err != nil {
		return err
	}
	logger := slog.Default()

	registry, err := tenant.NewRegistry(store, logger)
	if err != nil {
		return err
	}

	runner := qmd.NewRunner(logger)
	gw := gateway.New(store.Settings, runner, logger)
	scheduler := indexer.New(store.Settings, runner, logger)
	authn := auth.New(registry, logger)

	if err := scheduler.Start(registry.List()); err != nil {
		return err
	}
	defer func() {
		scheduler.Stop()
		scheduler.Wait()
	}()

	srv := server.New(store.Settings, authn, gw, scheduler, registry, logger)
	return srv.Run(ctx)
}
