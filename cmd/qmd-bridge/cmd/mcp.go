package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/s950329/qmd-bridge/internal/gateway"
	"github.com/s950329/qmd-bridge/internal/indexer"
	"github.com/s950329/qmd-bridge/internal/mcp"
	"github.com/s950329/qmd-bridge/internal/qmd"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

func newMCPCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve one tenant over MCP stdio",
		Long: `Run an MCP server bound to a single tenant's collection, speaking JSON-RPC
over stdio. Search tool calls are scoped to that collection; clients cannot
name a different one.

Stdout carries the protocol exclusively; logs go to the log file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd, label)
		},
	}

	cmd.Flags().StringVar(&label, "tenant", "", "Tenant label to bind the server to (required)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func runMCP(cmd *cobra.Command, label string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	logger := slog.Default()

	registry, err := tenant.NewRegistry(store, logger)
	if err != nil {
		return err
	}
	bound, err := registry.Get(label)
	if err != nil {
		return fmt.Errorf("tenant %q is not registered", label)
	}

	runner := qmd.NewRunner(logger)
	gw := gateway.New(store.Settings, runner, logger)
	scheduler := indexer.New(store.Settings, runner, logger)

	srv, err := mcp.NewServer(gw, scheduler, bound, logger)
	if err != nil {
		return err
	}
	defer func() {
		scheduler.Stop()
		scheduler.Wait()
	}()
	return srv.Serve(cmd.Context())
}
