// Package cmd provides the CLI commands for qmd-bridge.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/s950329/qmd-bridge/internal/config"
	"github.com/s950329/qmd-bridge/internal/logging"
	"github.com/s950329/qmd-bridge/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the qmd-bridge CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qmd-bridge",
		Short: "Multi-tenant bridge in front of the qmd search tool",
		Long: `qmd-bridge puts an authentication, isolation, and rate-limiting layer in
front of a host-resident qmd executable. Each tenant gets a bearer token bound
to one collection; search requests can never reach another tenant's data.

Run 'qmd-bridge tenant add' to register a project, then 'qmd-bridge serve' to
start the HTTP server or 'qmd-bridge mcp --tenant <label>' for an MCP client.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("qmd-bridge version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: XDG config dir)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.qmd-bridge/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newTenantCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	level := ""
	if debugMode {
		level = "debug"
	}
	cleanup, err := logging.SetupDefault(level)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Debug("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	}
	return nil
}

// openStore opens the settings store honoring the --config flag.
func openStore() (*config.Store, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Open(path)
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
