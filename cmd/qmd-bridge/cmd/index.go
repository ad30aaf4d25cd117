package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/s950329/qmd-bridge/internal/indexer"
	"github.com/s950329/qmd-bridge/internal/qmd"
	"github.com/s950329/qmd-bridge/internal/tenant"
)

func newIndexCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "index [label]",
		Short: "Build a tenant's search index now",
		Long: `Run the index pipeline for one tenant (or all with --all) and wait for it
to finish. This is the manual-strategy entry point; a running server applies
periodic or watch strategies on its own.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("provide a tenant label or --all")
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			logger := slog.Default()
			registry, err := tenant.NewRegistry(store, logger)
			if err != nil {
				return err
			}

			var targets []tenant.Tenant
			if all {
				targets = registry.List()
			} else {
				tn, err := registry.Get(args[0])
				if err != nil {
					return err
				}
				targets = []tenant.Tenant{tn}
			}
			if len(targets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tenants configured")
				return nil
			}

			scheduler := indexer.New(store.Settings, qmd.NewRunner(logger), logger)
			for _, tn := range targets {
				fmt.Fprintf(cmd.OutOrStdout(), "indexing %q (collection %q)\n", tn.Label, tn.Collection)
				scheduler.TriggerIndex(tn)
			}
			scheduler.Wait()
			fmt.Fprintln(cmd.OutOrStdout(), "done")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Index every registered tenant")
	return cmd
}
