package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/s950329/qmd-bridge/internal/tenant"
	"github.com/s950329/qmd-bridge/internal/ui"
)

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants and their tokens",
		Long: `Register, inspect, and remove tenants.

Each tenant binds a bearer token to exactly one collection. The token is
printed once at creation (and on rotation) and never stored readable again,
so copy it then.`,
	}
	cmd.AddCommand(newTenantAddCmd())
	cmd.AddCommand(newTenantListCmd())
	cmd.AddCommand(newTenantEditCmd())
	cmd.AddCommand(newTenantRemoveCmd())
	cmd.AddCommand(newTenantRotateCmd())
	return cmd
}

func openRegistry() (*tenant.Registry, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	return tenant.NewRegistry(store, slog.Default())
}

func newTenantAddCmd() *cobra.Command {
	var (
		label       string
		displayName string
		path        string
		collection  string
		noInput     bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new tenant",
		Long: `Register a tenant. With --label and --path the tenant is created directly;
without them an interactive form collects the fields (TTY only).

The generated bearer token is printed exactly once.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if label == "" && path == "" && !noInput && ui.Interactive(os.Stdout) {
				res, err := ui.RunTenantWizard(ui.WizardResult{
					Label:       label,
					DisplayName: displayName,
					Path:        path,
					Collection:  collection,
				}, ui.DetectNoColor())
				if err != nil {
					return err
				}
				if !res.Accepted {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
				label, displayName, path, collection = res.Label, res.DisplayName, res.Path, res.Collection
			}

			reg, err := openRegistry()
			if err != nil {
				return err
			}
			tn, err := reg.Add(tenant.AddParams{
				Label:       label,
				DisplayName: displayName,
				Path:        path,
				Collection:  collection,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tenant %q added (collection %q)\n", tn.Label, tn.Collection)
			fmt.Fprintf(out, "token: %s\n", tn.Token)
			fmt.Fprintln(out, "store this token now; it will not be shown again")
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Tenant label (unique identifier)")
	cmd.Flags().StringVar(&displayName, "name", "", "Human-readable display name")
	cmd.Flags().StringVar(&path, "path", "", "Absolute path to the tenant's document directory")
	cmd.Flags().StringVar(&collection, "collection", "", "Collection name (defaults to label)")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Never prompt; fail if required flags are missing")
	return cmd
}

func newTenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			styles := ui.GetStyles(ui.DetectNoColor() || !ui.IsTTY(os.Stdout))
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderTenantList(reg.List(), styles))
			return nil
		},
	}
}

func newTenantEditCmd() *cobra.Command {
	var (
		newLabel    string
		displayName string
		path        string
		collection  string
	)

	cmd := &cobra.Command{
		Use:   "edit <label>",
		Short: "Update a tenant's fields",
		Long: `Update label, display name, path, or collection. Only flags that are set
change anything. The token is untouched; use 'tenant rotate-token' for that.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}

			var u tenant.Updates
			if cmd.Flags().Changed("label") {
				u.Label = &newLabel
			}
			if cmd.Flags().Changed("name") {
				u.DisplayName = &displayName
			}
			if cmd.Flags().Changed("path") {
				u.Path = &path
			}
			if cmd.Flags().Changed("collection") {
				u.Collection = &collection
			}

			tn, err := reg.Edit(args[0], u)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %q updated\n", tn.Label)
			return nil
		},
	}

	cmd.Flags().StringVar(&newLabel, "label", "", "New label")
	cmd.Flags().StringVar(&displayName, "name", "", "New display name")
	cmd.Flags().StringVar(&path, "path", "", "New document directory path")
	cmd.Flags().StringVar(&collection, "collection", "", "New collection name")
	return cmd
}

func newTenantRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <label>",
		Short: "Remove a tenant",
		Long:  `Remove a tenant. Its token stops authenticating immediately.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			if err := reg.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %q removed\n", args[0])
			return nil
		},
	}
}

func newTenantRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-token <label>",
		Short: "Replace a tenant's bearer token",
		Long: `Generate a fresh token for the tenant. The old token stops working the
moment this command succeeds. The new token is printed exactly once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			token, err := reg.RotateToken(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token rotated for %q\n", args[0])
			fmt.Fprintf(out, "token: %s\n", token)
			fmt.Fprintln(out, "store this token now; it will not be shown again")
			return nil
		},
	}
}
