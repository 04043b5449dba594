package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/staffhub-dev/staffhub/internal/cli/client"
	"github.com/staffhub-dev/staffhub/internal/cli/userconfig"
)

// NewTenantsCmd creates the tenants command
func NewTenantsCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:     "tenants",
		Aliases: []string{"orgs"},
		Short:   "List the organizations you belong to",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTenants(cmd.Context(), commandOptions(cmd, opts))
		},
	}
}

func runTenants(ctx context.Context, o *options) error {
	a, err := o.requireSession(ctx)
	if err != nil {
		return err
	}

	tenants, res := a.ListTenants(ctx)
	if err := a.check(res, "failed to list organizations"); err != nil {
		return err
	}

	if len(tenants) == 0 {
		fmt.Fprintln(o.out, "You are not a member of any organization.")
		return nil
	}

	currentID := ""
	if t := a.State().Tenant; t != nil {
		currentID = t.ID
	}

	w := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tTYPE\tTIER\tROLE")
	for _, t := range tenants {
		marker := ""
		if t.ID == currentID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", marker, t.ID, t.Name, t.Type, t.SubscriptionTier, t.Role)
	}
	return w.Flush()
}

// NewSwitchTenantCmd creates the switch-tenant command
func NewSwitchTenantCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "switch-tenant [organization-id]",
		Short: "Change the active organization",
		Long: `Change the active organization.

If no id is provided, an interactive prompt will be shown.
The choice is remembered and restored on the next 'staffhub login'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tenantID string
			if len(args) > 0 {
				tenantID = args[0]
			}
			return runSwitchTenant(cmd.Context(), commandOptions(cmd, opts), tenantID)
		},
	}
}

func runSwitchTenant(ctx context.Context, o *options, tenantID string) error {
	a, err := o.requireSession(ctx)
	if err != nil {
		return err
	}

	if tenantID == "" {
		tenants, res := a.ListTenants(ctx)
		if err := a.check(res, "failed to list organizations"); err != nil {
			return err
		}

		var picked *client.Tenant
		if picked, err = o.pickTenant(tenants, tenantIDOf(a.State().Tenant)); err != nil {
			return err
		}
		tenantID = picked.ID
	}

	previousID := tenantIDOf(a.State().Tenant)
	res := a.SwitchTenant(ctx, tenantID)
	tenant := a.State().Tenant
	if !res.Success && !a.expired && previousID != tenantID && tenantIDOf(tenant) == tenantID {
		// The switch went through but the new token only lives in this process
		fmt.Fprintf(o.out, "Warning: %s. Run 'staffhub login' before your next command.\n", res.Error)
	} else if err := a.check(res, "failed to switch organization"); err != nil {
		return err
	}

	if tenant == nil {
		return fmt.Errorf("failed to switch organization: the server did not return one")
	}

	if err := userconfig.SetLastTenant(o.server.URL, tenant.ID); err != nil {
		fmt.Fprintf(o.out, "Warning: failed to remember organization: %v\n", err)
	}

	fmt.Fprintf(o.out, "✓ Switched to %s (%s)\n", tenant.Name, tenant.ID)
	return nil
}
