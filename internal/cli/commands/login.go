package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/staffhub-dev/staffhub/internal/cli/session"
	"github.com/staffhub-dev/staffhub/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd(opts ...Option) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a staffhub server",
		RunE: func(cmd *cobra.Command, args []string) error {
			o := commandOptions(cmd, opts)
			return runLogin(cmd.Context(), o, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set STAFFHUB_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set STAFFHUB_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, o *options, email, password string) error {
	// Environment variables are useful for CI/CD
	email = envOr(email, "STAFFHUB_EMAIL")
	password = envOr(password, "STAFFHUB_PASSWORD")

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or STAFFHUB_EMAIL env var)")
	}

	if err := o.resolve(); err != nil {
		return err
	}

	if password == "" {
		var err error
		password, err = o.readPassword("Password")
		if err != nil {
			return fmt.Errorf("%w (use --password flag or STAFFHUB_PASSWORD env var)", err)
		}
	}

	manager := o.newManager()
	fmt.Fprintf(o.out, "Logging in to %s (%s)...\n", o.server.Alias, o.server.URL)

	if err := checkResult(manager.Login(ctx, email, password), "login failed"); err != nil {
		return err
	}

	restoreLastTenant(ctx, o, manager)

	fmt.Fprintln(o.out, "✓ Login successful!")
	printIdentity(o.out, manager.State())

	return nil
}

// restoreLastTenant switches back into the organization the user last selected on this server.
// Failures are reported but never fail the login.
func restoreLastTenant(ctx context.Context, o *options, manager *session.Manager) {
	lastID, err := userconfig.GetLastTenant(o.server.URL)
	if err != nil || lastID == "" {
		return
	}

	state := manager.State()
	if state.Tenant != nil && state.Tenant.ID == lastID {
		return
	}

	if res := manager.SwitchTenant(ctx, lastID); !res.Success {
		Logger.Debug().Str("tenant_id", lastID).Str("error", res.Error).Msg("Could not restore last organization")
		fmt.Fprintf(o.out, "Warning: could not switch to your last organization: %s\n", res.Error)
		_ = userconfig.SetLastTenant(o.server.URL, "")
	}
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), commandOptions(cmd, opts))
		},
	}
}

func runLogout(ctx context.Context, o *options) error {
	if err := o.resolve(); err != nil {
		return err
	}

	manager := o.newManager()
	// Logout always clears local state, even when the token is already invalid
	manager.Initialize(ctx)
	manager.Logout(ctx)

	fmt.Fprintf(o.out, "✓ Logged out of %s\n", o.server.Alias)
	return nil
}
