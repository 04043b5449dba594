package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/staffhub-dev/staffhub/internal/cli/session"
)

// NewProfileCmd creates the profile command. Without flags it prints the profile.
func NewProfileCmd(opts ...Option) *cobra.Command {
	var name, organization, notificationEmail string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Long: `Show or update your profile.

Only the flags you pass are changed. Pass an empty --notification-email
to stop sending notifications to a separate address.

Examples:
  $ staffhub profile
  $ staffhub profile --name "Sanne de Vries"
  $ staffhub profile --notification-email planning@acme.nl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var update session.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("organization") {
				update.OrganizationName = &organization
			}
			if cmd.Flags().Changed("notification-email") {
				update.NotificationEmail = &notificationEmail
			}
			return runProfile(cmd.Context(), commandOptions(cmd, opts), update)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&organization, "organization", "", "Organization name shown on your profile")
	cmd.Flags().StringVar(&notificationEmail, "notification-email", "", "Address for notifications")

	return cmd
}

func runProfile(ctx context.Context, o *options, update session.ProfileUpdate) error {
	a, err := o.requireSession(ctx)
	if err != nil {
		return err
	}

	if update.Name != nil || update.OrganizationName != nil || update.NotificationEmail != nil {
		if err := a.check(a.UpdateProfile(ctx, update), "failed to update profile"); err != nil {
			return err
		}
		fmt.Fprintln(o.out, "✓ Profile updated")
	} else {
		a.RefreshUser(ctx)
		if a.expired {
			return ErrSessionExpired
		}
		if msg := a.State().LastError; msg != "" {
			fmt.Fprintf(o.out, "Warning: showing cached profile: %s\n", msg)
		}
	}

	user := a.State().User
	if user == nil {
		return ErrNotLoggedIn
	}
	fmt.Fprintf(o.out, "  Name: %s\n", user.Name)
	fmt.Fprintf(o.out, "  Email: %s\n", user.Email)
	if user.OrganizationName != "" {
		fmt.Fprintf(o.out, "  Organization: %s\n", user.OrganizationName)
	}
	if user.NotificationEmail != "" {
		fmt.Fprintf(o.out, "  Notification email: %s\n", user.NotificationEmail)
	}
	return nil
}
