package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/staffhub-dev/staffhub/internal/cli/session"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(opts ...Option) *cobra.Command {
	var data session.RegisterData

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a staffhub account",
		Long: `Create a staffhub account.

The role decides what kind of account is created:
  BEDRIJF  a company hiring staff
  BUREAU   a staffing agency
  ZZP      a freelancer

A verification mail is sent to the address. Run 'staffhub verify-email <token>'
with the token from the link, then 'staffhub login'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data.Role = strings.ToUpper(strings.TrimSpace(data.Role))
			return runRegister(cmd.Context(), commandOptions(cmd, opts), data)
		},
	}

	cmd.Flags().StringVar(&data.Name, "name", "", "Your full name")
	cmd.Flags().StringVar(&data.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&data.Password, "password", "", "Password, at least 8 characters (will prompt if not provided)")
	cmd.Flags().StringVar(&data.OrganizationName, "organization", "", "Organization name")
	cmd.Flags().StringVar(&data.Role, "role", "", "Account type: BEDRIJF, BUREAU or ZZP")

	return cmd
}

func runRegister(ctx context.Context, o *options, data session.RegisterData) error {
	if err := o.resolve(); err != nil {
		return err
	}

	if data.Password == "" {
		password, err := o.readPassword("Password")
		if err != nil {
			return fmt.Errorf("%w (use --password flag)", err)
		}
		data.Password = password
	}

	manager := o.newManager()
	if err := checkResult(manager.Register(ctx, data), "registration failed"); err != nil {
		return err
	}

	fmt.Fprintf(o.out, "✓ Account created for %s\n", strings.TrimSpace(data.Email))
	fmt.Fprintln(o.out, "Check your inbox and run 'staffhub verify-email <token>' to activate it.")
	return nil
}
