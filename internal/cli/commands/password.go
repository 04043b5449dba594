package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewForgotPasswordCmd creates the forgot-password command
func NewForgotPasswordCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForgotPassword(cmd.Context(), commandOptions(cmd, opts), args[0])
		},
	}
}

func runForgotPassword(ctx context.Context, o *options, email string) error {
	if err := o.resolve(); err != nil {
		return err
	}

	if err := checkResult(o.newManager().ForgotPassword(ctx, email), "password reset request failed"); err != nil {
		return err
	}

	// The server answers the same way for unknown addresses
	fmt.Fprintln(o.out, "✓ If an account exists for that address, a reset link is on its way.")
	fmt.Fprintln(o.out, "Run 'staffhub reset-password <token>' with the token from the link.")
	return nil
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd(opts ...Option) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password using the token from a reset mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPassword(cmd.Context(), commandOptions(cmd, opts), args[0], password)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (will prompt if not provided)")

	return cmd
}

func runResetPassword(ctx context.Context, o *options, resetToken, password string) error {
	if err := o.resolve(); err != nil {
		return err
	}

	if password == "" {
		var err error
		if password, err = o.readPassword("New password"); err != nil {
			return fmt.Errorf("%w (use --password flag)", err)
		}
		confirm, err := o.readPassword("Repeat new password")
		if err != nil {
			return err
		}
		if confirm != password {
			return fmt.Errorf("passwords do not match")
		}
	}

	if err := checkResult(o.newManager().ResetPassword(ctx, resetToken, password), "password reset failed"); err != nil {
		return err
	}

	fmt.Fprintln(o.out, "✓ Password updated. Run 'staffhub login' to sign in.")
	return nil
}

// NewVerifyEmailCmd creates the verify-email command
func NewVerifyEmailCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Activate an account using the token from the verification mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerifyEmail(cmd.Context(), commandOptions(cmd, opts), args[0])
		},
	}
}

func runVerifyEmail(ctx context.Context, o *options, verifyToken string) error {
	if err := o.resolve(); err != nil {
		return err
	}

	if err := checkResult(o.newManager().VerifyEmail(ctx, verifyToken), "verification failed"); err != nil {
		return err
	}

	fmt.Fprintln(o.out, "✓ Email verified. Run 'staffhub login' to sign in.")
	return nil
}
