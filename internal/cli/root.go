package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/staffhub-dev/staffhub/internal/cli/commands"
	"github.com/staffhub-dev/staffhub/internal/logger"
)

var version = "dev" // Will be set during build

var serverAlias string

var rootCmd = &cobra.Command{
	Use:   "staffhub",
	Short: "staffhub - Staffing platform from the command line",
	Long: `staffhub CLI - Sign in to a staffhub server and manage your account.

Tokens are kept in the system keyring. Set STAFFHUB_TOKEN_STORE=file to keep
them in ~/.config/staffhub/credentials.json instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A local .env can carry STAFFHUB_EMAIL and friends
		_ = godotenv.Load(".env")

		level := os.Getenv("STAFFHUB_LOG_LEVEL")
		if level == "" {
			level = "warn"
		}
		commands.Logger = logger.New(os.Stderr, level, "console")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverAlias, "server", "s", "", "Alias of the server to use (overrides select-server)")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "staffhub version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewVerifyEmailCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())
	rootCmd.AddCommand(commands.NewTenantsCmd())
	rootCmd.AddCommand(commands.NewSwitchTenantCmd())
	rootCmd.AddCommand(commands.NewForgotPasswordCmd())
	rootCmd.AddCommand(commands.NewResetPasswordCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, commands.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, commands.SessionExpiredMessage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}
