package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(opts ...Option) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and active organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), commandOptions(cmd, opts), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the identity as JSON")

	return cmd
}

func runWhoami(ctx context.Context, o *options, asJSON bool) error {
	a, err := o.requireSession(ctx)
	if err != nil {
		return err
	}

	state := a.State()
	if asJSON {
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"server": o.server.URL,
			"user":   state.User,
			"tenant": state.Tenant,
		})
	}

	fmt.Fprintf(o.out, "Signed in to %s (%s)\n", o.server.Alias, o.server.URL)
	printIdentity(o.out, state)
	return nil
}
