package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/staffhub-dev/staffhub/internal/cli/auth"
	"github.com/staffhub-dev/staffhub/internal/cli/client"
	"github.com/staffhub-dev/staffhub/internal/cli/config"
	"github.com/staffhub-dev/staffhub/internal/cli/serverselect"
	"github.com/staffhub-dev/staffhub/internal/cli/session"
)

var (
	// ErrSessionExpired is returned when the server rejected the stored token during a command
	ErrSessionExpired = errors.New("session expired")
	// ErrNotLoggedIn is returned when no token is stored for the server
	ErrNotLoggedIn = errors.New("not logged in. Run 'staffhub login' first")
)

// SessionExpiredMessage is what the user sees when a command hit ErrSessionExpired
const SessionExpiredMessage = "Session expired. Run 'staffhub login' to sign in again."

// Logger is used by commands for diagnostics on stderr; the root command replaces it
var Logger = zerolog.Nop()

type options struct {
	api          session.API
	server       *config.Server
	serverAlias  string
	store        auth.TokenStore
	out          io.Writer
	readPassword func(label string) (string, error)
	pickTenant   func(tenants []client.Tenant, currentID string) (*client.Tenant, error)
}

// Option configures a command run. Tests use them to inject fakes.
type Option func(*options)

// WithClient replaces the HTTP API client
func WithClient(api session.API) Option {
	return func(o *options) { o.api = api }
}

// WithServer skips config discovery and uses server
func WithServer(server *config.Server) Option {
	return func(o *options) { o.server = server }
}

// WithServerAlias selects a server from the project config by alias
func WithServerAlias(alias string) Option {
	return func(o *options) { o.serverAlias = alias }
}

// WithStore replaces the token store
func WithStore(store auth.TokenStore) Option {
	return func(o *options) { o.store = store }
}

// WithOutput redirects command output
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithPasswordPrompt replaces the terminal password prompt
func WithPasswordPrompt(fn func(label string) (string, error)) Option {
	return func(o *options) { o.readPassword = fn }
}

// WithTenantPicker replaces the interactive organization picker
func WithTenantPicker(fn func(tenants []client.Tenant, currentID string) (*client.Tenant, error)) Option {
	return func(o *options) { o.pickTenant = fn }
}

func applyOptions(opts []Option) *options {
	o := &options{
		out:          os.Stdout,
		readPassword: terminalPassword,
		pickTenant:   serverselect.PromptTenantSelection,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// resolve fills in the server, client and store that were not injected
func (o *options) resolve() error {
	if o.server == nil {
		server, err := getSelectedServer(o.serverAlias)
		if err != nil {
			return err
		}
		o.server = server
	}

	if o.api == nil {
		apiClient := client.New(o.server.URL, o.server.Insecure)
		apiClient.SetLogger(Logger)
		o.api = apiClient
	}

	if o.store == nil {
		o.store = auth.Default()
	}

	return nil
}

func (o *options) newManager() *session.Manager {
	return session.New(o.api, auth.Scoped(o.store, o.server.URL), Logger)
}

// getSelectedServer loads the config and returns the selected server.
// If you need the config object itself, call config.LoadFromCurrentDir() separately.
func getSelectedServer(alias string) (*config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'staffhub init <url>' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, alias)
	if err != nil {
		return nil, err
	}

	if err := server.Validate(); err != nil {
		return nil, err
	}

	return server, nil
}

// authenticated is a signed-in manager plus a flag set when the server rejects the session mid-command
type authenticated struct {
	*session.Manager
	expired bool
}

// requireSession restores the stored session or explains why there is none
func (o *options) requireSession(ctx context.Context) (*authenticated, error) {
	if err := o.resolve(); err != nil {
		return nil, err
	}

	a := &authenticated{Manager: o.newManager()}
	a.OnAuthRejected(func() { a.expired = true })
	a.Subscribe(func(s session.State) {
		Logger.Debug().Int("phase", int(s.Phase)).Bool("signed_in", s.User != nil).Str("tenant", tenantIDOf(s.Tenant)).Msg("Session changed")
	})

	switch a.Initialize(ctx) {
	case session.InitAuthenticated:
		return a, nil
	case session.InitTransientFailure:
		return nil, fmt.Errorf("could not verify your session: %s", a.State().LastError)
	default:
		if a.expired {
			return nil, ErrSessionExpired
		}
		return nil, ErrNotLoggedIn
	}
}

// check turns a failed Result into an error, mapping rejection to ErrSessionExpired
func (a *authenticated) check(res session.Result, action string) error {
	if res.Success {
		return nil
	}
	if a.expired || res.Kind == client.KindAuthRejected {
		return ErrSessionExpired
	}
	return fmt.Errorf("%s: %s", action, res.Error)
}

func tenantIDOf(t *session.Tenant) string {
	if t == nil {
		return ""
	}
	return t.ID
}

func checkResult(res session.Result, action string) error {
	if res.Success {
		return nil
	}
	return fmt.Errorf("%s: %s", action, res.Error)
}

// terminalPassword reads a password without echo; piped stdin is refused
func terminalPassword(label string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%s is required in non-interactive mode", label)
	}

	fmt.Printf("%s: ", label)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func printIdentity(w io.Writer, s session.State) {
	if s.User == nil {
		fmt.Fprintln(w, "Not logged in")
		return
	}

	fmt.Fprintf(w, "  User: %s (%s)\n", s.User.Name, s.User.Email)
	if s.User.UserType != "" {
		fmt.Fprintf(w, "  Type: %s\n", s.User.UserType)
	}
	if s.User.IsAdmin {
		fmt.Fprintln(w, "  Role: Admin")
	}
	if s.Tenant != nil {
		fmt.Fprintf(w, "  Organization: %s (%s, %s)\n", s.Tenant.Name, s.Tenant.ID, s.Tenant.SubscriptionTier)
	} else {
		fmt.Fprintln(w, "  Organization: none selected")
	}
}

// envOr returns value, or the environment variable when value is empty
func envOr(value, env string) string {
	if value == "" {
		return os.Getenv(env)
	}
	return value
}

// commandOptions applies the root --server flag, then the injected options
func commandOptions(cmd *cobra.Command, opts []Option) *options {
	all := make([]Option, 0, len(opts)+2)
	all = append(all, WithOutput(cmd.OutOrStdout()))
	if flag := cmd.Flag("server"); flag != nil && flag.Value.String() != "" {
		all = append(all, WithServerAlias(flag.Value.String()))
	}
	return applyOptions(append(all, opts...))
}
