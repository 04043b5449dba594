// Package session owns the signed-in identity, the active organization and the bearer token
// for one server. Every protected command reads identity through a Manager.
//
// Operations never return Go errors. Failures come back as a Result carrying a message that is
// safe to print. A 401 on any authenticated call resets the session and wipes the stored token.
//
// The manager's lock is never held across a network call. Token store writes happen under it, in the
// same step as the in-memory change. Concurrent mutating calls resolve last-writer-wins; a response
// that belongs to an identity that has since logged out is dropped.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/staffhub-dev/staffhub/internal/assert"
	"github.com/staffhub-dev/staffhub/internal/cli/auth"
	"github.com/staffhub-dev/staffhub/internal/cli/client"
)

const (
	genericError  = "Something went wrong, please try again"
	unsavedSwitch = "Switched organization, but the new session could not be saved on this machine"
)

type (
	User   = client.User
	Tenant = client.Tenant
)

// API is the identity backend the manager talks to. *client.Client implements it.
type API interface {
	Me(ctx context.Context, token string) (*client.Identity, error)
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Register(ctx context.Context, req client.RegisterRequest) error
	Logout(ctx context.Context, token string) error
	SwitchTenant(ctx context.Context, token, tenantID string) (*client.SwitchTenantResponse, error)
	UpdateProfile(ctx context.Context, token string, update client.ProfileUpdate) (*client.User, error)
	ListTenants(ctx context.Context, token string) ([]client.Tenant, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error
	VerifyEmail(ctx context.Context, verifyToken string) error
}

// Phase is the coarse session state
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// State is a snapshot of the session. Token is empty exactly when User is nil,
// and Tenant is nil whenever User is nil.
type State struct {
	User      *User
	Tenant    *Tenant
	Token     string
	IsLoading bool
	LastError string
	Phase     Phase
}

// Result reports the outcome of an operation
type Result struct {
	Success bool
	Error   string
	Kind    client.Kind
}

var succeeded = Result{Success: true}

// InitResult is the outcome of Initialize
type InitResult int

const (
	InitAnonymous InitResult = iota
	InitAuthenticated
	// InitTransientFailure means the identity check failed for a reason other than rejection.
	// The stored token was kept and a later Initialize may succeed.
	InitTransientFailure
)

func (r InitResult) String() string {
	switch r {
	case InitAnonymous:
		return "anonymous"
	case InitAuthenticated:
		return "authenticated"
	case InitTransientFailure:
		return "transient_failure"
	}
	return "unknown"
}

// Manager is the session for one server
type Manager struct {
	api    API
	store  auth.Token
	logger zerolog.Logger

	mu          sync.Mutex
	user        *User
	tenant      *Tenant
	token       string
	isLoading   bool
	lastError   string
	initialized bool
	// epoch changes whenever the signed-in identity changes; responses from an older epoch are dropped
	epoch uint64

	observers      map[int]func(State)
	nextObserver   int
	onAuthRejected []func()
}

// New creates a manager in the Initializing phase
func New(api API, store auth.Token, logger zerolog.Logger) *Manager {
	return &Manager{
		api:       api,
		store:     store,
		logger:    logger,
		isLoading: true,
		observers: map[int]func(State){},
	}
}

// State returns a copy of the current session
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to be called with the new state after every committed change
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// OnAuthRejected registers fn to run whenever the server rejects the current token
func (m *Manager) OnAuthRejected(fn func()) {
	m.mu.Lock()
	m.onAuthRejected = append(m.onAuthRejected, fn)
	m.mu.Unlock()
}

// Initialize restores the session from the stored token
func (m *Manager) Initialize(ctx context.Context) InitResult {
	_, epoch, _ := m.current()
	token, err := m.store.Load()
	if err != nil || token == "" {
		if err != nil && !errors.Is(err, auth.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("Failed to read stored token")
			m.commit(func() bool {
				m.finishInitLocked()
				m.lastError = "Could not read the stored session"
				return true
			})
			return InitTransientFailure
		}

		m.commit(func() bool {
			m.finishInitLocked()
			return true
		})
		return InitAnonymous
	}

	identity, err := m.api.Me(ctx, token)
	if err == nil && (identity == nil || identity.User == nil) {
		err = client.NewError(client.KindRequestFailed, genericError)
	}
	if err != nil {
		if client.IsAuthRejected(err) {
			m.logger.Debug().Err(err).Msg("Stored token rejected")
			reset := false
			m.commit(func() bool {
				// A login that finished meanwhile owns both memory and storage
				if m.epoch == epoch {
					m.deleteStoredLocked("Failed to delete rejected token")
					m.clearLocked()
					reset = true
				}
				m.finishInitLocked()
				return true
			})
			if reset {
				m.fireAuthRejected()
			}
			return InitAnonymous
		}

		m.logger.Warn().Err(err).Msg("Identity check failed, keeping stored token")
		m.commit(func() bool {
			if m.epoch == epoch {
				m.clearLocked()
			}
			m.finishInitLocked()
			m.lastError = message(err)
			return true
		})
		return InitTransientFailure
	}

	m.commit(func() bool {
		if m.epoch != epoch {
			m.finishInitLocked()
			return true
		}
		m.epoch++
		m.user = cloneUser(identity.User)
		m.tenant = cloneTenant(identity.Tenant)
		m.token = token
		m.lastError = ""
		m.finishInitLocked()
		return true
	})
	return InitAuthenticated
}

// Login authenticates and stores the new token. On failure the session is untouched.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	if res, invalid := validate(credential{Email: email, Password: password}); invalid {
		return res
	}

	resp, err := m.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return failure(err)
	}
	if resp == nil || resp.Token == "" || resp.User == nil {
		return Result{Error: genericError, Kind: client.KindRequestFailed}
	}

	var saveErr error
	m.commit(func() bool {
		// Storage and memory change together so a concurrent logout sees both or neither
		if saveErr = m.store.Save(resp.Token); saveErr != nil {
			return false
		}
		m.epoch++
		m.user = cloneUser(resp.User)
		m.tenant = cloneTenant(resp.Tenant)
		m.token = resp.Token
		m.lastError = ""
		m.finishInitLocked()
		return true
	})
	if saveErr != nil {
		m.logger.Error().Err(saveErr).Msg("Failed to store token")
		return Result{Error: "Signed in, but the session could not be saved on this machine", Kind: client.KindRequestFailed}
	}
	return succeeded
}

// Register creates an account. It never signs the caller in.
func (m *Manager) Register(ctx context.Context, data RegisterData) Result {
	if res, invalid := validate(data); invalid {
		return res
	}

	err := m.api.Register(ctx, client.RegisterRequest{
		Name:             strings.TrimSpace(data.Name),
		Email:            strings.TrimSpace(data.Email),
		Password:         data.Password,
		OrganizationName: strings.TrimSpace(data.OrganizationName),
		Role:             data.Role,
	})
	if err != nil {
		return failure(err)
	}
	return succeeded
}

// Logout tells the server if it can, then clears the session and the stored token regardless
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to notify server of logout")
		}
	}

	m.commit(func() bool {
		m.deleteStoredLocked("Failed to delete stored token")
		m.clearLocked()
		m.lastError = ""
		m.finishInitLocked()
		return true
	})
}

// RefreshUser re-reads the identity. Non-auth failures are logged and the current data kept.
func (m *Manager) RefreshUser(ctx context.Context) {
	token, epoch, authenticated := m.current()
	if !authenticated {
		return
	}

	identity, err := m.api.Me(ctx, token)
	if err == nil && (identity == nil || identity.User == nil) {
		err = client.NewError(client.KindRequestFailed, genericError)
	}
	if err != nil {
		if m.rejected(token, err) {
			return
		}
		m.logger.Warn().Err(err).Msg("Failed to refresh identity")
		m.commit(func() bool {
			m.lastError = message(err)
			return true
		})
		return
	}

	m.commit(func() bool {
		if m.epoch != epoch {
			return false
		}
		m.user = cloneUser(identity.User)
		m.tenant = cloneTenant(identity.Tenant)
		m.lastError = ""
		return true
	})
}

// SwitchTenant re-scopes the session to tenantID
func (m *Manager) SwitchTenant(ctx context.Context, tenantID string) Result {
	if strings.TrimSpace(tenantID) == "" {
		return Result{Error: "tenant id is required", Kind: client.KindValidation}
	}

	token, epoch, authenticated := m.current()
	if !authenticated {
		return notSignedIn()
	}

	resp, err := m.api.SwitchTenant(ctx, token, tenantID)
	if err != nil {
		m.rejected(token, err)
		return failure(err)
	}

	var (
		applied bool
		saveErr error
	)
	m.commit(func() bool {
		if m.epoch != epoch || m.user == nil {
			return false
		}
		m.tenant = cloneTenant(resp.Tenant)
		if resp.Token != "" {
			m.token = resp.Token
			// The server revoked the old token, so it must not stay on disk
			if saveErr = m.store.Save(resp.Token); saveErr != nil {
				m.deleteStoredLocked("Failed to delete superseded token")
				m.lastError = unsavedSwitch
			}
		}
		applied = true
		return true
	})

	switch {
	case !applied:
		return superseded("organization switch")
	case saveErr != nil:
		m.logger.Warn().Err(saveErr).Msg("Failed to store re-scoped token")
		return Result{Error: unsavedSwitch, Kind: client.KindRequestFailed}
	}
	return succeeded
}

// UpdateProfile applies a partial update and merges the result into the current user
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) Result {
	if res, invalid := validateProfile(update); invalid {
		return res
	}

	token, epoch, authenticated := m.current()
	if !authenticated {
		return notSignedIn()
	}

	req := update.request()
	updated, err := m.api.UpdateProfile(ctx, token, req)
	if err != nil {
		m.rejected(token, err)
		return failure(err)
	}

	applied := false
	m.commit(func() bool {
		if m.epoch != epoch || m.user == nil {
			return false
		}
		m.user = mergeUser(m.user, req, updated)
		applied = true
		return true
	})
	if !applied {
		return superseded("profile update")
	}
	return succeeded
}

// ListTenants returns the organizations the signed-in user belongs to
func (m *Manager) ListTenants(ctx context.Context) ([]Tenant, Result) {
	token, _, authenticated := m.current()
	if !authenticated {
		return nil, notSignedIn()
	}

	tenants, err := m.api.ListTenants(ctx, token)
	if err != nil {
		m.rejected(token, err)
		return nil, failure(err)
	}
	return tenants, succeeded
}

// ForgotPassword requests a reset email. The session is never touched.
func (m *Manager) ForgotPassword(ctx context.Context, email string) Result {
	if res, invalid := validate(emailOnly{Email: email}); invalid {
		return res
	}
	if err := m.api.ForgotPassword(ctx, strings.TrimSpace(email)); err != nil {
		return failure(err)
	}
	return succeeded
}

// ResetPassword completes a reset with the emailed token
func (m *Manager) ResetPassword(ctx context.Context, resetToken, newPassword string) Result {
	if res, invalid := validate(passwordReset{Token: resetToken, Password: newPassword}); invalid {
		return res
	}
	if err := m.api.ResetPassword(ctx, strings.TrimSpace(resetToken), newPassword); err != nil {
		return failure(err)
	}
	return succeeded
}

// VerifyEmail confirms the account with the emailed token
func (m *Manager) VerifyEmail(ctx context.Context, verifyToken string) Result {
	if strings.TrimSpace(verifyToken) == "" {
		return Result{Error: "token is required", Kind: client.KindValidation}
	}
	if err := m.api.VerifyEmail(ctx, strings.TrimSpace(verifyToken)); err != nil {
		return failure(err)
	}
	return succeeded
}

func (m *Manager) current() (token string, epoch uint64, authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.epoch, m.token != ""
}

// rejected resets the session if err is an auth rejection of the token that is still current.
// A rejection of a token that has already been replaced is ignored.
func (m *Manager) rejected(token string, err error) bool {
	if !client.IsAuthRejected(err) {
		return false
	}

	reset := false
	m.commit(func() bool {
		if m.token != token {
			return false
		}
		m.deleteStoredLocked("Failed to delete rejected token")
		m.clearLocked()
		m.lastError = message(err)
		reset = true
		return true
	})
	if !reset {
		return true
	}

	m.logger.Info().Msg("Session rejected by server")
	m.fireAuthRejected()
	return true
}

func (m *Manager) fireAuthRejected() {
	m.mu.Lock()
	hooks := append([]func(){}, m.onAuthRejected...)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// commit applies fn under the lock and, if it reports a change, notifies observers outside it
func (m *Manager) commit(fn func() bool) {
	m.mu.Lock()
	if !fn() {
		m.mu.Unlock()
		return
	}
	assert.That((m.token != "") == (m.user != nil), "token present=%t but user present=%t", m.token != "", m.user != nil)
	assert.That(m.tenant == nil || m.user != nil, "tenant %s set without a user", tenantIDOf(m.tenant))
	snapshot := m.snapshotLocked()
	observers := make([]func(State), 0, len(m.observers))
	for _, o := range m.observers {
		observers = append(observers, o)
	}
	m.mu.Unlock()

	for _, o := range observers {
		o(snapshot)
	}
}

// deleteStoredLocked wipes the stored token. Callers hold mu so storage changes in the same step as memory.
func (m *Manager) deleteStoredLocked(failureMsg string) {
	if err := m.store.Delete(); err != nil {
		m.logger.Warn().Err(err).Msg(failureMsg)
	}
}

func (m *Manager) clearLocked() {
	m.epoch++
	m.user = nil
	m.tenant = nil
	m.token = ""
}

func (m *Manager) finishInitLocked() {
	m.initialized = true
	m.isLoading = false
}

func (m *Manager) snapshotLocked() State {
	s := State{
		User:      cloneUser(m.user),
		Tenant:    cloneTenant(m.tenant),
		Token:     m.token,
		IsLoading: m.isLoading,
		LastError: m.lastError,
	}
	switch {
	case !m.initialized:
		s.Phase = PhaseInitializing
	case m.user != nil:
		s.Phase = PhaseAuthenticated
	default:
		s.Phase = PhaseAnonymous
	}
	return s
}

func failure(err error) Result {
	return Result{Error: message(err), Kind: client.KindOf(err)}
}

// superseded is the result of a call whose response arrived after the identity it was made for had gone
func superseded(what string) Result {
	return Result{Error: "You were signed out before the " + what + " completed", Kind: client.KindRequestFailed}
}

func notSignedIn() Result {
	return Result{Error: "You are not signed in", Kind: client.KindAuthRejected}
}

func message(err error) string {
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message == "" {
			return genericError
		}
		return apiErr.Message
	}
	if err == nil || err.Error() == "" {
		return genericError
	}
	return err.Error()
}

func tenantIDOf(t *Tenant) string {
	if t == nil {
		return ""
	}
	return t.ID
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func cloneTenant(t *Tenant) *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// mergeUser applies the requested fields, then whatever the server returned on top
func mergeUser(cur *User, req client.ProfileUpdate, returned *User) *User {
	merged := cloneUser(cur)

	if req.Name != nil {
		merged.Name = *req.Name
	}
	if req.OrganizationName != nil {
		merged.OrganizationName = *req.OrganizationName
	}
	if req.NotificationEmail != nil {
		merged.NotificationEmail = *req.NotificationEmail
	}

	if returned == nil {
		return merged
	}
	if returned.Name != "" {
		merged.Name = returned.Name
	}
	if returned.OrganizationName != "" {
		merged.OrganizationName = returned.OrganizationName
	}
	if returned.NotificationEmail != "" {
		merged.NotificationEmail = returned.NotificationEmail
	}
	if returned.Email != "" {
		merged.Email = returned.Email
	}
	if !returned.UpdatedAt.IsZero() {
		merged.UpdatedAt = returned.UpdatedAt
	}
	return merged
}
