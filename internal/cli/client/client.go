package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
	genericMessage = "Something went wrong, please try again"
)

// Client represents an HTTP client for the staffhub identity API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a new API client. insecure skips TLS verification for self-signed dev servers.
func New(baseURL string, insecure bool) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per server
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport,
		},
		logger: zerolog.Nop(),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetLogger sets the logger used for protocol anomalies
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// BaseURL returns the server URL requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// User is the identity record returned by the API
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	UserType          string    `json:"user_type"`
	IsAdmin           bool      `json:"is_admin"`
	IsVerified        bool      `json:"is_verified"`
	OrganizationName  string    `json:"organization_name,omitempty"`
	NotificationEmail string    `json:"notification_email,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Tenant is an organization the user can act within
type Tenant struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	SubscriptionTier string `json:"subscription_tier"`
	IsVerified       bool   `json:"is_verified"`
	Role             string `json:"role,omitempty"`
}

// Identity is the response of the identity check
type Identity struct {
	User   *User   `json:"user"`
	Tenant *Tenant `json:"tenant"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token  string  `json:"token"`
	User   *User   `json:"user"`
	Tenant *Tenant `json:"tenant"`
}

// RegisterRequest represents the signup request body
type RegisterRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organization_name,omitempty"`
	Role             string `json:"role"`
}

// SwitchTenantResponse carries the new tenant and, when issued, a re-scoped token
type SwitchTenantResponse struct {
	Tenant *Tenant `json:"tenant"`
	Token  string  `json:"token,omitempty"`
}

// ProfileUpdate is a partial profile change; nil fields are not sent
type ProfileUpdate struct {
	Name              *string `json:"name,omitempty"`
	OrganizationName  *string `json:"organization_name,omitempty"`
	NotificationEmail *string `json:"notification_email,omitempty"`
}

// Me performs the identity check for token
func (c *Client) Me(ctx context.Context, token string) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodGet, "/api/identity/me", token, nil, &identity); err != nil {
		return nil, err
	}
	if identity.User == nil {
		return nil, c.shapeError("/api/identity/me", http.StatusOK)
	}
	return &identity, nil
}

// Login authenticates the user and returns a JWT token
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, c.shapeError("/api/auth/login", http.StatusOK)
	}
	return &resp, nil
}

// Register creates an account. No token is returned; the email must be verified first.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", "", req, nil)
}

// Logout revokes token on the server
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

// SwitchTenant re-scopes the session to tenantID
func (c *Client) SwitchTenant(ctx context.Context, token, tenantID string) (*SwitchTenantResponse, error) {
	var resp SwitchTenantResponse
	body := map[string]string{"tenant_id": tenantID}
	if err := c.do(ctx, http.MethodPost, "/api/tenants/switch", token, body, &resp); err != nil {
		return nil, err
	}
	if resp.Tenant == nil {
		return nil, c.shapeError("/api/tenants/switch", http.StatusOK)
	}
	return &resp, nil
}

// UpdateProfile applies a partial profile update and returns the updated user
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPatch, "/api/auth/profile", token, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTenants returns the organizations the user belongs to
func (c *Client) ListTenants(ctx context.Context, token string) ([]Tenant, error) {
	var tenants []Tenant
	if err := c.do(ctx, http.MethodGet, "/api/tenants", token, nil, &tenants); err != nil {
		return nil, err
	}
	return tenants, nil
}

// ForgotPassword asks the server to email a reset link
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using the emailed reset token
func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	body := map[string]string{"token": resetToken, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", "", body, nil)
}

// VerifyEmail confirms the account using the emailed verification token
func (c *Client) VerifyEmail(ctx context.Context, verifyToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": verifyToken}, nil)
}

// do sends a JSON request. A non-empty token marks the call as authenticated.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindRequestFailed, Message: genericMessage, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindRequestFailed, Message: genericMessage, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{
			Kind:    KindRequestFailed,
			Message: "Could not reach the server, check your connection",
			Err:     fmt.Errorf("failed to send request: %w", err),
		}
	}
	defer resp.Body.Close()

	return c.decode(resp, path, token != "", out)
}

// decode is the single place response bodies are interpreted.
// Success is {"data": ...}, failure is {"error": "..."}; any other shape is a request failure.
func (c *Client) decode(resp *http.Response, path string, authenticated bool, out any) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindRequestFailed, Message: genericMessage, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *string         `json:"error"`
	}
	parsed := json.Unmarshal(raw, &env) == nil

	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	if !success {
		if resp.StatusCode == http.StatusUnauthorized && authenticated {
			msg := "Your session has expired, please log in again"
			if parsed && env.Error != nil && *env.Error != "" {
				msg = *env.Error
			}
			return &Error{Kind: KindAuthRejected, Message: msg, Status: resp.StatusCode}
		}

		if !parsed || env.Error == nil {
			return c.shapeError(path, resp.StatusCode)
		}

		msg := *env.Error
		if msg == "" {
			msg = genericMessage
		}

		kind := KindRequestFailed
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			kind = KindValidation
		}
		return &Error{Kind: kind, Message: msg, Status: resp.StatusCode}
	}

	if !parsed || env.Data == nil {
		return c.shapeError(path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("Failed to decode response data")
		return &Error{Kind: KindRequestFailed, Message: genericMessage, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (c *Client) shapeError(path string, status int) error {
	c.logger.Warn().Str("path", path).Int("status", status).Msg("Unexpected response shape")
	return &Error{Kind: KindRequestFailed, Message: genericMessage, Status: status, Err: fmt.Errorf("unexpected response shape from %s", path)}
}
