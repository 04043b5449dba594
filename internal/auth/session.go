package auth

import "time"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	TenantID  string    `json:"tenant_id"` // Empty when no organization is active
	TokenID   string    `json:"token_id"`  // jti, used for revocation on logout
	ExpiresAt time.Time `json:"expires_at"`
}
