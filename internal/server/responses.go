package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/staffhub-dev/staffhub/internal/models"
)

// All successful responses are {"data": ...}; failures are {"error": "..."}.

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// UserDetail represents user information returned in responses
type UserDetail struct {
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

// TenantDetail represents an organization returned in responses
type TenantDetail struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	SubscriptionTier string `json:"subscription_tier"`
	IsVerified       bool   `json:"is_verified"`
	Role             string `json:"role,omitempty"`
}

// IdentityResponse is returned by the identity check
type IdentityResponse struct {
	User   *UserDetail   `json:"user"`
	Tenant *TenantDetail `json:"tenant"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token  string        `json:"token"`
	User   *UserDetail   `json:"user"`
	Tenant *TenantDetail `json:"tenant"`
}

// SwitchTenantResponse carries the new tenant and its scoped token
type SwitchTenantResponse struct {
	Tenant *TenantDetail `json:"tenant"`
	Token  string        `json:"token,omitempty"`
}

func toUserDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		UserType:          user.UserType,
		IsAdmin:           user.IsAdmin,
		IsVerified:        user.IsVerified,
		OrganizationName:  user.OrganizationName,
		NotificationEmail: user.NotificationEmail,
		CreatedAt:         user.CreatedAt,
		UpdatedAt:         user.UpdatedAt,
	}
}

func toTenantDetail(tenant *models.Tenant, role string) *TenantDetail {
	return &TenantDetail{
		ID:               tenant.ID,
		Name:             tenant.Name,
		Type:             tenant.Type,
		SubscriptionTier: tenant.SubscriptionTier,
		IsVerified:       tenant.IsVerified,
		Role:             role,
	}
}
