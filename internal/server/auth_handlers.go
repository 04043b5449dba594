package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/staffhub-dev/staffhub/internal/auth"
	"github.com/staffhub-dev/staffhub/internal/models"
	"github.com/staffhub-dev/staffhub/internal/tasks"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a self-service signup
type RegisterRequest struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
	OrganizationName string `json:"organization_name"`
	Role             string `json:"role" binding:"required,usertype"`
}

// ForgotPasswordRequest triggers a reset email
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a reset with the emailed token
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// VerifyEmailRequest confirms ownership of the registered address
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// UpdateProfileRequest is a partial update; nil fields are left alone
type UpdateProfileRequest struct {
	Name              *string `json:"name"`
	OrganizationName  *string `json:"organization_name"`
	NotificationEmail *string `json:"notification_email" binding:"omitempty,email"`
}

// bindingMessage turns validator output into a single readable sentence
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "usertype":
		return fmt.Sprintf("%s must be one of %s, %s, %s", field, models.UserTypeCompany, models.UserTypeBureau, models.UserTypeFreelancer)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.Logins.WithLabelValues("invalid_credentials").Inc()
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		s.metrics.Logins.WithLabelValues("invalid_credentials").Inc()
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if !user.IsVerified {
		s.metrics.Logins.WithLabelValues("unverified").Inc()
		respondError(c, http.StatusForbidden, "Please verify your email address before logging in")
		return
	}

	// Default organization context is the oldest membership
	var tenant *TenantDetail
	var membership models.Membership
	err := s.db.Preload("Tenant").Where("user_id = ?", user.ID).Order("created_at ASC").First(&membership).Error
	switch {
	case err == nil:
		tenant = toTenantDetail(&membership.Tenant, membership.Role)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to load memberships")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	tenantID := ""
	if tenant != nil {
		tenantID = tenant.ID
	}

	token, err := s.issuer.GenerateToken(user.ID, user.Email, user.IsAdmin, tenantID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		respondError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	s.metrics.Logins.WithLabelValues("success").Inc()
	s.logger.Info().Str("user_id", user.ID).Str("tenant_id", tenantID).Msg("User logged in")

	respondData(c, http.StatusOK, LoginResponse{
		Token:  token,
		User:   toUserDetail(&user),
		Tenant: tenant,
	})
}

// @Summary Register
// @Description Create an account; the email must be verified before login works
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	email := strings.ToLower(req.Email)

	var existing int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to count users")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing > 0 {
		respondError(c, http.StatusConflict, "An account with this email already exists")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	verifyToken, verifyHash, err := auth.NewActionToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate verification token")
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := &models.User{
		Email:            email,
		PasswordHash:     passwordHash,
		Name:             req.Name,
		UserType:         req.Role,
		OrganizationName: req.OrganizationName,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if req.OrganizationName != "" {
			tenant := &models.Tenant{
				Name:             req.OrganizationName,
				Type:             req.Role,
				SubscriptionTier: models.TierFree,
			}
			if err := tx.Create(tenant).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.Membership{UserID: user.ID, TenantID: tenant.ID, Role: models.RoleOwner}).Error; err != nil {
				return err
			}
		}

		return tx.Create(&models.ActionToken{
			Kind:      models.ActionVerifyEmail,
			TokenHash: verifyHash,
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(verifyTokenTTL),
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondError(c, http.StatusConflict, "An account with this email already exists")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create account")
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	// The account exists either way; a lost email is recoverable through support
	if err := s.mailer.SendVerification(c.Request.Context(), tasks.EmailPayload{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Link:   s.link("/verify-email", verifyToken),
	}); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to queue verification email")
	}

	s.metrics.Registrations.Inc()
	s.logger.Info().Str("user_id", user.ID).Str("user_type", user.UserType).Msg("Account registered")

	respondData(c, http.StatusCreated, gin.H{})
}

// @Summary Verify email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyEmailRequest true "Verification token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/verify-email [post]
func (s *Server) verifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	err := s.consumeActionToken(models.ActionVerifyEmail, req.Token, func(tx *gorm.DB, userID string) error {
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("is_verified", true).Error
	})
	if err != nil {
		s.respondActionTokenError(c, err, "Invalid or expired verification link")
		return
	}

	respondData(c, http.StatusOK, gin.H{})
}

// @Summary Forgot password
// @Description Always succeeds so the endpoint cannot be used to probe for accounts
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Msg("Failed to find user")
			respondError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		respondData(c, http.StatusOK, gin.H{})
		return
	}

	resetToken, resetHash, err := auth.NewActionToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate reset token")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := s.db.Create(&models.ActionToken{
		Kind:      models.ActionResetPassword,
		TokenHash: resetHash,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to store reset token")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := s.mailer.SendPasswordReset(c.Request.Context(), tasks.EmailPayload{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Link:   s.link("/reset-password", resetToken),
	}); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to queue password reset email")
		respondError(c, http.StatusInternalServerError, "Could not send reset email, please try again later")
		return
	}

	respondData(c, http.StatusOK, gin.H{})
}

// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	err = s.consumeActionToken(models.ActionResetPassword, req.Token, func(tx *gorm.DB, userID string) error {
		// A reset link proves mailbox ownership too
		return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
			"password_hash": passwordHash,
			"is_verified":   true,
		}).Error
	})
	if err != nil {
		s.respondActionTokenError(c, err, "Invalid or expired reset link")
		return
	}

	respondData(c, http.StatusOK, gin.H{})
}

// @Summary Get current identity
// @Description The authenticated user and the active organization, if any
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} IdentityResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/identity/me [get]
func (s *Server) getIdentity(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := IdentityResponse{User: toUserDetail(&user)}

	if sessionData.TenantID != "" {
		membership, err := s.findMembership(user.ID, sessionData.TenantID)
		switch {
		case err == nil:
			resp.Tenant = toTenantDetail(&membership.Tenant, membership.Role)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Removed from the organization since the token was issued
			s.logger.Info().Str("user_id", user.ID).Str("tenant_id", sessionData.TenantID).Msg("Token tenant no longer a membership")
		default:
			s.logger.Error().Err(err).Msg("Failed to load membership")
			respondError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	respondData(c, http.StatusOK, resp)
}

// @Summary Logout
// @Description Revoke the presented token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	if err := s.revoke(s.db, sessionData); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to revoke token")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.Info().Str("user_id", sessionData.UserID).Msg("User logged out")
	respondData(c, http.StatusOK, gin.H{})
}

// @Summary Update profile
// @Description Partial update of display name, organization name and notification email
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} UserDetail
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/profile [patch]
func (s *Server) updateProfile(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			respondError(c, http.StatusBadRequest, "name cannot be empty")
			return
		}
		updates["name"] = name
	}
	if req.OrganizationName != nil {
		updates["organization_name"] = strings.TrimSpace(*req.OrganizationName)
	}
	if req.NotificationEmail != nil {
		updates["notification_email"] = strings.ToLower(*req.NotificationEmail)
	}

	if len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "No fields to update")
		return
	}

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update profile")
		respondError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Int("fields", len(updates)).Msg("Profile updated")
	respondData(c, http.StatusOK, toUserDetail(&user))
}

var errActionTokenInvalid = errors.New("action token invalid")

// consumeActionToken marks a live token of the given kind as used and applies fn in the same transaction
func (s *Server) consumeActionToken(kind, token string, fn func(tx *gorm.DB, userID string) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var record models.ActionToken
		err := tx.Where("kind = ? AND token_hash = ? AND used_at IS NULL AND expires_at > ?",
			kind, auth.HashActionToken(token), time.Now()).First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errActionTokenInvalid
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(&record).Update("used_at", &now).Error; err != nil {
			return err
		}

		return fn(tx, record.UserID)
	})
}

func (s *Server) respondActionTokenError(c *gin.Context, err error, invalidMessage string) {
	if errors.Is(err, errActionTokenInvalid) {
		respondError(c, http.StatusBadRequest, invalidMessage)
		return
	}
	s.logger.Error().Err(err).Msg("Failed to consume action token")
	respondError(c, http.StatusInternalServerError, "Internal server error")
}

// revoke records the session's token id until its natural expiry
func (s *Server) revoke(db *gorm.DB, sessionData *auth.SessionData) error {
	expiresAt := sessionData.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(s.config.Auth.TokenTTL)
	}
	return db.Create(&models.RevokedToken{JTI: sessionData.TokenID, ExpiresAt: expiresAt}).Error
}

func (s *Server) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.config.HTTP.PublicURL, path, url.QueryEscape(token))
}
