package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/staffhub-dev/staffhub/internal/models"
)

// SwitchTenantRequest selects the organization to act within
type SwitchTenantRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

func (s *Server) findMembership(userID, tenantID string) (*models.Membership, error) {
	var membership models.Membership
	if err := s.db.Preload("Tenant").
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		First(&membership).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

// @Summary List organizations
// @Description Organizations the current user belongs to, with their role in each
// @Tags tenants
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TenantDetail
// @Failure 401 {object} map[string]interface{}
// @Router /api/tenants [get]
func (s *Server) listTenants(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var user models.User
	if err := models.FindByIDWithPreload(s.db, sessionData.UserID, &user, "Memberships", "Memberships.Tenant"); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to load memberships")
		respondError(c, http.StatusInternalServerError, "Failed to list organizations")
		return
	}

	tenants := make([]*TenantDetail, 0, len(user.Memberships))
	for i := range user.Memberships {
		m := &user.Memberships[i]
		tenants = append(tenants, toTenantDetail(&m.Tenant, m.Role))
	}

	respondData(c, http.StatusOK, tenants)
}

// @Summary Switch organization
// @Description Re-scope the session to another organization; the old token is revoked and a new one issued
// @Tags tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SwitchTenantRequest true "Target organization"
// @Success 200 {object} SwitchTenantResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/tenants/switch [post]
func (s *Server) switchTenant(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req SwitchTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	membership, err := s.findMembership(sessionData.UserID, req.TenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.TenantSwitches.WithLabelValues("forbidden").Inc()
			respondError(c, http.StatusForbidden, "You are not a member of this organization")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load membership")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := s.issuer.GenerateToken(sessionData.UserID, sessionData.Email, sessionData.IsAdmin, membership.TenantID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		respondError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if err := s.revoke(s.db, sessionData); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to revoke previous token")
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.metrics.TenantSwitches.WithLabelValues("success").Inc()
	s.logger.Info().
		Str("user_id", sessionData.UserID).
		Str("from_tenant", sessionData.TenantID).
		Str("to_tenant", membership.TenantID).
		Msg("Switched organization")

	respondData(c, http.StatusOK, SwitchTenantResponse{
		Tenant: toTenantDetail(&membership.Tenant, membership.Role),
		Token:  token,
	})
}
