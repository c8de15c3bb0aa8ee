package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"journal_chat/internal/domain"
	"journal_chat/internal/middleware"
	"journal_chat/internal/service"
	apperrors "journal_chat/pkg/errors"
	"journal_chat/pkg/logger"
)

// AdminHandler serves the chat administration routes. Every route sits
// behind RequireAdmin.
type AdminHandler struct {
	policy service.PolicyService
	audit  service.AuditService
	log    logger.Logger
}

func NewAdminHandler(policy service.PolicyService, audit service.AuditService, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		policy: policy,
		audit:  audit,
		log:    log,
	}
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	configuration, err := h.policy.Configuration(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, configuration)
}

func (h *AdminHandler) UpdateGlobal(c *gin.Context) {
	var patch domain.SettingsOverride
	if err := c.ShouldBindJSON(&patch); err != nil {
		_ = c.Error(apperrors.Validation("%s", err.Error()))
		return
	}

	settings, err := h.policy.UpdateGlobal(c.Request.Context(), middleware.UserID(c), patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.log.Info("Global chat settings updated", "admin_id", middleware.UserID(c))
	c.JSON(http.StatusOK, settings)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var patch domain.SettingsOverride
	if err := c.ShouldBindJSON(&patch); err != nil {
		_ = c.Error(apperrors.Validation("%s", err.Error()))
		return
	}

	userID := c.Param("userId")
	override, err := h.policy.UpdateUser(c.Request.Context(), middleware.UserID(c), userID, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.log.Info("User chat settings updated", "admin_id", middleware.UserID(c), "user_id", userID)
	c.JSON(http.StatusOK, override)
}

func (h *AdminHandler) ClearUser(c *gin.Context) {
	if err := h.policy.ClearUser(c.Request.Context(), middleware.UserID(c), c.Param("userId")); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) MessageAudit(c *gin.Context) {
	messageID := strings.TrimSpace(c.Query("messageId"))
	if messageID == "" {
		_ = c.Error(apperrors.Validation("messageId is required"))
		return
	}

	trail, err := h.audit.MessageTrail(c.Request.Context(), messageID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, trail)
}
