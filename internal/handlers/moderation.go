package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
)

// ModerationHandler serves platform admin bans of posts, users and communities.
type ModerationHandler struct {
	moderation *service.ModerationService
}

func NewModerationHandler(moderation *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

func (h *ModerationHandler) Ban(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	target, err := models.NewBanTarget(models.BanKind(c.Param("kind")), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var req models.BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	ban, err := h.moderation.Ban(c.Request.Context(), userID, target, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ban)
}

func (h *ModerationHandler) Unban(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	target, err := models.NewBanTarget(models.BanKind(c.Param("kind")), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.moderation.Unban(c.Request.Context(), userID, target); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ban lifted"})
}

// ListBans lists ban records, optionally of one kind.
func (h *ModerationHandler) ListBans(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	bans, err := h.moderation.List(c.Request.Context(), userID, models.BanKind(service.Clean(c.Query("kind"))))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(bans))
}
