package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/middleware"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
)

// AuthHandler serves the session endpoints. Sign in happens at the
// identity provider; requests arrive with its bearer token.
type AuthHandler struct {
	users *service.UserService
}

func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// GetMe returns the token identity and its profile. A signed in user who
// has not created a profile yet gets has_profile false.
func (h *AuthHandler) GetMe(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, models.NewUnauthorizedError("User not authenticated"))
		return
	}

	profile, err := h.users.Get(c.Request.Context(), identity.UserID)
	if models.IsKind(err, models.KindNotFound) {
		c.JSON(http.StatusOK, gin.H{"identity": identity, "has_profile": false, "profile": nil})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": identity, "has_profile": true, "profile": profile})
}
