package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/middleware"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
)

type UserHandler struct {
	users *service.UserService
	votes *service.VoteService
}

func NewUserHandler(users *service.UserService, votes *service.VoteService) *UserHandler {
	return &UserHandler{users: users, votes: votes}
}

// GetUser returns a user's public profile
func (h *UserHandler) GetUser(c *gin.Context) {
	profile, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetUserVotes lists the posts and comments a user voted on, latest vote first.
func (h *UserHandler) GetUserVotes(c *gin.Context) {
	items, err := h.votes.ListByUser(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(items))
}

// CreateProfile completes sign up for the token identity.
func (h *UserHandler) CreateProfile(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, models.NewUnauthorizedError("User not authenticated"))
		return
	}
	var req models.CreateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	images, err := profileImages(c)
	if err != nil {
		respondError(c, err)
		return
	}

	profile, err := h.users.CreateProfile(c.Request.Context(), identity, req, images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// UpdateProfile edits the caller's own profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	images, err := profileImages(c)
	if err != nil {
		respondError(c, err)
		return
	}

	profile, err := h.users.Update(c.Request.Context(), userID, req, images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func profileImages(c *gin.Context) (service.ProfileImages, error) {
	avatar, err := readUpload(c, "avatar")
	if err != nil {
		return service.ProfileImages{}, err
	}
	banner, err := readUpload(c, "banner")
	if err != nil {
		return service.ProfileImages{}, err
	}
	return service.ProfileImages{Avatar: avatar, Banner: banner}, nil
}
