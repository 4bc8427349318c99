package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
)

type CommunityHandler struct {
	communities *service.CommunityService
}

func NewCommunityHandler(communities *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{communities: communities}
}

func (h *CommunityHandler) GetCommunities(c *gin.Context) {
	communities, err := h.communities.List(c.Request.Context(), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(communities))
}

// SearchCommunities matches community names containing q, ignoring case.
func (h *CommunityHandler) SearchCommunities(c *gin.Context) {
	communities, err := h.communities.Search(c.Request.Context(), c.Query("q"), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(communities))
}

func (h *CommunityHandler) GetCommunity(c *gin.Context) {
	community, err := h.communities.Get(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) CreateCommunity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.CreateCommunityRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	images, err := communityImages(c)
	if err != nil {
		respondError(c, err)
		return
	}

	community, err := h.communities.Create(c.Request.Context(), userID, req, images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, community)
}

func (h *CommunityHandler) UpdateCommunity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateCommunityRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	images, err := communityImages(c)
	if err != nil {
		respondError(c, err)
		return
	}

	community, err := h.communities.Update(c.Request.Context(), userID, c.Param("id"), req, images)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) JoinCommunity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	community, err := h.communities.Join(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) LeaveCommunity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.communities.Leave(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left community"})
}

// KickMember removes another member; only the community admin may.
func (h *CommunityHandler) KickMember(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.communities.Kick(c.Request.Context(), userID, c.Param("id"), c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

func (h *CommunityHandler) GetMembers(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	view, err := h.communities.Members(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CommunityHandler) BanCommunity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	ban, err := h.communities.Ban(c.Request.Context(), userID, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ban)
}

func (h *CommunityHandler) UnbanCommunity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.communities.Unban(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Community unbanned"})
}

func communityImages(c *gin.Context) (service.CommunityImages, error) {
	avatar, err := readUpload(c, "avatar")
	if err != nil {
		return service.CommunityImages{}, err
	}
	banner, err := readUpload(c, "banner")
	if err != nil {
		return service.CommunityImages{}, err
	}
	return service.CommunityImages{Avatar: avatar, Banner: banner}, nil
}
