package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
)

type PostHandler struct {
	posts *service.PostService
}

func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// GetPosts lists listable posts, newest first, one page at a time.
func (h *PostHandler) GetPosts(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		respondError(c, err)
		return
	}
	size, err := queryInt(c, "pageSize", "page_size")
	if err != nil {
		respondError(c, err)
		return
	}
	keyword := service.Clean(c.Query("q"))
	if keyword == "" {
		keyword = service.Clean(c.Query("post_title"))
	}

	posts, err := h.posts.List(c.Request.Context(), service.PostQuery{
		UserID:      service.Clean(c.Query("user_id")),
		TopicID:     service.Clean(c.Query("topic_id")),
		CommunityID: service.Clean(c.Query("community_id")),
		Keyword:     keyword,
		ViewerID:    viewerID(c),
		Page:        page,
		PageSize:    size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(posts))
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	files, err := readUploads(c, "images")
	if err != nil {
		respondError(c, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), userID, req, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.EditPostRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	files, err := readUploads(c, "images")
	if err != nil {
		respondError(c, err)
		return
	}

	post, err := h.posts.Edit(c.Request.Context(), userID, c.Param("id"), req, files)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
