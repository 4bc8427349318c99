package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
}

func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// GetComments lists comments filtered by post_id and user_id, newest first.
func (h *CommentHandler) GetComments(c *gin.Context) {
	h.list(c, service.Clean(c.Query("post_id")))
}

// GetPostComments returns the flat comment list of a post.
func (h *CommentHandler) GetPostComments(c *gin.Context) {
	h.list(c, c.Param("id"))
}

func (h *CommentHandler) list(c *gin.Context, postID string) {
	comments, err := h.comments.List(c.Request.Context(), service.CommentQuery{
		PostID:   postID,
		UserID:   service.Clean(c.Query("user_id")),
		ViewerID: viewerID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(comments))
}

// GetThread returns the comments of a post nested under their parents.
func (h *CommentHandler) GetThread(c *gin.Context) {
	roots, err := h.comments.Thread(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(roots))
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) UpdateComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.EditCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	comment, err := h.comments.Edit(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment removes a comment and its replies.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	removed, err := h.comments.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully", "deleted": removed})
}
