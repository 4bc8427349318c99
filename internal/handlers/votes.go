package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
)

type VoteHandler struct {
	votes *service.VoteService
}

func NewVoteHandler(votes *service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Vote casts, flips or withdraws the caller's vote on a post or comment.
func (h *VoteHandler) Vote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	outcome, err := h.votes.Cast(c.Request.Context(), userID, req.Target(), *req.IsUpvote)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if outcome.Action == models.VoteCreated {
		status = http.StatusCreated
	}
	c.JSON(status, outcome)
}

func (h *VoteHandler) DeleteVote(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.votes.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vote removed"})
}
