package handlers

import (
	"github.com/asksenior/backend/internal/service"
)

// Handler combines all handler types
type Handler struct {
	Auth       *AuthHandler
	Post       *PostHandler
	Comment    *CommentHandler
	User       *UserHandler
	Vote       *VoteHandler
	Topic      *TopicHandler
	Community  *CommunityHandler
	Moderation *ModerationHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *service.Services) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Users),
		Post:       NewPostHandler(svc.Posts),
		Comment:    NewCommentHandler(svc.Comments),
		User:       NewUserHandler(svc.Users, svc.Votes),
		Vote:       NewVoteHandler(svc.Votes),
		Topic:      NewTopicHandler(svc.Topics),
		Community:  NewCommunityHandler(svc.Communities),
		Moderation: NewModerationHandler(svc.Moderation),
	}
}
