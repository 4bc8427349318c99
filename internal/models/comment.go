package models

import "time"

type Comment struct {
	ID        string    `gorm:"column:comment_id;primaryKey;type:varchar(64)" json:"comment_id"`
	PostID    string    `gorm:"type:varchar(64);not null;index" json:"post_id"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Content   string    `gorm:"not null" json:"content"`
	ParentID  *string   `gorm:"type:varchar(64);index" json:"parent_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCommentRequest struct {
	PostID   string  `json:"post_id" binding:"required"`
	ParentID *string `json:"parent_id"`
	Content  string  `json:"content" binding:"required,max=10000"`
}

type EditCommentRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

// CommentView is a comment enriched with its author, the comment it replies to
// and its vote tallies. SubComments is only filled by thread views.
type CommentView struct {
	CommentID       string         `json:"comment_id"`
	PostID          string         `json:"post_id"`
	UserID          string         `json:"user_id"`
	UserName        string         `json:"user_name"`
	AvatarURL       string         `json:"avatar_url"`
	Content         string         `json:"content"`
	ParentID        *string        `json:"parent_id"`
	ReplyToUserID   *string        `json:"reply_to_user_id"`
	ReplyToUserName *string        `json:"reply_to_user_name"`
	ReplyToContent  *string        `json:"reply_to_content"`
	TotalUpvote     int64          `json:"total_upvote"`
	TotalDownvote   int64          `json:"total_downvote"`
	SelfVote        *bool          `json:"self_vote"`
	CreatedAt       time.Time      `json:"created_at"`
	SubComments     []*CommentView `json:"sub_comment,omitempty"`
}
