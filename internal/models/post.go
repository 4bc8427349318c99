package models

import "time"

type Post struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID      string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	TopicID     string    `gorm:"type:varchar(64);index" json:"topic_id"`
	CommunityID *string   `gorm:"type:varchar(64);index" json:"community_id"`
	Title       string    `gorm:"not null" json:"title"`
	Text        string    `json:"text"`
	IsBanned    bool      `gorm:"not null;default:false" json:"is_banned"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PostImage struct {
	ImageID   string    `gorm:"primaryKey;type:varchar(64)" json:"image_id"`
	PostID    string    `gorm:"type:varchar(64);not null;index" json:"post_id"`
	ImageURL  string    `gorm:"not null" json:"image_url"`
	Path      string    `json:"-"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type ImageRef struct {
	ImageID  string `json:"image_id"`
	ImageURL string `json:"image_url"`
}

type CreatePostRequest struct {
	TopicID     string `form:"topic_id" json:"topic_id" binding:"required"`
	CommunityID string `form:"community_id" json:"community_id"`
	Title       string `form:"title" json:"title" binding:"required,max=300"`
	Text        string `form:"text" json:"text"`
}

type EditPostRequest struct {
	TopicID        *string  `form:"topic_id" json:"topic_id"`
	CommunityID    *string  `form:"community_id" json:"community_id"`
	Title          *string  `form:"title" json:"title" binding:"omitempty,max=300"`
	Text           *string  `form:"text" json:"text"`
	RemoveImageIDs []string `form:"remove_image_ids" json:"remove_image_ids"`
}

// PostView is a listed post with author, topic, community and vote statistics.
type PostView struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	UserName      string     `json:"user_name"`
	AvatarURL     string     `json:"avatar_url"`
	TopicID       string     `json:"topic_id"`
	TopicName     string     `json:"topic_name"`
	CommunityID   *string    `json:"community_id"`
	CommunityName *string    `json:"community_name"`
	Title         string     `json:"title"`
	Text          string     `json:"text"`
	Images        []ImageRef `json:"post_images"`
	TotalUpvote   int64      `json:"total_upvote"`
	TotalDownvote int64      `json:"total_downvote"`
	TotalComment  int64      `json:"total_comment"`
	SelfVote      *bool      `json:"self_vote"`
	CreatedAt     time.Time  `json:"created_at"`
}
