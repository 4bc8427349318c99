package models

import "time"

const MemberStatusJoined = "joined"

type Community struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	AdminID     string    `gorm:"type:varchar(64);not null;index" json:"admin_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	BannerURL   string    `json:"banner_url"`
	AvatarURL   string    `json:"avatar_url"`
	IsBanned    bool      `gorm:"not null;default:false" json:"is_banned"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CommunityTopic links a community to one of its topics.
type CommunityTopic struct {
	CommunityID string    `gorm:"primaryKey;type:varchar(64)" json:"community_id"`
	TopicID     string    `gorm:"primaryKey;type:varchar(64)" json:"topic_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is keyed by (user_id, community_id).
type Member struct {
	UserID      string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	CommunityID string    `gorm:"primaryKey;type:varchar(64);index" json:"community_id"`
	Status      string    `gorm:"not null;default:joined" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateCommunityRequest struct {
	Name        string   `form:"name" json:"name" binding:"required,max=64"`
	Description string   `form:"description" json:"description" binding:"max=1000"`
	TopicIDs    []string `form:"topic_ids" json:"topic_ids"`
}

type UpdateCommunityRequest struct {
	Name        *string `form:"name" json:"name" binding:"omitempty,max=64"`
	Description *string `form:"description" json:"description" binding:"omitempty,max=1000"`
}

// CommunityView decorates a community with the viewer's join state and its topics.
// MemberCount is only filled in admin views.
type CommunityView struct {
	ID          string     `json:"id"`
	AdminID     string     `json:"admin_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	BannerURL   string     `json:"banner_url"`
	AvatarURL   string     `json:"avatar_url"`
	IsBanned    bool       `json:"is_banned"`
	IsJoined    bool       `json:"is_joined"`
	Topics      []TopicRef `json:"topics"`
	MemberCount *int64     `json:"member_count,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type MemberView struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
	Status    string    `json:"status"`
	IsAdmin   bool      `json:"is_admin"`
	JoinedAt  time.Time `json:"joined_at"`
}
