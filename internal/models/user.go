package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the profile row for an identity issued by the hosted auth provider.
// The ID is the provider's subject claim.
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"index" json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url"`
	BannerURL string    `json:"banner_url"`
	Bio       string    `json:"bio"`
	Role      string    `gorm:"not null;default:user" json:"role"`
	IsBanned  bool      `gorm:"not null;default:false" json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserTopicPreference records a topic the user declared interest in at signup.
type UserTopicPreference struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	TopicID   string    `gorm:"primaryKey;type:varchar(64)" json:"topic_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateProfileRequest struct {
	Name        string   `form:"name" json:"name" binding:"required,max=64"`
	Bio         string   `form:"bio" json:"bio" binding:"max=500"`
	AvatarURL   string   `form:"avatar_url" json:"avatar_url"`
	BannerURL   string   `form:"banner_url" json:"banner_url"`
	Preferences []string `form:"preference" json:"preference"`
}

type UpdateProfileRequest struct {
	Name      *string `form:"name" json:"name" binding:"omitempty,max=64"`
	Bio       *string `form:"bio" json:"bio" binding:"omitempty,max=500"`
	AvatarURL *string `form:"avatar_url" json:"avatar_url"`
	BannerURL *string `form:"banner_url" json:"banner_url"`
}

// ProfileView is a user profile together with the declared topic preferences.
type ProfileView struct {
	User
	Preferences []TopicRef `json:"preferences"`
}
