package models

import (
	"fmt"
	"time"
)

// Banned is the stored moderation record. Exactly one of PostID, UserID and
// CommunityID is set; use Target to read it.
type Banned struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PostID      *string   `gorm:"type:varchar(64);index" json:"-"`
	UserID      *string   `gorm:"type:varchar(64);index" json:"-"`
	CommunityID *string   `gorm:"type:varchar(64);index" json:"-"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Banned) TableName() string {
	return "banned"
}

type BanKind string

const (
	BanPost      BanKind = "post"
	BanUser      BanKind = "user"
	BanCommunity BanKind = "community"
)

// BanTarget is one of PostBan, UserBan or CommunityBan.
type BanTarget interface {
	Kind() BanKind
	TargetID() string
	isBanTarget()
}

type PostBan struct{ PostID string }
type UserBan struct{ UserID string }
type CommunityBan struct{ CommunityID string }

func (b PostBan) Kind() BanKind    { return BanPost }
func (b PostBan) TargetID() string { return b.PostID }
func (PostBan) isBanTarget()       {}

func (b UserBan) Kind() BanKind    { return BanUser }
func (b UserBan) TargetID() string { return b.UserID }
func (UserBan) isBanTarget()       {}

func (b CommunityBan) Kind() BanKind    { return BanCommunity }
func (b CommunityBan) TargetID() string { return b.CommunityID }
func (CommunityBan) isBanTarget()       {}

// NewBanTarget builds the target for a kind read from a request path.
func NewBanTarget(kind BanKind, id string) (BanTarget, error) {
	if id == "" {
		return nil, NewValidationError("id", "target id is required")
	}
	switch kind {
	case BanPost:
		return PostBan{PostID: id}, nil
	case BanUser:
		return UserBan{UserID: id}, nil
	case BanCommunity:
		return CommunityBan{CommunityID: id}, nil
	}
	return nil, NewValidationError("kind", fmt.Sprintf("unknown ban kind %q", kind))
}

// NewBanned returns the row recording a ban of target.
func NewBanned(id string, target BanTarget, reason string) *Banned {
	b := &Banned{ID: id, Reason: reason}
	targetID := target.TargetID()
	switch target.Kind() {
	case BanPost:
		b.PostID = &targetID
	case BanUser:
		b.UserID = &targetID
	case BanCommunity:
		b.CommunityID = &targetID
	}
	return b
}

// Target decodes the one-of target columns.
func (b *Banned) Target() (BanTarget, error) {
	var targets []BanTarget
	if b.PostID != nil {
		targets = append(targets, PostBan{PostID: *b.PostID})
	}
	if b.UserID != nil {
		targets = append(targets, UserBan{UserID: *b.UserID})
	}
	if b.CommunityID != nil {
		targets = append(targets, CommunityBan{CommunityID: *b.CommunityID})
	}
	if len(targets) != 1 {
		return nil, fmt.Errorf("ban %s has %d targets, want exactly 1", b.ID, len(targets))
	}
	return targets[0], nil
}

type BanRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type BanView struct {
	ID        string    `json:"id"`
	Kind      BanKind   `json:"kind"`
	TargetID  string    `json:"target_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
