package models

import "time"

// Vote model - one row per user and target. A vote targets a comment iff
// CommentID is set; comment votes still carry the owning PostID.
type Vote struct {
	ID        string    `gorm:"column:vote_id;primaryKey;type:varchar(64)" json:"vote_id"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	PostID    *string   `gorm:"type:varchar(64);index" json:"post_id"`
	CommentID *string   `gorm:"type:varchar(64);index" json:"comment_id"`
	IsUpvote  bool      `gorm:"not null" json:"is_upvote"`
	CreatedAt time.Time `json:"created_at"`
}

type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// VoteTarget names what a vote applies to.
type VoteTarget struct {
	Kind      TargetKind
	PostID    string
	CommentID string
}

func PostTarget(postID string) VoteTarget {
	return VoteTarget{Kind: TargetPost, PostID: postID}
}

func CommentTarget(commentID string) VoteTarget {
	return VoteTarget{Kind: TargetComment, CommentID: commentID}
}

// ID returns the id of the targeted post or comment.
func (t VoteTarget) ID() string {
	if t.Kind == TargetComment {
		return t.CommentID
	}
	return t.PostID
}

func (t VoteTarget) Validate() error {
	switch t.Kind {
	case TargetPost:
		if t.PostID == "" {
			return NewValidationError("post_id", "post_id is required")
		}
	case TargetComment:
		if t.CommentID == "" {
			return NewValidationError("comment_id", "comment_id is required")
		}
	default:
		return NewValidationError("target", "either post_id or comment_id is required")
	}
	return nil
}

// Target reports the target of a stored vote.
func (v *Vote) Target() VoteTarget {
	var postID string
	if v.PostID != nil {
		postID = *v.PostID
	}
	if v.CommentID != nil {
		return VoteTarget{Kind: TargetComment, PostID: postID, CommentID: *v.CommentID}
	}
	return VoteTarget{Kind: TargetPost, PostID: postID}
}

type VoteRequest struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id"`
	IsUpvote  *bool  `json:"is_upvote" binding:"required"`
}

// Target resolves the request to a vote target. A comment id wins over a
// post id because comment votes may echo their post.
func (r VoteRequest) Target() VoteTarget {
	if r.CommentID != "" {
		return CommentTarget(r.CommentID)
	}
	if r.PostID != "" {
		return PostTarget(r.PostID)
	}
	return VoteTarget{}
}

const (
	VoteCreated = "created"
	VoteRemoved = "removed"
	VoteUpdated = "updated"
)

// VoteOutcome reports what a toggle did. Vote is nil when the vote was removed.
type VoteOutcome struct {
	Action string `json:"action"`
	Vote   *Vote  `json:"vote,omitempty"`
}

// VotedItem is an entry in a user's vote history: the voted post or comment
// with its statistics and the vote itself.
type VotedItem struct {
	Type            TargetKind `json:"type"`
	PostID          *string    `json:"post_id"`
	CommentID       *string    `json:"comment_id"`
	UserID          string     `json:"user_id"`
	UserName        string     `json:"user_name"`
	AvatarURL       string     `json:"avatar_url"`
	TopicName       *string    `json:"topic_name"`
	CommunityName   *string    `json:"community_name"`
	Title           *string    `json:"title"`
	Text            *string    `json:"text"`
	Images          []ImageRef `json:"post_images"`
	CommentContent  *string    `json:"comment_content"`
	ReplyToUserID   *string    `json:"reply_to_user_id"`
	ReplyToUserName *string    `json:"reply_to_user_name"`
	ReplyToContent  *string    `json:"reply_to_content"`
	TotalComment    int64      `json:"total_comment"`
	TotalUpvote     int64      `json:"total_upvote"`
	TotalDownvote   int64      `json:"total_downvote"`
	CreatedAt       time.Time  `json:"created_at"`
	VoteCreatedAt   time.Time  `json:"vote_created_at"`
	SelfVote        *bool      `json:"self_vote"`
}
