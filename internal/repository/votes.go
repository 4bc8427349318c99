package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/asksenior/backend/internal/models"
)

// whereTarget restricts q to votes on target. Post votes are the rows whose
// comment_id is null; comment votes carry their post id too.
func whereTarget(q *gorm.DB, target models.VoteTarget) *gorm.DB {
	if target.Kind == models.TargetComment {
		return q.Where("comment_id = ?", target.CommentID)
	}
	return q.Where("post_id = ? AND comment_id IS NULL", target.PostID)
}

// FindVote returns userID's vote on target, or NotFound.
func (r *Repository) FindVote(ctx context.Context, userID string, target models.VoteTarget) (*models.Vote, error) {
	var vote models.Vote
	err := whereTarget(r.conn(ctx).Where("user_id = ?", userID), target).Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("vote", target.ID())
	}
	if err != nil {
		return nil, translate("load vote", err)
	}
	return &vote, nil
}

func (r *Repository) GetVote(ctx context.Context, id string) (*models.Vote, error) {
	var vote models.Vote
	if err := first(r.conn(ctx).Where("vote_id = ?", id), &vote, "vote", id); err != nil {
		return nil, err
	}
	return &vote, nil
}

// CreateVote inserts vote. A second vote by the same user on the same
// target is a Conflict.
func (r *Repository) CreateVote(ctx context.Context, vote *models.Vote) error {
	err := r.conn(ctx).Create(vote).Error
	if isUniqueViolation(err) {
		return models.NewConflictError("vote already exists", err)
	}
	return translate("create vote", err)
}

// SetVotePolarity flips a stored vote and stamps it with now.
func (r *Repository) SetVotePolarity(ctx context.Context, vote *models.Vote) error {
	res := r.conn(ctx).Model(&models.Vote{}).Where("vote_id = ?", vote.ID).
		Updates(map[string]interface{}{"is_upvote": vote.IsUpvote, "created_at": vote.CreatedAt})
	if res.Error != nil {
		return translate("update vote", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("vote", vote.ID)
	}
	return nil
}

func (r *Repository) DeleteVote(ctx context.Context, id string) error {
	res := r.conn(ctx).Where("vote_id = ?", id).Delete(&models.Vote{})
	if res.Error != nil {
		return translate("delete vote", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("vote", id)
	}
	return nil
}

// VotesByUser lists a user's votes, newest first.
func (r *Repository) VotesByUser(ctx context.Context, userID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := r.conn(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("vote_id DESC").
		Find(&votes).Error
	if err != nil {
		return nil, translate("load votes", err)
	}
	return votes, nil
}

// TallyVotes counts up and down votes per target of the given kind.
// Targets without votes are absent from the map.
func (r *Repository) TallyVotes(ctx context.Context, kind models.TargetKind, ids []string) (map[string]Tally, error) {
	out := make(map[string]Tally, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	column := "post_id"
	q := r.conn(ctx).Model(&models.Vote{})
	if kind == models.TargetComment {
		column = "comment_id"
		q = q.Where("comment_id IN ?", ids)
	} else {
		q = q.Where("post_id IN ? AND comment_id IS NULL", ids)
	}

	var rows []struct {
		TargetID string
		Up       int64
		Down     int64
	}
	err := q.Select(column + " AS target_id, " +
		"SUM(CASE WHEN is_upvote THEN 1 ELSE 0 END) AS up, " +
		"SUM(CASE WHEN is_upvote THEN 0 ELSE 1 END) AS down").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, translate("tally votes", err)
	}
	for _, row := range rows {
		out[row.TargetID] = Tally{TargetID: row.TargetID, Up: row.Up, Down: row.Down}
	}
	return out, nil
}

// ViewerVotes returns userID's polarity on each voted target of the given kind.
func (r *Repository) ViewerVotes(ctx context.Context, userID string, kind models.TargetKind, ids []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if userID == "" || len(ids) == 0 {
		return out, nil
	}
	q := r.conn(ctx).Where("user_id = ?", userID)
	if kind == models.TargetComment {
		q = q.Where("comment_id IN ?", ids)
	} else {
		q = q.Where("post_id IN ? AND comment_id IS NULL", ids)
	}
	var votes []models.Vote
	if err := q.Find(&votes).Error; err != nil {
		return nil, translate("load viewer votes", err)
	}
	for _, v := range votes {
		out[v.Target().ID()] = v.IsUpvote
	}
	return out, nil
}
