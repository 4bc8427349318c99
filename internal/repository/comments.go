package repository

import (
	"context"

	"github.com/asksenior/backend/internal/models"
)

// CommentCriteria narrows FindComments. Zero fields do not filter.
type CommentCriteria struct {
	IDs    []string
	PostID string
	UserID string
}

// FindComments returns matching comments, newest first.
func (r *Repository) FindComments(ctx context.Context, c CommentCriteria) ([]models.Comment, error) {
	q := r.conn(ctx).Model(&models.Comment{})
	if c.IDs != nil {
		if len(c.IDs) == 0 {
			return []models.Comment{}, nil
		}
		q = q.Where("comment_id IN ?", c.IDs)
	}
	if c.PostID != "" {
		q = q.Where("post_id = ?", c.PostID)
	}
	if c.UserID != "" {
		q = q.Where("user_id = ?", c.UserID)
	}

	var comments []models.Comment
	if err := q.Order("created_at DESC").Order("comment_id DESC").Find(&comments).Error; err != nil {
		return nil, translate("load comments", err)
	}
	return comments, nil
}

func (r *Repository) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := first(r.conn(ctx).Where("comment_id = ?", id), &comment, "comment", id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// CommentsByIDs returns the comments found among ids, keyed by id.
func (r *Repository) CommentsByIDs(ctx context.Context, ids []string) (map[string]models.Comment, error) {
	out := make(map[string]models.Comment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	comments, err := r.FindComments(ctx, CommentCriteria{IDs: ids})
	if err != nil {
		return nil, err
	}
	for _, cm := range comments {
		out[cm.ID] = cm
	}
	return out, nil
}

func (r *Repository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return translate("create comment", r.conn(ctx).Create(comment).Error)
}

func (r *Repository) UpdateCommentContent(ctx context.Context, id, content string) error {
	res := r.conn(ctx).Model(&models.Comment{}).Where("comment_id = ?", id).Update("content", content)
	if res.Error != nil {
		return translate("update comment", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("comment", id)
	}
	return nil
}

// DeleteComments removes the given comments and the votes on them.
// Call it inside Transaction.
func (r *Repository) DeleteComments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := r.conn(ctx)
	if err := q.Where("comment_id IN ?", ids).Delete(&models.Vote{}).Error; err != nil {
		return translate("delete comment votes", err)
	}
	if err := q.Where("comment_id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
		return translate("delete comments", err)
	}
	return nil
}
