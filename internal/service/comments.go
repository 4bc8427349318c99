package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/asksenior/backend/internal/hierarchy"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
)

type CommentService struct {
	repo *repository.Repository
}

// CommentQuery selects comments. ViewerID only fills SelfVote and never
// narrows the result.
type CommentQuery struct {
	PostID   string
	UserID   string
	ViewerID string
}

// List returns matching comments, newest first, each with its author, the
// comment it replies to and its vote tallies.
func (s *CommentService) List(ctx context.Context, q CommentQuery) ([]*models.CommentView, error) {
	comments, err := s.repo.FindComments(ctx, repository.CommentCriteria{PostID: q.PostID, UserID: q.UserID})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, comments, q.ViewerID)
}

// Thread returns the comments of a post as a reply tree. Replies whose
// parent no longer exists are left out.
func (s *CommentService) Thread(ctx context.Context, postID, viewerID string) ([]*models.CommentView, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	flat, err := s.List(ctx, CommentQuery{PostID: postID, ViewerID: viewerID})
	if err != nil {
		return nil, err
	}
	return hierarchy.Build(flat,
		func(c *models.CommentView) string { return c.CommentID },
		func(c *models.CommentView) (string, bool) {
			if c.ParentID == nil {
				return "", false
			}
			return *c.ParentID, true
		},
		func(c *models.CommentView, children []*models.CommentView) { c.SubComments = children },
	), nil
}

// views enriches comments in their given order.
func (s *CommentService) views(ctx context.Context, comments []models.Comment, viewerID string) ([]*models.CommentView, error) {
	if len(comments) == 0 {
		return []*models.CommentView{}, nil
	}

	ids := make([]string, 0, len(comments))
	known := make(map[string]models.Comment, len(comments))
	var missingParents []string
	for _, c := range comments {
		ids = append(ids, c.ID)
		known[c.ID] = c
	}
	for _, c := range comments {
		if c.ParentID != nil {
			if _, ok := known[*c.ParentID]; !ok {
				missingParents = append(missingParents, *c.ParentID)
			}
		}
	}

	var (
		parents map[string]models.Comment
		tallies map[string]repository.Tally
		mine    map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		parents, err = s.repo.CommentsByIDs(gctx, uniq(missingParents))
		return err
	})
	g.Go(func() (err error) {
		tallies, err = s.repo.TallyVotes(gctx, models.TargetComment, ids)
		return err
	})
	g.Go(func() (err error) {
		mine, err = s.repo.ViewerVotes(gctx, viewerID, models.TargetComment, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for id, p := range parents {
		known[id] = p
	}

	userIDs := make([]string, 0, len(comments)*2)
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
		if c.ParentID != nil {
			if p, ok := known[*c.ParentID]; ok {
				userIDs = append(userIDs, p.UserID)
			}
		}
	}
	users, err := s.repo.UsersByIDs(ctx, uniq(userIDs))
	if err != nil {
		return nil, err
	}

	out := make([]*models.CommentView, 0, len(comments))
	for _, c := range comments {
		author := users[c.UserID]
		tally := tallies[c.ID]
		v := &models.CommentView{
			CommentID:     c.ID,
			PostID:        c.PostID,
			UserID:        c.UserID,
			UserName:      author.Name,
			AvatarURL:     author.AvatarURL,
			Content:       c.Content,
			ParentID:      c.ParentID,
			TotalUpvote:   tally.Up,
			TotalDownvote: tally.Down,
			SelfVote:      boolPtr(mine, c.ID),
			CreatedAt:     c.CreatedAt,
		}
		if c.ParentID != nil {
			if p, ok := known[*c.ParentID]; ok {
				replyUser := users[p.UserID]
				v.ReplyToUserID = &p.UserID
				v.ReplyToUserName = &replyUser.Name
				v.ReplyToContent = &p.Content
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// Create adds a comment to a post, optionally as a reply to another
// comment on the same post.
func (s *CommentService) Create(ctx context.Context, userID string, req models.CreateCommentRequest) (*models.CommentView, error) {
	actor, err := loadActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if err := check(ctx,
		notBanned(actor, "comment"),
		required("post_id", req.PostID),
		required("content", req.Content),
	); err != nil {
		return nil, err
	}

	post, err := s.repo.GetPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if post.IsBanned {
		return nil, models.NewForbiddenError("post is banned")
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		PostID:    post.ID,
		UserID:    actor.ID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: time.Now().UTC(),
	}
	if req.ParentID != nil && Clean(*req.ParentID) != "" {
		parent, err := s.repo.GetComment(ctx, Clean(*req.ParentID))
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.NewValidationError("parent_id", "parent comment does not exist")
		}
		if err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, models.NewValidationError("parent_id", "parent comment belongs to another post")
		}
		comment.ParentID = &parent.ID
	}

	if err := s.repo.CreateComment(ctx, &comment); err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Comment{comment}, actor.ID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Edit replaces the content of the caller's own comment.
func (s *CommentService) Edit(ctx context.Context, userID, commentID string, req models.EditCommentRequest) (*models.CommentView, error) {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := check(ctx,
		required("content", req.Content),
		func(context.Context) error {
			if comment.UserID != userID {
				return models.NewForbiddenError("you can only edit your own comment")
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	comment.Content = strings.TrimSpace(req.Content)
	if err := s.repo.UpdateCommentContent(ctx, comment.ID, comment.Content); err != nil {
		return nil, err
	}
	views, err := s.views(ctx, []models.Comment{*comment}, userID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Delete removes a comment with every reply below it and their votes. The
// author or a platform admin may delete. It returns the removed ids.
func (s *CommentService) Delete(ctx context.Context, userID, commentID string) ([]string, error) {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		actor, err := loadActor(ctx, s.repo, userID)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin() {
			return nil, models.NewForbiddenError("you can only delete your own comment")
		}
	}

	var removed []string
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		siblings, err := tx.FindComments(ctx, repository.CommentCriteria{PostID: comment.PostID})
		if err != nil {
			return err
		}
		idx := hierarchy.NewIndex(siblings,
			func(c models.Comment) string { return c.ID },
			func(c models.Comment) (string, bool) {
				if c.ParentID == nil {
					return "", false
				}
				return *c.ParentID, true
			},
		)
		removed = []string{comment.ID}
		for pos, c := range siblings {
			if c.ID != comment.ID {
				continue
			}
			for _, d := range idx.Descendants(pos) {
				removed = append(removed, siblings[d].ID)
			}
			break
		}
		return tx.DeleteComments(ctx, removed)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
