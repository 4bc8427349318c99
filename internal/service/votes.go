package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
)

type VoteService struct {
	repo     *repository.Repository
	posts    *PostService
	comments *CommentService
	now      func() time.Time
}

func (s *VoteService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// Cast toggles the caller's vote on target: a first vote is created, the
// same polarity again removes it and the opposite polarity flips it.
func (s *VoteService) Cast(ctx context.Context, userID string, target models.VoteTarget, isUpvote bool) (*models.VoteOutcome, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	actor, err := loadActor(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	if err := check(ctx, notBanned(actor, "vote")); err != nil {
		return nil, err
	}
	target, err = s.resolve(ctx, target)
	if err != nil {
		return nil, err
	}

	var outcome *models.VoteOutcome
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		existing, err := tx.FindVote(ctx, actor.ID, target)
		switch {
		case err == nil:
			outcome, err = s.toggle(ctx, tx, existing, isUpvote)
			return err
		case !models.IsKind(err, models.KindNotFound):
			return err
		}

		vote := s.newVote(actor.ID, target, isUpvote)
		// The insert runs in a savepoint so a lost race leaves the outer
		// transaction usable.
		err = tx.Transaction(ctx, func(inner *repository.Repository) error {
			return inner.CreateVote(ctx, vote)
		})
		if models.IsKind(err, models.KindConflict) {
			outcome, err = s.resolveConflict(ctx, tx, actor.ID, target, isUpvote)
			return err
		}
		if err != nil {
			return err
		}
		outcome = &models.VoteOutcome{Action: models.VoteCreated, Vote: vote}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// resolve checks that the target exists and fills the post id of a
// comment target.
func (s *VoteService) resolve(ctx context.Context, target models.VoteTarget) (models.VoteTarget, error) {
	if target.Kind == models.TargetComment {
		comment, err := s.repo.GetComment(ctx, target.CommentID)
		if err != nil {
			return target, err
		}
		target.PostID = comment.PostID
		return target, nil
	}
	post, err := s.repo.GetPost(ctx, target.PostID)
	if err != nil {
		return target, err
	}
	if post.IsBanned {
		return target, models.NewForbiddenError("post is banned")
	}
	return target, nil
}

func (s *VoteService) newVote(userID string, target models.VoteTarget, isUpvote bool) *models.Vote {
	vote := &models.Vote{
		ID:        uuid.NewString(),
		UserID:    userID,
		IsUpvote:  isUpvote,
		CreatedAt: s.clock(),
	}
	if target.PostID != "" {
		postID := target.PostID
		vote.PostID = &postID
	}
	if target.Kind == models.TargetComment {
		commentID := target.CommentID
		vote.CommentID = &commentID
	}
	return vote
}

func (s *VoteService) toggle(ctx context.Context, tx *repository.Repository, existing *models.Vote, isUpvote bool) (*models.VoteOutcome, error) {
	if existing.IsUpvote == isUpvote {
		if err := tx.DeleteVote(ctx, existing.ID); err != nil {
			return nil, err
		}
		return &models.VoteOutcome{Action: models.VoteRemoved}, nil
	}
	existing.IsUpvote = isUpvote
	existing.CreatedAt = s.clock()
	if err := tx.SetVotePolarity(ctx, existing); err != nil {
		return nil, err
	}
	return &models.VoteOutcome{Action: models.VoteUpdated, Vote: existing}, nil
}

// resolveConflict handles an insert that lost a race with a concurrent
// insert of the same vote: the stored row is set to the requested polarity.
func (s *VoteService) resolveConflict(ctx context.Context, tx *repository.Repository, userID string, target models.VoteTarget, isUpvote bool) (*models.VoteOutcome, error) {
	existing, err := tx.FindVote(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	logger.L.Info("vote insert conflicted, updating existing vote",
		zap.String("user_id", userID), zap.String("target", target.ID()))
	existing.IsUpvote = isUpvote
	existing.CreatedAt = s.clock()
	if err := tx.SetVotePolarity(ctx, existing); err != nil {
		return nil, err
	}
	return &models.VoteOutcome{Action: models.VoteUpdated, Vote: existing}, nil
}

// Delete removes one of the caller's votes by id.
func (s *VoteService) Delete(ctx context.Context, userID, voteID string) error {
	vote, err := s.repo.GetVote(ctx, voteID)
	if err != nil {
		return err
	}
	if vote.UserID != userID {
		return models.NewForbiddenError("you can only delete your own vote")
	}
	return s.repo.DeleteVote(ctx, vote.ID)
}

// ListByUser returns the items userID voted on, most recent vote first.
// Items that are gone or hidden by a ban are skipped.
func (s *VoteService) ListByUser(ctx context.Context, userID, viewerID string) ([]*models.VotedItem, error) {
	votes, err := s.repo.VotesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var postIDs, commentIDs []string
	for _, v := range votes {
		t := v.Target()
		if t.Kind == models.TargetComment {
			commentIDs = append(commentIDs, t.CommentID)
		} else {
			postIDs = append(postIDs, t.PostID)
		}
	}

	posts, err := s.repo.FindPosts(ctx, repository.PostCriteria{IDs: uniq(postIDs), ListableOnly: true})
	if err != nil {
		return nil, err
	}
	postViews, err := s.posts.views(ctx, posts, viewerID)
	if err != nil {
		return nil, err
	}
	byPost := make(map[string]*models.PostView, len(postViews))
	for _, v := range postViews {
		byPost[v.ID] = v
	}

	comments, err := s.repo.FindComments(ctx, repository.CommentCriteria{IDs: uniq(commentIDs)})
	if err != nil {
		return nil, err
	}
	commentViews, err := s.comments.views(ctx, comments, viewerID)
	if err != nil {
		return nil, err
	}
	byComment := make(map[string]*models.CommentView, len(commentViews))
	for _, v := range commentViews {
		byComment[v.CommentID] = v
	}

	out := make([]*models.VotedItem, 0, len(votes))
	for _, v := range votes {
		t := v.Target()
		if t.Kind == models.TargetComment {
			if c, ok := byComment[t.CommentID]; ok {
				out = append(out, commentItem(c, v.CreatedAt))
			}
			continue
		}
		if p, ok := byPost[t.PostID]; ok {
			out = append(out, postItem(p, v.CreatedAt))
		}
	}
	return out, nil
}

func postItem(p *models.PostView, votedAt time.Time) *models.VotedItem {
	id, title, text, topic := p.ID, p.Title, p.Text, p.TopicName
	return &models.VotedItem{
		Type:          models.TargetPost,
		PostID:        &id,
		UserID:        p.UserID,
		UserName:      p.UserName,
		AvatarURL:     p.AvatarURL,
		TopicName:     &topic,
		CommunityName: p.CommunityName,
		Title:         &title,
		Text:          &text,
		Images:        p.Images,
		TotalComment:  p.TotalComment,
		TotalUpvote:   p.TotalUpvote,
		TotalDownvote: p.TotalDownvote,
		CreatedAt:     p.CreatedAt,
		VoteCreatedAt: votedAt,
		SelfVote:      p.SelfVote,
	}
}

func commentItem(c *models.CommentView, votedAt time.Time) *models.VotedItem {
	postID, commentID, content := c.PostID, c.CommentID, c.Content
	return &models.VotedItem{
		Type:            models.TargetComment,
		PostID:          &postID,
		CommentID:       &commentID,
		UserID:          c.UserID,
		UserName:        c.UserName,
		AvatarURL:       c.AvatarURL,
		Images:          []models.ImageRef{},
		CommentContent:  &content,
		ReplyToUserID:   c.ReplyToUserID,
		ReplyToUserName: c.ReplyToUserName,
		ReplyToContent:  c.ReplyToContent,
		TotalUpvote:     c.TotalUpvote,
		TotalDownvote:   c.TotalDownvote,
		CreatedAt:       c.CreatedAt,
		VoteCreatedAt:   votedAt,
		SelfVote:        c.SelfVote,
	}
}
