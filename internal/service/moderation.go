package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
)

// ModerationService bans and unbans posts, users and communities. Every
// action requires a platform admin.
type ModerationService struct {
	repo *repository.Repository
}

func (s *ModerationService) authorize(ctx context.Context, actorID string) (*models.User, error) {
	actor, err := loadActor(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}
	if err := check(ctx, platformAdmin(actor)); err != nil {
		return nil, err
	}
	return actor, nil
}

// banned reports the current ban flag of target, or NotFound.
func (s *ModerationService) banned(ctx context.Context, repo *repository.Repository, target models.BanTarget) (bool, error) {
	switch t := target.(type) {
	case models.PostBan:
		p, err := repo.GetPost(ctx, t.PostID)
		if err != nil {
			return false, err
		}
		return p.IsBanned, nil
	case models.UserBan:
		u, err := repo.GetUser(ctx, t.UserID)
		if err != nil {
			return false, err
		}
		return u.IsBanned, nil
	case models.CommunityBan:
		c, err := repo.GetCommunity(ctx, t.CommunityID)
		if err != nil {
			return false, err
		}
		return c.IsBanned, nil
	}
	return false, models.NewValidationError("kind", "unknown ban target")
}

func setBanned(ctx context.Context, repo *repository.Repository, target models.BanTarget, banned bool) error {
	switch t := target.(type) {
	case models.PostBan:
		return repo.SetPostBanned(ctx, t.PostID, banned)
	case models.UserBan:
		return repo.SetUserBanned(ctx, t.UserID, banned)
	case models.CommunityBan:
		return repo.SetCommunityBanned(ctx, t.CommunityID, banned)
	}
	return models.NewValidationError("kind", "unknown ban target")
}

// Ban flags target as banned and records why.
func (s *ModerationService) Ban(ctx context.Context, actorID string, target models.BanTarget, reason string) (*models.BanView, error) {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := check(ctx, required("reason", reason)); err != nil {
		return nil, err
	}
	if u, ok := target.(models.UserBan); ok && u.UserID == actor.ID {
		return nil, models.NewForbiddenError("you cannot ban yourself")
	}

	record := models.NewBanned(uuid.NewString(), target, strings.TrimSpace(reason))
	record.CreatedAt = time.Now().UTC()
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		already, err := s.banned(ctx, tx, target)
		if err != nil {
			return err
		}
		if already {
			return models.NewConflictError(string(target.Kind())+" "+target.TargetID()+" is already banned", nil)
		}
		if err := setBanned(ctx, tx, target, true); err != nil {
			return err
		}
		return tx.CreateBan(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	logger.L.Info("target banned",
		zap.String("kind", string(target.Kind())),
		zap.String("target_id", target.TargetID()),
		zap.String("by", actor.ID))
	return banView(record, target), nil
}

// Unban clears the ban flag of target and deletes its ban records.
func (s *ModerationService) Unban(ctx context.Context, actorID string, target models.BanTarget) error {
	actor, err := s.authorize(ctx, actorID)
	if err != nil {
		return err
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		isBanned, err := s.banned(ctx, tx, target)
		if err != nil {
			return err
		}
		removed, err := tx.DeleteBans(ctx, target)
		if err != nil {
			return err
		}
		if !isBanned && removed == 0 {
			return models.NewNotFoundError("ban", target.TargetID())
		}
		return setBanned(ctx, tx, target, false)
	})
	if err != nil {
		return err
	}
	logger.L.Info("target unbanned",
		zap.String("kind", string(target.Kind())),
		zap.String("target_id", target.TargetID()),
		zap.String("by", actor.ID))
	return nil
}

// List returns ban records, newest first. An empty kind lists every kind.
func (s *ModerationService) List(ctx context.Context, actorID string, kind models.BanKind) ([]models.BanView, error) {
	if _, err := s.authorize(ctx, actorID); err != nil {
		return nil, err
	}
	switch kind {
	case "", models.BanPost, models.BanUser, models.BanCommunity:
	default:
		return nil, models.NewValidationError("kind", "unknown ban kind "+string(kind))
	}
	records, err := s.repo.ListBans(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]models.BanView, 0, len(records))
	for i := range records {
		target, err := records[i].Target()
		if err != nil {
			logger.L.Warn("skipping malformed ban record", zap.String("id", records[i].ID), zap.Error(err))
			continue
		}
		out = append(out, *banView(&records[i], target))
	}
	return out, nil
}

func banView(b *models.Banned, target models.BanTarget) *models.BanView {
	return &models.BanView{
		ID:        b.ID,
		Kind:      target.Kind(),
		TargetID:  target.TargetID(),
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
}
