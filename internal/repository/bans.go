package repository

import (
	"context"

	"github.com/asksenior/backend/internal/models"
)

func banColumn(kind models.BanKind) string {
	switch kind {
	case models.BanUser:
		return "user_id"
	case models.BanCommunity:
		return "community_id"
	}
	return "post_id"
}

func (r *Repository) CreateBan(ctx context.Context, ban *models.Banned) error {
	return translate("create ban", r.conn(ctx).Create(ban).Error)
}

// DeleteBans removes every ban record of target and reports how many there were.
func (r *Repository) DeleteBans(ctx context.Context, target models.BanTarget) (int64, error) {
	res := r.conn(ctx).Where(banColumn(target.Kind())+" = ?", target.TargetID()).Delete(&models.Banned{})
	if res.Error != nil {
		return 0, translate("delete bans", res.Error)
	}
	return res.RowsAffected, nil
}

// ListBans returns ban records, newest first. An empty kind lists all kinds.
func (r *Repository) ListBans(ctx context.Context, kind models.BanKind) ([]models.Banned, error) {
	q := r.conn(ctx).Model(&models.Banned{})
	if kind != "" {
		q = q.Where(banColumn(kind) + " IS NOT NULL")
	}
	var bans []models.Banned
	if err := q.Order("created_at DESC").Find(&bans).Error; err != nil {
		return nil, translate("load bans", err)
	}
	return bans, nil
}
