package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/asksenior/backend/internal/models"
)

// GetMember returns the membership of userID in communityID.
func (r *Repository) GetMember(ctx context.Context, userID, communityID string) (*models.Member, error) {
	var member models.Member
	err := r.conn(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("membership", userID+"/"+communityID)
	}
	if err != nil {
		return nil, translate("load membership", err)
	}
	return &member, nil
}

// AddMember inserts a membership; an existing one is a Conflict.
func (r *Repository) AddMember(ctx context.Context, member *models.Member) error {
	err := r.conn(ctx).Create(member).Error
	if isUniqueViolation(err) {
		return models.NewConflictError("user already joined the community", err)
	}
	return translate("add member", err)
}

func (r *Repository) RemoveMember(ctx context.Context, userID, communityID string) error {
	res := r.conn(ctx).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Delete(&models.Member{})
	if res.Error != nil {
		return translate("remove member", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("membership", userID+"/"+communityID)
	}
	return nil
}

// JoinedCommunities reports which of communityIDs userID is a member of.
func (r *Repository) JoinedCommunities(ctx context.Context, userID string, communityIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(communityIDs))
	if userID == "" || len(communityIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := r.conn(ctx).Model(&models.Member{}).
		Where("user_id = ? AND community_id IN ?", userID, communityIDs).
		Pluck("community_id", &ids).Error
	if err != nil {
		return nil, translate("load memberships", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Members lists the members of a community, oldest first.
func (r *Repository) Members(ctx context.Context, communityID string) ([]models.Member, error) {
	var members []models.Member
	err := r.conn(ctx).Where("community_id = ?", communityID).Order("created_at ASC").Find(&members).Error
	if err != nil {
		return nil, translate("load members", err)
	}
	return members, nil
}

// CountMembers returns member counts keyed by community id.
func (r *Repository) CountMembers(ctx context.Context, communityIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(communityIDs))
	if len(communityIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		CommunityID string
		Total       int64
	}
	err := r.conn(ctx).Model(&models.Member{}).
		Select("community_id, COUNT(*) AS total").
		Where("community_id IN ?", communityIDs).
		Group("community_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("count members", err)
	}
	for _, row := range rows {
		out[row.CommunityID] = row.Total
	}
	return out, nil
}
