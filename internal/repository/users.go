package repository

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/asksenior/backend/internal/models"
)

func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := first(r.conn(ctx).Where("id = ?", id), &user, "user", id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UsersByIDs returns the users found among ids, keyed by id.
func (r *Repository) UsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate("load users", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return translate("create user", r.conn(ctx).Create(user).Error)
}

// UpdateUser writes the given columns of one user.
func (r *Repository) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("user", id)
	}
	return nil
}

func (r *Repository) SetUserBanned(ctx context.Context, id string, banned bool) error {
	return r.UpdateUser(ctx, id, map[string]interface{}{"is_banned": banned})
}

// ReplaceTopicPreferences makes topicIDs the complete preference set of a user.
func (r *Repository) ReplaceTopicPreferences(ctx context.Context, userID string, topicIDs []string) error {
	q := r.conn(ctx)
	if err := q.Where("user_id = ?", userID).Delete(&models.UserTopicPreference{}).Error; err != nil {
		return translate("clear topic preferences", err)
	}
	if len(topicIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	prefs := make([]models.UserTopicPreference, 0, len(topicIDs))
	for _, id := range topicIDs {
		prefs = append(prefs, models.UserTopicPreference{UserID: userID, TopicID: id, CreatedAt: now})
	}
	err := q.Clauses(clause.OnConflict{DoNothing: true}).Create(&prefs).Error
	return translate("save topic preferences", err)
}

func (r *Repository) TopicPreferences(ctx context.Context, userID string) ([]models.UserTopicPreference, error) {
	var prefs []models.UserTopicPreference
	err := r.conn(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&prefs).Error
	if err != nil {
		return nil, translate("load topic preferences", err)
	}
	return prefs, nil
}
