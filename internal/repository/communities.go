package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"github.com/asksenior/backend/internal/models"
)

// CommunityCriteria narrows FindCommunities. Zero fields do not filter.
type CommunityCriteria struct {
	IDs []string
	// NameContains matches a case-insensitive substring of the name.
	NameContains string
	// NameEquals matches the whole name case-insensitively.
	NameEquals string
	AdminID    string
}

func (r *Repository) FindCommunities(ctx context.Context, c CommunityCriteria) ([]models.Community, error) {
	q := r.conn(ctx).Model(&models.Community{})
	if c.IDs != nil {
		if len(c.IDs) == 0 {
			return []models.Community{}, nil
		}
		q = q.Where("id IN ?", c.IDs)
	}
	if c.NameContains != "" {
		q = q.Where(likeClause("name"), likePattern(c.NameContains))
	}
	if c.NameEquals != "" {
		q = q.Where("LOWER(name) = ?", strings.ToLower(c.NameEquals))
	}
	if c.AdminID != "" {
		q = q.Where("admin_id = ?", c.AdminID)
	}

	var communities []models.Community
	if err := q.Order("created_at DESC").Find(&communities).Error; err != nil {
		return nil, translate("load communities", err)
	}
	return communities, nil
}

func (r *Repository) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	if err := first(r.conn(ctx).Where("id = ?", id), &community, "community", id); err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *Repository) CreateCommunity(ctx context.Context, community *models.Community) error {
	return translate("create community", r.conn(ctx).Create(community).Error)
}

func (r *Repository) UpdateCommunity(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.conn(ctx).Model(&models.Community{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate("update community", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("community", id)
	}
	return nil
}

func (r *Repository) SetCommunityBanned(ctx context.Context, id string, banned bool) error {
	return r.UpdateCommunity(ctx, id, map[string]interface{}{"is_banned": banned})
}

// LinkTopics adds community-topic links, ignoring ones that already exist.
func (r *Repository) LinkTopics(ctx context.Context, communityID string, topicIDs []string) error {
	if len(topicIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	links := make([]models.CommunityTopic, 0, len(topicIDs))
	for _, id := range topicIDs {
		links = append(links, models.CommunityTopic{CommunityID: communityID, TopicID: id, CreatedAt: now})
	}
	err := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	return translate("link community topics", err)
}

// CommunityTopicLinks returns the links of the given communities.
func (r *Repository) CommunityTopicLinks(ctx context.Context, communityIDs []string) ([]models.CommunityTopic, error) {
	if len(communityIDs) == 0 {
		return nil, nil
	}
	var links []models.CommunityTopic
	err := r.conn(ctx).Where("community_id IN ?", communityIDs).Order("created_at ASC").Find(&links).Error
	if err != nil {
		return nil, translate("load community topics", err)
	}
	return links, nil
}

// likeClause matches column case-insensitively against a likePattern.
func likeClause(column string) string {
	return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
}

func likePattern(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
	return "%" + escaped + "%"
}
