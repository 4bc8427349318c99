package repository

import (
	"context"

	"github.com/asksenior/backend/internal/models"
)

func (r *Repository) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := r.conn(ctx).Order("created_at ASC").Order("name ASC").Find(&topics).Error; err != nil {
		return nil, translate("load topics", err)
	}
	return topics, nil
}

func (r *Repository) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	var topic models.Topic
	if err := first(r.conn(ctx).Where("id = ?", id), &topic, "topic", id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// TopicsByIDs returns the topics found among ids, keyed by id. Unknown ids are skipped.
func (r *Repository) TopicsByIDs(ctx context.Context, ids []string) (map[string]models.Topic, error) {
	out := make(map[string]models.Topic, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var topics []models.Topic
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&topics).Error; err != nil {
		return nil, translate("load topics", err)
	}
	for _, t := range topics {
		out[t.ID] = t
	}
	return out, nil
}

func (r *Repository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	return translate("create topic", r.conn(ctx).Create(topic).Error)
}
