package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asksenior/backend/internal/hierarchy"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
)

type TopicService struct {
	repo *repository.Repository
}

func (s *TopicService) List(ctx context.Context) ([]models.Topic, error) {
	return s.repo.ListTopics(ctx)
}

// Tree nests topics under their parents. Topics under a missing parent or
// on a parent cycle are left out.
func (s *TopicService) Tree(ctx context.Context) ([]*models.TopicNode, error) {
	topics, err := s.repo.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	return TopicTree(topics), nil
}

func TopicTree(topics []models.Topic) []*models.TopicNode {
	nodes := make([]*models.TopicNode, 0, len(topics))
	for _, t := range topics {
		nodes = append(nodes, &models.TopicNode{ID: t.ID, Name: t.Name, ParentID: t.ParentID, CreatedAt: t.CreatedAt})
	}
	return hierarchy.Build(nodes,
		func(n *models.TopicNode) string { return n.ID },
		func(n *models.TopicNode) (string, bool) {
			if n.ParentID == nil || *n.ParentID == "" {
				return "", false
			}
			return *n.ParentID, true
		},
		func(n *models.TopicNode, children []*models.TopicNode) { n.SubTopics = children },
	)
}

// CreateTopicRequest adds a topic, optionally under a parent.
type CreateTopicRequest struct {
	Name     string  `json:"name" binding:"required,max=64"`
	ParentID *string `json:"parent_id"`
}

// Create adds a topic. Only a platform admin may create topics.
func (s *TopicService) Create(ctx context.Context, actorID string, req CreateTopicRequest) (*models.Topic, error) {
	actor, err := loadActor(ctx, s.repo, actorID)
	if err != nil {
		return nil, err
	}
	if err := check(ctx, platformAdmin(actor), required("name", req.Name)); err != nil {
		return nil, err
	}
	topic := models.Topic{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: time.Now().UTC(),
	}
	if req.ParentID != nil && Clean(*req.ParentID) != "" {
		parentID := Clean(*req.ParentID)
		if err := check(ctx, topicsExist(s.repo, "parent_id", []string{parentID})); err != nil {
			return nil, err
		}
		topic.ParentID = &parentID
	}
	if err := s.repo.CreateTopic(ctx, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}
