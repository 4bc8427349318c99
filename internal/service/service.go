// Package service holds the forum's business rules and the aggregation of
// flat rows into response views.
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
	"github.com/asksenior/backend/internal/storage"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Services bundles every service over one repository and object store.
type Services struct {
	Users       *UserService
	Topics      *TopicService
	Communities *CommunityService
	Posts       *PostService
	Comments    *CommentService
	Votes       *VoteService
	Moderation  *ModerationService
}

func New(repo *repository.Repository, store storage.ObjectStore) *Services {
	comments := &CommentService{repo: repo}
	posts := &PostService{repo: repo, store: store}
	moderation := &ModerationService{repo: repo}
	return &Services{
		Users:       &UserService{repo: repo, store: store},
		Topics:      &TopicService{repo: repo},
		Communities: &CommunityService{repo: repo, store: store, moderation: moderation},
		Posts:       posts,
		Comments:    comments,
		Votes:       &VoteService{repo: repo, posts: posts, comments: comments},
		Moderation:  moderation,
	}
}

// Upload is an image received with a form.
type Upload struct {
	Field    string
	Filename string
	Data     []byte
}

// Clean treats blank, "null" and "undefined" query values as absent.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "undefined":
		return ""
	}
	return s
}

// Paging normalises a requested page and page size.
func Paging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// uploadImage validates and stores one image under prefix.
func uploadImage(ctx context.Context, store storage.ObjectStore, prefix string, up Upload) (url, path string, err error) {
	contentType, err := storage.ValidateImage(up.Field, up.Data)
	if err != nil {
		return "", "", err
	}
	path = storage.ObjectPath(prefix, up.Filename)
	url, err = store.Upload(ctx, up.Data, path, contentType)
	if err != nil {
		return "", "", err
	}
	return url, path, nil
}

// discard removes objects whose database rows were not written or were
// deleted. Failures are logged, not returned.
func discard(ctx context.Context, store storage.ObjectStore, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := store.Delete(context.WithoutCancel(ctx), paths); err != nil {
		logger.L.Warn("failed to remove stored objects", zap.Strings("paths", paths), zap.Error(err))
	}
}

func topicRefs(ids []string, topics map[string]models.Topic) []models.TopicRef {
	refs := make([]models.TopicRef, 0, len(ids))
	for _, id := range ids {
		if t, ok := topics[id]; ok {
			refs = append(refs, models.TopicRef{ID: t.ID, Name: t.Name})
		}
	}
	return refs
}

func uniq(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func boolPtr(m map[string]bool, id string) *bool {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}
