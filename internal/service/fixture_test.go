package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/repository"
	"github.com/asksenior/backend/internal/testutil"
)

// memStore is an in-memory object store.
type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	failAfter int
	uploads   int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, failAfter: -1}
}

func (m *memStore) Upload(_ context.Context, data []byte, path, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter >= 0 && m.uploads >= m.failAfter {
		return "", models.NewUpstreamError("upload "+path, errors.New("bucket unavailable"))
	}
	m.uploads++
	m.objects[path] = data
	return "https://cdn.test/" + path, nil
}

func (m *memStore) Delete(_ context.Context, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.objects, p)
		m.deleted = append(m.deleted, p)
	}
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

var pngData = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	repo  *repository.Repository
	svc   *Services
	store *memStore
	seq   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.New(testutil.NewDB(t))
	store := newMemStore()
	return &fixture{t: t, ctx: context.Background(), repo: repo, svc: New(repo, store), store: store}
}

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func minute(n int) time.Time {
	return epoch.Add(time.Duration(n) * time.Minute)
}

func (f *fixture) user(id string, mutate ...func(*models.User)) *models.User {
	u := &models.User{ID: id, Name: "name-" + id, AvatarURL: "https://cdn.test/" + id + ".png", Role: models.RoleUser}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(f.t, f.repo.CreateUser(f.ctx, u))
	return u
}

func admin(u *models.User) { u.Role = models.RoleAdmin }

func (f *fixture) topic(id string, parentID *string) {
	f.seq++
	require.NoError(f.t, f.repo.CreateTopic(f.ctx, &models.Topic{ID: id, Name: "topic-" + id, ParentID: parentID, CreatedAt: minute(f.seq)}))
}

func (f *fixture) community(id, adminID string, mutate ...func(*models.Community)) *models.Community {
	c := &models.Community{ID: id, AdminID: adminID, Name: "community-" + id}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(f.t, f.repo.CreateCommunity(f.ctx, c))
	require.NoError(f.t, f.repo.AddMember(f.ctx, &models.Member{UserID: adminID, CommunityID: id, Status: models.MemberStatusJoined}))
	return c
}

func (f *fixture) post(id, userID string, at time.Time, mutate ...func(*models.Post)) *models.Post {
	p := &models.Post{ID: id, UserID: userID, TopicID: "t1", Title: "title " + id, Text: "text " + id, CreatedAt: at}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(f.t, f.repo.CreatePost(f.ctx, p))
	return p
}

func (f *fixture) comment(id, postID, userID string, parentID *string, at time.Time) *models.Comment {
	c := &models.Comment{ID: id, PostID: postID, UserID: userID, Content: "content " + id, ParentID: parentID, CreatedAt: at}
	require.NoError(f.t, f.repo.CreateComment(f.ctx, c))
	return c
}

func (f *fixture) vote(id, userID string, postID string, commentID *string, up bool) {
	v := &models.Vote{ID: id, UserID: userID, PostID: &postID, CommentID: commentID, IsUpvote: up}
	require.NoError(f.t, f.repo.CreateVote(f.ctx, v))
}

func (f *fixture) votesOf(userID string) []models.Vote {
	votes, err := f.repo.VotesByUser(f.ctx, userID)
	require.NoError(f.t, err)
	return votes
}

func strPtr(s string) *string { return &s }
