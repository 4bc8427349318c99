package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asksenior/backend/internal/models"
)

func postViewIDs(views []*models.PostView) []string {
	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestPostList_HidesBannedPostsAndCommunities(t *testing.T) {
	f := newFixture(t)
	f.user("alice")
	f.topic("t1", nil)
	f.community("open", "alice")
	f.community("closed", "alice", func(c *models.Community) { c.IsBanned = true })

	f.post("global", "alice", minute(1))
	f.post("banned", "alice", minute(2), func(p *models.Post) { p.IsBanned = true })
	f.post("in-open", "alice", minute(3), func(p *models.Post) { p.CommunityID = strPtr("open") })
	f.post("in-closed", "alice", minute(4), func(p *models.Post) { p.CommunityID = strPtr("closed") })

	queries := []PostQuery{
		{},
		{UserID: "alice"},
		{TopicID: "t1"},
		{CommunityID: "closed"},
		{Keyword: "title"},
		{Page: 1, PageSize: 100},
	}
	for _, q := range queries {
		got, err := f.svc.Posts.List(f.ctx, q)
		require.NoError(t, err)
		for _, id := range postViewIDs(got) {
			assert.NotEqual(t, "banned", id, "query %+v", q)
			assert.NotEqual(t, "in-closed", id, "query %+v", q)
		}
	}

	got, err := f.svc.Posts.List(f.ctx, PostQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"in-open", "global"}, postViewIDs(got))

	_, err = f.svc.Posts.Get(f.ctx, "in-closed", "")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))

	// unbanning the community brings its posts back without touching them
	require.NoError(t, f.repo.SetCommunityBanned(f.ctx, "closed", false))
	got, err = f.svc.Posts.List(f.ctx, PostQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"in-closed", "in-open", "global"}, postViewIDs(got))
}

func TestPostList_Paging(t *testing.T) {
	f := newFixture(t)
	f.user("alice")
	for i := 0; i < 25; i++ {
		f.post(fmt.Sprintf("p%02d", i), "alice", minute(i))
	}

	got, err := f.svc.Posts.List(f.ctx, PostQuery{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, "p14", got[0].ID)
	assert.Equal(t, "p05", got[9].ID)

	got, err = f.svc.Posts.List(f.ctx, PostQuery{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = f.svc.Posts.List(f.ctx, PostQuery{})
	require.NoError(t, err)
	assert.Len(t, got, DefaultPageSize)
}

func TestPostViews_Aggregates(t *testing.T) {
	f := newFixture(t)
	f.user("alice")
	f.topic("t1", nil)
	f.community("g1", "alice")
	f.post("p1", "alice", minute(1), func(p *models.Post) { p.CommunityID = strPtr("g1") })
	require.NoError(t, f.repo.AddPostImages(f.ctx, []models.PostImage{
		{ImageID: "i2", PostID: "p1", ImageURL: "https://cdn.test/2.png", Position: 1},
		{ImageID: "i1", PostID: "p1", ImageURL: "https://cdn.test/1.png", Position: 0},
	}))
	f.comment("c1", "p1", "alice", nil, minute(2))
	f.comment("c2", "p1", "alice", strPtr("c1"), minute(3))
	f.vote("v1", "u1", "p1", nil, true)
	f.vote("v2", "u2", "p1", nil, true)
	f.vote("v3", "u3", "p1", nil, false)
	f.vote("v4", "u1", "p1", strPtr("c1"), false)
	f.vote("v5", "u4", "p1", strPtr("c2"), false)

	got, err := f.svc.Posts.Get(f.ctx, "p1", "u3")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.TotalUpvote)
	assert.EqualValues(t, 1, got.TotalDownvote)
	assert.EqualValues(t, 2, got.TotalComment)
	require.NotNil(t, got.SelfVote)
	assert.False(t, *got.SelfVote)
	assert.Equal(t, "topic-t1", got.TopicName)
	require.NotNil(t, got.CommunityName)
	assert.Equal(t, "community-g1", *got.CommunityName)
	assert.Equal(t, []models.ImageRef{
		{ImageID: "i1", ImageURL: "https://cdn.test/1.png"},
		{ImageID: "i2", ImageURL: "https://cdn.test/2.png"},
	}, got.Images)

	got, err = f.svc.Posts.Get(f.ctx, "p1", "u4")
	require.NoError(t, err)
	assert.Nil(t, got.SelfVote)
}

func TestPostCreate(t *testing.T) {
	f := newFixture(t)
	f.user("alice")
	f.user("mallory", func(u *models.User) { u.IsBanned = true })
	f.topic("t1", nil)
	f.community("g1", "alice")
	f.community("dead", "alice", func(c *models.Community) { c.IsBanned = true })

	got, err := f.svc.Posts.Create(f.ctx, "alice",
		models.CreatePostRequest{TopicID: "t1", CommunityID: "g1", Title: " Hello ", Text: "body"},
		[]Upload{{Field: "image", Filename: "a.png", Data: pngData}, {Field: "image", Filename: "b.png", Data: pngData}})
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Len(t, got.Images, 2)
	assert.Equal(t, 2, f.store.count())

	got, err = f.svc.Posts.Create(f.ctx, "alice", models.CreatePostRequest{TopicID: "t1", CommunityID: "null", Title: "global"}, nil)
	require.NoError(t, err)
	assert.Nil(t, got.CommunityID)

	_, err = f.svc.Posts.Create(f.ctx, "alice", models.CreatePostRequest{TopicID: "nope", Title: "x"}, nil)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = f.svc.Posts.Create(f.ctx, "alice", models.CreatePostRequest{TopicID: "t1", CommunityID: "dead", Title: "x"}, nil)
	assert.Equal(t, models.KindForbidden, models.KindOf(err))

	_, err = f.svc.Posts.Create(f.ctx, "mallory", models.CreatePostRequest{TopicID: "t1", Title: "x"}, nil)
	assert.Equal(t, models.KindForbidden, models.KindOf(err))

	_, err = f.svc.Posts.Create(f.ctx, "alice", models.CreatePostRequest{TopicID: "t1", Title: "x"},
		[]Upload{{Field: "image", Filename: "a.gif", Data: []byte("GIF89a......")}})
	assert.Equal(t, models.KindValidation, models.KindOf(err))
	assert.Equal(t, 2, f.store.count())
}

func TestPostCreate_UploadFailureLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	f.user("alice")
	f.topic("t1", nil)
	f.store.failAfter = 1

	_, err := f.svc.Posts.Create(f.ctx, "alice", models.CreatePostRequest{TopicID: "t1", Title: "x"},
		[]Upload{{Field: "image", Filename: "a.png", Data: pngData}, {Field: "image", Filename: "b.png", Data: pngData}})
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
	assert.Zero(t, f.store.count())

	posts, err := f.svc.Posts.List(f.ctx, PostQuery{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostEdit(t *testing.T) {
	f := newFixture(t)
	f.user("alice")
	f.user("bob")
	f.topic("t1", nil)
	f.topic("t2", nil)

	created, err := f.svc.Posts.Create(f.ctx, "alice", models.CreatePostRequest{TopicID: "t1", Title: "x"},
		[]Upload{{Field: "image", Filename: "a.png", Data: pngData}})
	require.NoError(t, err)
	require.Len(t, created.Images, 1)
	oldImage := created.Images[0].ImageID

	_, err = f.svc.Posts.Edit(f.ctx, "bob", created.ID, models.EditPostRequest{Title: strPtr("mine")}, nil)
	assert.Equal(t, models.KindForbidden, models.KindOf(err))

	got, err := f.svc.Posts.Edit(f.ctx, "alice", created.ID, models.EditPostRequest{
		Title:          strPtr("renamed"),
		TopicID:        strPtr("t2"),
		RemoveImageIDs: []string{oldImage},
	}, []Upload{{Field: "image", Filename: "c.png", Data: pngData}})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "t2", got.TopicID)
	require.Len(t, got.Images, 1)
	assert.NotEqual(t, oldImage, got.Images[0].ImageID)
	assert.Equal(t, 1, f.store.count())
	assert.Len(t, f.store.deleted, 1)

	_, err = f.svc.Posts.Edit(f.ctx, "alice", created.ID, models.EditPostRequest{TopicID: strPtr("nope")}, nil)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestPostDelete(t *testing.T) {
	f := newFixture(t)
	f.user("alice")
	f.user("bob")
	f.user("root", admin)
	f.topic("t1", nil)

	created, err := f.svc.Posts.Create(f.ctx, "alice", models.CreatePostRequest{TopicID: "t1", Title: "x"},
		[]Upload{{Field: "image", Filename: "a.png", Data: pngData}})
	require.NoError(t, err)

	assert.Equal(t, models.KindForbidden, models.KindOf(f.svc.Posts.Delete(f.ctx, "bob", created.ID)))
	require.NoError(t, f.svc.Posts.Delete(f.ctx, "root", created.ID))
	assert.Zero(t, f.store.count())
	assert.Equal(t, models.KindNotFound, models.KindOf(f.svc.Posts.Delete(f.ctx, "alice", created.ID)))
}
