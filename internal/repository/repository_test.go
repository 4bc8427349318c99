package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/asksenior/backend/internal/database"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/testutil"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), database.GormConfig(false))
	require.NoError(t, err)
	return gdb, mock
}

func ptr(s string) *string { return &s }

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func TestPageWindow(t *testing.T) {
	assert.Equal(t, Window{From: 10, To: 19}, PageWindow(2, 10))
	assert.Equal(t, Window{From: 0, To: 9}, PageWindow(1, 10))
	assert.Equal(t, Window{From: 0, To: 4}, PageWindow(0, 5))
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("op", nil))

	notFound := models.NewNotFoundError("post", "p1")
	assert.Same(t, notFound, translate("op", notFound))

	err := translate("insert", gorm.ErrDuplicatedKey)
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	err = translate("select", errors.New("dial tcp: connection refused"))
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
}

func TestGetPost_UpstreamIsNotNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts"`)).
		WillReturnError(errors.New("connection reset by peer"))
	_, err := repo.GetPost(context.Background(), "p1")
	assert.Equal(t, models.KindUpstream, models.KindOf(err))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.GetPost(context.Background(), "p1")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindComments_UpstreamFailureSurfaces(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := New(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments"`)).
		WillReturnError(errors.New("timeout"))
	comments, err := repo.FindComments(context.Background(), CommentCriteria{PostID: "p1"})
	assert.Nil(t, comments)
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPosts_ListableOnlyHidesBanned(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateCommunity(ctx, &models.Community{ID: "open", AdminID: "u1", Name: "Open"}))
	require.NoError(t, repo.CreateCommunity(ctx, &models.Community{ID: "closed", AdminID: "u1", Name: "Closed", IsBanned: true}))

	posts := []models.Post{
		{ID: "global", UserID: "u1", TopicID: "t1", Title: "global", CreatedAt: at(1)},
		{ID: "banned", UserID: "u1", TopicID: "t1", Title: "banned", IsBanned: true, CreatedAt: at(2)},
		{ID: "in-open", UserID: "u1", TopicID: "t1", CommunityID: ptr("open"), Title: "in open", CreatedAt: at(3)},
		{ID: "in-closed", UserID: "u1", TopicID: "t1", CommunityID: ptr("closed"), Title: "in closed", CreatedAt: at(4)},
		{ID: "in-missing", UserID: "u1", TopicID: "t1", CommunityID: ptr("missing"), Title: "in missing", CreatedAt: at(5)},
	}
	for i := range posts {
		require.NoError(t, repo.CreatePost(ctx, &posts[i]))
	}

	got, err := repo.FindPosts(ctx, PostCriteria{ListableOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"in-open", "global"}, postIDs(got))

	got, err = repo.FindPosts(ctx, PostCriteria{ListableOnly: true, CommunityID: "closed"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.FindPosts(ctx, PostCriteria{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestFindPosts_WindowAndTitleSearch(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		title := "plain"
		if i%5 == 0 {
			title = "How to 100% Go"
		}
		p := models.Post{ID: string(rune('a'+i)) + "-post", UserID: "u1", TopicID: "t1", Title: title, CreatedAt: at(i)}
		require.NoError(t, repo.CreatePost(ctx, &p))
	}

	w := PageWindow(2, 10)
	got, err := repo.FindPosts(ctx, PostCriteria{Window: &w})
	require.NoError(t, err)
	require.Len(t, got, 10)
	// newest first: rows 10..19 are i = 14 down to 5
	assert.Equal(t, at(14), got[0].CreatedAt.UTC())
	assert.Equal(t, at(5), got[9].CreatedAt.UTC())

	got, err = repo.FindPosts(ctx, PostCriteria{TitleContains: "100%"})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = repo.FindPosts(ctx, PostCriteria{TitleContains: "HOW TO"})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = repo.FindPosts(ctx, PostCriteria{TitleContains: "10_%"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindCommunities_NameMatching(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateCommunity(ctx, &models.Community{ID: "c1", AdminID: "u1", Name: "Devs", CreatedAt: at(1)}))
	require.NoError(t, repo.CreateCommunity(ctx, &models.Community{ID: "c2", AdminID: "u2", Name: "Gardeners", CreatedAt: at(2)}))

	got, err := repo.FindCommunities(ctx, CommunityCriteria{NameEquals: "devs"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)

	got, err = repo.FindCommunities(ctx, CommunityCriteria{NameContains: "DEN"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)

	got, err = repo.FindCommunities(ctx, CommunityCriteria{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, got)

	err = repo.CreateCommunity(ctx, &models.Community{ID: "c3", AdminID: "u3", Name: "DEVS"})
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestMembers(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.AddMember(ctx, &models.Member{UserID: "u1", CommunityID: "c1", Status: models.MemberStatusJoined}))
	require.NoError(t, repo.AddMember(ctx, &models.Member{UserID: "u2", CommunityID: "c1", Status: models.MemberStatusJoined}))
	require.NoError(t, repo.AddMember(ctx, &models.Member{UserID: "u1", CommunityID: "c2", Status: models.MemberStatusJoined}))

	err := repo.AddMember(ctx, &models.Member{UserID: "u1", CommunityID: "c1", Status: models.MemberStatusJoined})
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	joined, err := repo.JoinedCommunities(ctx, "u2", []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"c1": true}, joined)

	joined, err = repo.JoinedCommunities(ctx, "", []string{"c1"})
	require.NoError(t, err)
	assert.Empty(t, joined)

	counts, err := repo.CountMembers(ctx, []string{"c1", "c2", "c3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c1": 2, "c2": 1}, counts)

	require.NoError(t, repo.RemoveMember(ctx, "u2", "c1"))
	err = repo.RemoveMember(ctx, "u2", "c1")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestTallyVotes_DiscriminatesTargets(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	votes := []models.Vote{
		{ID: "v1", UserID: "u1", PostID: ptr("p1"), IsUpvote: true},
		{ID: "v2", UserID: "u2", PostID: ptr("p1"), IsUpvote: false},
		{ID: "v3", UserID: "u1", PostID: ptr("p1"), CommentID: ptr("c1"), IsUpvote: true},
		{ID: "v4", UserID: "u2", PostID: ptr("p1"), CommentID: ptr("c1"), IsUpvote: true},
		{ID: "v5", UserID: "u3", PostID: ptr("p1"), CommentID: ptr("c2"), IsUpvote: false},
	}
	for i := range votes {
		require.NoError(t, repo.CreateVote(ctx, &votes[i]))
	}

	posts, err := repo.TallyVotes(ctx, models.TargetPost, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, Tally{TargetID: "p1", Up: 1, Down: 1}, posts["p1"])

	comments, err := repo.TallyVotes(ctx, models.TargetComment, []string{"c1", "c2", "c3"})
	require.NoError(t, err)
	assert.Equal(t, Tally{TargetID: "c1", Up: 2}, comments["c1"])
	assert.Equal(t, Tally{TargetID: "c2", Down: 1}, comments["c2"])
	_, ok := comments["c3"]
	assert.False(t, ok)

	mine, err := repo.ViewerVotes(ctx, "u2", models.TargetComment, []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"c1": true}, mine)

	mine, err = repo.ViewerVotes(ctx, "u2", models.TargetPost, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p1": false}, mine)
}

func TestCreateVote_UniquePerTarget(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateVote(ctx, &models.Vote{ID: "v1", UserID: "u1", PostID: ptr("p1"), IsUpvote: true}))
	// a comment vote on the same post is a different target
	require.NoError(t, repo.CreateVote(ctx, &models.Vote{ID: "v2", UserID: "u1", PostID: ptr("p1"), CommentID: ptr("c1"), IsUpvote: true}))

	err := repo.CreateVote(ctx, &models.Vote{ID: "v3", UserID: "u1", PostID: ptr("p1"), IsUpvote: false})
	assert.Equal(t, models.KindConflict, models.KindOf(err))
	err = repo.CreateVote(ctx, &models.Vote{ID: "v4", UserID: "u1", PostID: ptr("p1"), CommentID: ptr("c1"), IsUpvote: false})
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	v, err := repo.FindVote(ctx, "u1", models.PostTarget("p1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)

	v, err = repo.FindVote(ctx, "u1", models.CommentTarget("c1"))
	require.NoError(t, err)
	assert.Equal(t, "v2", v.ID)

	_, err = repo.FindVote(ctx, "u2", models.PostTarget("p1"))
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestDeletePost_Cascades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.CreatePost(ctx, &models.Post{ID: "p1", UserID: "u1", TopicID: "t1", Title: "x"}))
	require.NoError(t, repo.AddPostImages(ctx, []models.PostImage{{ImageID: "i1", PostID: "p1", ImageURL: "u"}}))
	require.NoError(t, repo.CreateComment(ctx, &models.Comment{ID: "c1", PostID: "p1", UserID: "u2", Content: "hi"}))
	require.NoError(t, repo.CreateVote(ctx, &models.Vote{ID: "v1", UserID: "u2", PostID: ptr("p1"), IsUpvote: true}))

	err := repo.Transaction(ctx, func(tx *Repository) error {
		return tx.DeletePost(ctx, "p1")
	})
	require.NoError(t, err)

	_, err = repo.GetPost(ctx, "p1")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
	comments, err := repo.FindComments(ctx, CommentCriteria{PostID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, comments)
	images, err := repo.PostImages(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Empty(t, images)
	var votes int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&votes).Error)
	assert.Zero(t, votes)
}

func TestDeletePostImages_IgnoresOtherPosts(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.AddPostImages(ctx, []models.PostImage{
		{ImageID: "i1", PostID: "p1", ImageURL: "u1", Path: "a.png"},
		{ImageID: "i2", PostID: "p1", ImageURL: "u2", Path: "b.png", Position: 1},
		{ImageID: "i3", PostID: "p2", ImageURL: "u3", Path: "c.png"},
	}))

	removed, err := repo.DeletePostImages(ctx, "p1", []string{"i2", "i3"})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, "b.png", removed[0].Path)

	images, err := repo.PostImages(ctx, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Len(t, images["p1"], 1)
	assert.Len(t, images["p2"], 1)
}

func TestBans(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateBan(ctx, models.NewBanned("b1", models.UserBan{UserID: "u1"}, "spam")))
	require.NoError(t, repo.CreateBan(ctx, models.NewBanned("b2", models.PostBan{PostID: "p1"}, "off topic")))

	all, err := repo.ListBans(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	users, err := repo.ListBans(ctx, models.BanUser)
	require.NoError(t, err)
	require.Len(t, users, 1)
	target, err := users[0].Target()
	require.NoError(t, err)
	assert.Equal(t, models.UserBan{UserID: "u1"}, target)

	n, err := repo.DeleteBans(ctx, models.UserBan{UserID: "u1"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	repo := New(db)
	ctx := context.Background()

	err := repo.Transaction(ctx, func(tx *Repository) error {
		if err := tx.CreateTopic(ctx, &models.Topic{ID: "t1", Name: "Go"}); err != nil {
			return err
		}
		return models.NewForbiddenError("nope")
	})
	assert.Equal(t, models.KindForbidden, models.KindOf(err))

	_, err = repo.GetTopic(ctx, "t1")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func postIDs(posts []models.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}
