//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/asksenior/backend/internal/models"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("asksenior"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), GormConfig(false))
	require.NoError(t, err)
	return db
}

func TestMigrate_Postgres(t *testing.T) {
	db := startPostgres(t)
	require.NoError(t, Migrate(db))
	// Re-running must be a no-op.
	require.NoError(t, Migrate(db))

	health := Wrap(db).Health(context.Background())
	assert.Equal(t, "up", health["status"])
}

func TestMigrate_PostgresUniqueIndexes(t *testing.T) {
	db := startPostgres(t)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.Community{ID: "c1", AdminID: "u1", Name: "Devs"}).Error)
	err := db.Create(&models.Community{ID: "c2", AdminID: "u1", Name: "devs"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	post := "p1"
	comment := "cm1"
	require.NoError(t, db.Create(&models.Vote{ID: "v1", UserID: "u1", PostID: &post, IsUpvote: true}).Error)
	// A comment vote on the same post does not collide with the post vote.
	require.NoError(t, db.Create(&models.Vote{ID: "v2", UserID: "u1", PostID: &post, CommentID: &comment, IsUpvote: true}).Error)

	err = db.Create(&models.Vote{ID: "v3", UserID: "u1", PostID: &post, IsUpvote: false}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	err = db.Create(&models.Vote{ID: "v4", UserID: "u1", PostID: &post, CommentID: &comment}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
