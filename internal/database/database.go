package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/asksenior/backend/internal/config"
	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/models"
)

// Service owns the gorm connection shared by every request.
type Service interface {
	// Health pings the database and reports pool statistics.
	Health(ctx context.Context) map[string]string
	Close() error
	GetDB() *gorm.DB
}

type service struct {
	db   *gorm.DB
	name string
}

// New opens the Postgres connection, migrates the schema and configures the pool.
func New(cfg *config.Config) (Service, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.IsDevelopment()))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.L.Info("database connected", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.L.Info("database migrations completed")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &service{db: db, name: cfg.DBName}, nil
}

// GormConfig is shared by the server and tests. TranslateError makes drivers
// report unique violations as gorm.ErrDuplicatedKey.
func GormConfig(verbose bool) *gorm.Config {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	gormLogger := gormlogger.New(
		zap.NewStdLog(logger.L.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Migrate creates tables and the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.UserTopicPreference{},
		&models.Topic{},
		&models.Community{},
		&models.CommunityTopic{},
		&models.Member{},
		&models.Post{},
		&models.PostImage{},
		&models.Comment{},
		&models.Vote{},
		&models.Banned{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_communities_name_lower ON communities (LOWER(name))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_user_post ON votes (user_id, post_id) WHERE comment_id IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_user_comment ON votes (user_id, comment_id) WHERE comment_id IS NOT NULL`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("error creating index: %w", err)
		}
	}
	return nil
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

const healthTimeout = 3 * time.Second

// Health pings the database within ctx and reports pool statistics. The
// "status" key is "up" or "down".
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return map[string]string{"status": "down", "error": "no connection pool"}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.L.Warn("database ping failed", zap.Error(err))
		return map[string]string{"status": "down", "error": "database unreachable"}
	}

	st := sqlDB.Stats()
	return map[string]string{
		"status":           "up",
		"database":         s.name,
		"open_connections": strconv.Itoa(st.OpenConnections),
		"in_use":           strconv.Itoa(st.InUse),
		"idle":             strconv.Itoa(st.Idle),
		"wait_count":       strconv.FormatInt(st.WaitCount, 10),
		"max_open":         strconv.Itoa(st.MaxOpenConnections),
	}
}

// Close closes the database connection.
func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	logger.L.Info("disconnected from database", zap.String("name", s.name))
	return sqlDB.Close()
}

// Wrap exposes an existing connection through Service, e.g. for tests.
func Wrap(db *gorm.DB) Service {
	return &service{db: db}
}
