// Package repository is the persistence collaborator: typed criteria in,
// rows out, with driver errors translated into models.AppError kinds.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/asksenior/backend/internal/models"
)

const uniqueViolation = "23505"

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to one database
// transaction. Nested calls use savepoints.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
	return translate("transaction", err)
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Window is an inclusive row range, as in [From, To].
type Window struct {
	From int
	To   int
}

// PageWindow converts a 1-based page and a page size to a row window.
func PageWindow(page, size int) Window {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	return Window{From: (page - 1) * size, To: page*size - 1}
}

func (w Window) apply(q *gorm.DB) *gorm.DB {
	return q.Offset(w.From).Limit(w.To - w.From + 1)
}

// Tally is the number of up and down votes on one target.
type Tally struct {
	TargetID string
	Up       int64
	Down     int64
}

func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isUniqueViolation(err) {
		return models.NewConflictError(op+": record already exists", err)
	}
	return models.NewUpstreamError(op, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// first loads one row into dest, mapping a missing row to NotFound.
func first(q *gorm.DB, dest interface{}, resource, id string) error {
	err := q.Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return translate("load "+resource, err)
}
