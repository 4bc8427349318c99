package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindUpstream     ErrorKind = "UPSTREAM_FAILURE"
)

// AppError represents a custom application error
type AppError struct {
	Kind    ErrorKind
	Message string
	Field   string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: message,
		Err:     err,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Kind:    KindForbidden,
		Message: message,
	}
}

func NewValidationError(field, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Field:   field,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Kind:    KindUnauthorized,
		Message: message,
	}
}

// NewUpstreamError wraps a failure of the database or object storage.
func NewUpstreamError(op string, err error) *AppError {
	return &AppError{
		Kind:    KindUpstream,
		Message: op + " failed",
		Err:     err,
	}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindUpstream for any other non-nil error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUpstream
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
