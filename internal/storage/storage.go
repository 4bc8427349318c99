// Package storage uploads user images to object storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/asksenior/backend/internal/models"
)

// MaxImageSize is the largest accepted image upload.
const MaxImageSize = 5 << 20

// ObjectStore stores objects under a path and serves them from a public URL.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error)
	Delete(ctx context.Context, objectPaths []string) error
}

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// ValidateImage checks size and sniffed content of an upload and returns
// its content type. field names the form field in validation errors.
func ValidateImage(field string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidationError(field, "file is empty")
	}
	if len(data) > MaxImageSize {
		return "", models.NewValidationError(field, fmt.Sprintf("file exceeds %d MB", MaxImageSize>>20))
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if allowedImageTypes[m.String()] {
			return m.String(), nil
		}
	}
	return "", models.NewValidationError(field, "only png, jpg and jpeg images are allowed, got "+mt.String())
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectPath returns a unique object path for an uploaded file name.
func ObjectPath(prefix, filename string) string {
	name := unsafeChars.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	key := uuid.NewString() + "_" + name
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// Disabled rejects uploads. It is used when no bucket is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, []byte, string, string) (string, error) {
	return "", models.NewUpstreamError("upload", fmt.Errorf("object storage is not configured"))
}

func (Disabled) Delete(_ context.Context, objectPaths []string) error {
	if len(objectPaths) == 0 {
		return nil
	}
	return models.NewUpstreamError("delete objects", fmt.Errorf("object storage is not configured"))
}
