package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/middleware"
	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/service"
	"github.com/asksenior/backend/internal/storage"
)

func init() {
	// Report json/form names instead of Go field names in validation errors.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return fld.Name
		})
	}
}

var statusByKind = map[models.ErrorKind]int{
	models.KindNotFound:     http.StatusNotFound,
	models.KindConflict:     http.StatusConflict,
	models.KindForbidden:    http.StatusForbidden,
	models.KindValidation:   http.StatusBadRequest,
	models.KindUnauthorized: http.StatusUnauthorized,
	models.KindUpstream:     http.StatusBadGateway,
}

// respondError writes err with the status of its kind. Upstream failures
// are logged and their cause is not exposed.
func respondError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": err.Error(), "code": kind}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
	}
	if kind == models.KindUpstream {
		logger.L.Error("upstream failure",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		if appErr == nil {
			body["error"] = "upstream failure"
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// bindError turns a gin binding failure into a Validation error naming the field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return models.NewValidationError(fe.Field(), validationMessage(fe))
	}
	return models.NewValidationError("body", "invalid request body: "+err.Error())
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// currentUserID returns the authenticated caller. Routes behind
// AuthMiddleware always have one.
func currentUserID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.UserIDKey)
	return id, id != ""
}

// viewerID returns the caller on optionally authenticated routes, or "".
func viewerID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func requireUser(c *gin.Context) (string, bool) {
	id, ok := currentUserID(c)
	if !ok {
		respondError(c, models.NewUnauthorizedError("User not authenticated"))
	}
	return id, ok
}

func queryInt(c *gin.Context, keys ...string) (int, error) {
	for _, key := range keys {
		raw := service.Clean(c.Query(key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, models.NewValidationError(key, key+" must be a number")
		}
		return n, nil
	}
	return 0, nil
}

// readUploads reads the files sent under field in a multipart form.
// Requests that are not multipart carry no files.
func readUploads(c *gin.Context, field string) ([]service.Upload, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError(field, "invalid multipart form")
	}
	var out []service.Upload
	for _, fh := range form.File[field] {
		up, err := readFile(field, fh)
		if err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, nil
}

// readUpload reads at most one file sent under field.
func readUpload(c *gin.Context, field string) (*service.Upload, error) {
	files, err := readUploads(c, field)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}

func readFile(field string, fh *multipart.FileHeader) (service.Upload, error) {
	if fh.Size > storage.MaxImageSize {
		return service.Upload{}, models.NewValidationError(field, fmt.Sprintf("file exceeds %d MB", storage.MaxImageSize>>20))
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, models.NewValidationError(field, "unreadable file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
	if err != nil {
		return service.Upload{}, models.NewValidationError(field, "unreadable file")
	}
	return service.Upload{Field: field, Filename: fh.Filename, Data: data}, nil
}
