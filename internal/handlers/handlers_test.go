package handlers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asksenior/backend/internal/models"
	"github.com/asksenior/backend/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", models.NewNotFoundError("post", "p1"), http.StatusNotFound, `{"error":"post with ID p1 not found","code":"NOT_FOUND"}`},
		{"conflict", models.NewConflictError("taken", nil), http.StatusConflict, `{"error":"taken","code":"CONFLICT"}`},
		{"forbidden", models.NewForbiddenError("no"), http.StatusForbidden, `{"error":"no","code":"FORBIDDEN"}`},
		{"validation", models.NewValidationError("title", "title is required"), http.StatusBadRequest, `{"error":"title is required","code":"VALIDATION_ERROR","field":"title"}`},
		{"unauthorized", models.NewUnauthorizedError("who"), http.StatusUnauthorized, `{"error":"who","code":"UNAUTHORIZED"}`},
		{"upstream", models.NewUpstreamError("load posts", errors.New("conn reset")), http.StatusBadGateway, `{"error":"load posts failed","code":"UPSTREAM_FAILURE"}`},
		{"plain error", errors.New("boom"), http.StatusBadGateway, `{"error":"upstream failure","code":"UPSTREAM_FAILURE"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.True(t, c.IsAborted())
		})
	}
}

func TestBindError_NamesJSONField(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req models.CreatePostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, bindError(err))
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"topic_id is required","code":"VALIDATION_ERROR","field":"topic_id"}`, w.Body.String())
}

func TestBindError_MalformedBody(t *testing.T) {
	err := bindError(errors.New("unexpected EOF"))
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func multipartRequest(t *testing.T, field string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "with images"))
	for name, data := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestReadUploads(t *testing.T) {
	t.Run("multipart", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = multipartRequest(t, "images", map[string][]byte{"a.png": []byte("aaa")})

		files, err := readUploads(c, "images")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "a.png", files[0].Filename)
		assert.Equal(t, "images", files[0].Field)
		assert.Equal(t, []byte("aaa"), files[0].Data)
	})

	t.Run("json body has none", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")

		files, err := readUploads(c, "images")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("too large", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		big := make([]byte, storage.MaxImageSize+1)
		c.Request = multipartRequest(t, "avatar", map[string][]byte{"big.png": big})

		up, err := readUpload(c, "avatar")
		assert.Nil(t, up)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindValidation))
	})
}

func TestQueryInt(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?pageSize=null&page_size=25&page=x", nil)

	size, err := queryInt(c, "pageSize", "page_size")
	require.NoError(t, err)
	assert.Equal(t, 25, size)

	_, err = queryInt(c, "page")
	assert.True(t, models.IsKind(err, models.KindValidation))
}
