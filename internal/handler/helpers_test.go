package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/middleware"
	"github.com/noah-isme/college-hub-api/internal/models"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error map[string]interface{} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func testUser(role models.UserRole, college, dept string) *models.User {
	u := &models.User{
		ID:           string(role) + "-1",
		Email:        string(role) + "@example.com",
		Username:     string(role),
		FirstName:    "Test",
		LastName:     string(role),
		Role:         role,
		CollegeID:    models.StringPtr(college),
		DepartmentID: models.StringPtr(dept),
		Active:       true,
	}
	u.ApplyRole()
	return u
}

// newTestContext builds a gin context for method and target. A nil actor leaves
// the request unauthenticated.
func newTestContext(method, target string, body io.Reader, contentType string, actor *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, body)
	if contentType != "" {
		c.Request.Header.Set("Content-Type", contentType)
	}
	if actor != nil {
		c.Set(middleware.ContextActorKey, actor)
	}
	return c, rec
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

// multipartBody writes fields (repeated keys allowed) and at most one file part.
func multipartBody(t *testing.T, fields [][2]string, fileField, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, kv := range fields {
		require.NoError(t, w.WriteField(kv[0], kv[1]))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
