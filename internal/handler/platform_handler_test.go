package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type fakeDashboardSrv struct {
	resp      *models.PrincipalDashboard
	hit       bool
	err       error
	collegeID string
}

func (f *fakeDashboardSrv) Principal(_ context.Context, _ *models.User, collegeID string) (*models.PrincipalDashboard, bool, error) {
	f.collegeID = collegeID
	return f.resp, f.hit, f.err
}

func TestDashboardPrincipalReportsCacheHit(t *testing.T) {
	svc := &fakeDashboardSrv{resp: &models.PrincipalDashboard{CollegeID: "college-a", StudentsCount: 42}, hit: true}
	h := NewDashboardHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/api/dashboard/principal", nil, "", testUser(models.RolePrincipal, "college-a", ""))
	h.Principal(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, "college-a", envelope.Data["college_id"])
	assert.Equal(t, float64(42), envelope.Data["students_count"])
	assert.Empty(t, svc.collegeID)
}

func TestDashboardPrincipalPassesCollegeQuery(t *testing.T) {
	svc := &fakeDashboardSrv{err: appErrors.Clone(appErrors.ErrValidation, "college_id is required")}
	h := NewDashboardHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/api/dashboard/principal?college_id=college-b", nil, "", testUser(models.RoleSuperuser, "", ""))
	h.Principal(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "college-b", svc.collegeID)
}

type fakeFiles struct {
	path  string
	err   error
	token string
}

func (f *fakeFiles) Open(token string) (*service.FileDownload, error) {
	f.token = token
	if f.err != nil {
		return nil, f.err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	info, _ := file.Stat()
	return &service.FileDownload{File: file, Filename: filepath.Base(f.path), MimeType: "application/pdf", SizeBytes: info.Size()}, nil
}

func TestFileDownloadStreamsSignedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 evidence"), 0o600))
	files := &fakeFiles{path: path}
	h := NewFileHandler(files)

	c, rec := newTestContext(http.MethodGet, "/api/files/download?token=abc", nil, "", nil)
	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", files.token)
	assert.Equal(t, "%PDF-1.4 evidence", rec.Body.String())
	assert.Equal(t, `attachment; filename="evidence.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestFileDownloadRejectsMissingAndBadTokens(t *testing.T) {
	h := NewFileHandler(&fakeFiles{err: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")})

	c, rec := newTestContext(http.MethodGet, "/api/files/download", nil, "", nil)
	h.Download(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/api/files/download?token=forged", nil, "", nil)
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type fakeUserAdmin struct {
	filter   models.UserFilter
	roleReq  service.UpdateRoleRequest
	deleted  string
	err      error
	lastUser *models.User
}

func (f *fakeUserAdmin) List(_ context.Context, _ *models.User, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	f.filter = filter
	return []models.User{*testUser(models.RoleHOD, "college-a", "cse")}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeUserAdmin) Get(_ context.Context, _ *models.User, id string) (*models.User, error) {
	return nil, appErrors.ErrNotFound
}

func (f *fakeUserAdmin) Create(_ context.Context, _ *models.User, req service.CreateUserRequest, _ service.RequestMeta) (*models.User, error) {
	f.lastUser = &models.User{ID: "new", Email: req.Email, Role: req.Role}
	return f.lastUser, nil
}

func (f *fakeUserAdmin) UpdateRole(_ context.Context, _ *models.User, id string, req service.UpdateRoleRequest, _ service.RequestMeta) (*models.User, error) {
	f.roleReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id, Role: req.Role, CollegeID: req.CollegeID, DepartmentID: req.DepartmentID}, nil
}

func (f *fakeUserAdmin) Delete(_ context.Context, _ *models.User, id string, _ service.RequestMeta) error {
	f.deleted = id
	return f.err
}

type fakeSnapshot struct{}

func (fakeSnapshot) Snapshot() models.SystemMetrics {
	return models.SystemMetrics{RequestsTotal: 7, ApprovalDecisions: map[string]int64{"achievement:approved": 2}}
}

func TestAdminListUsersParsesFilter(t *testing.T) {
	users := &fakeUserAdmin{}
	h := NewAdminHandler(users, fakeSnapshot{})

	c, rec := newTestContext(http.MethodGet, "/admin/users?role=hod&college_id=college-a&active=true&page=2&page_size=5&search=ravi", nil, "", testUser(models.RoleSuperuser, "", ""))
	h.ListUsers(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, users.filter.Role)
	assert.Equal(t, models.RoleHOD, *users.filter.Role)
	require.NotNil(t, users.filter.Active)
	assert.True(t, *users.filter.Active)
	assert.Equal(t, "college-a", users.filter.CollegeID)
	assert.Equal(t, 2, users.filter.Page)
	assert.Equal(t, 5, users.filter.PageSize)
	assert.Equal(t, "ravi", users.filter.Search)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestAdminUpdateRole(t *testing.T) {
	users := &fakeUserAdmin{}
	h := NewAdminHandler(users, fakeSnapshot{})

	body := jsonBody(t, map[string]interface{}{"role": "hod", "college_id": "college-a", "department_id": "cse"})
	c, rec := newTestContext(http.MethodPut, "/admin/users/u-9/role", body, "application/json", testUser(models.RoleSuperuser, "", ""))
	c.Params = gin.Params{{Key: "id", Value: "u-9"}}
	h.UpdateRole(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleHOD, users.roleReq.Role)
	require.NotNil(t, users.roleReq.DepartmentID)
	assert.Equal(t, "cse", *users.roleReq.DepartmentID)
	assert.Equal(t, "hod", decodeEnvelope(t, rec).Data["role"])
}

func TestAdminDeleteSelfIsForbidden(t *testing.T) {
	users := &fakeUserAdmin{err: appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")}
	h := NewAdminHandler(users, fakeSnapshot{})

	c, rec := newTestContext(http.MethodDelete, "/admin/users/superuser-1", nil, "", testUser(models.RoleSuperuser, "", ""))
	c.Params = gin.Params{{Key: "id", Value: "superuser-1"}}
	h.DeleteUser(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "superuser-1", users.deleted)
}

func TestAdminSystemSnapshot(t *testing.T) {
	h := NewAdminHandler(&fakeUserAdmin{}, fakeSnapshot{})

	c, rec := newTestContext(http.MethodGet, "/admin/system", nil, "", testUser(models.RoleSuperuser, "", ""))
	h.System(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(7), envelope.Data["requests_total"])
}

func TestAuthMeReturnsActor(t *testing.T) {
	h := NewAuthHandler(nil)
	hod := testUser(models.RoleHOD, "college-a", "cse")

	c, rec := newTestContext(http.MethodGet, "/api/auth/me", nil, "", hod)
	h.Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec).Data
	assert.Equal(t, "hod-1", data["id"])
	assert.Equal(t, true, data["is_hod"])
	assert.Equal(t, true, data["is_faculty"])
	assert.Equal(t, "cse", data["department_id"])
}

type fakeNotifications struct {
	unread bool
	marked string
}

func (f *fakeNotifications) List(_ context.Context, _ *models.User, unreadOnly bool, _ models.ListFilter) ([]models.Notification, *models.Pagination, error) {
	f.unread = unreadOnly
	return []models.Notification{{ID: "n-1", Title: "Achievement approved"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, _ *models.User, id string) error {
	f.marked = id
	if id == "missing" {
		return appErrors.ErrNotFound
	}
	return nil
}

func TestNotificationsListAndMarkRead(t *testing.T) {
	svc := &fakeNotifications{}
	h := NewNotificationHandler(svc)
	student := testUser(models.RoleStudent, "college-a", "cse")

	c, rec := newTestContext(http.MethodGet, "/api/notifications?unread=true", nil, "", student)
	h.List(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.unread)

	c, rec = newTestContext(http.MethodPost, "/api/notifications/n-1/read", nil, "", student)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	h.MarkRead(c)
	c.Writer.WriteHeaderNow() // gin's engine flushes the pending status after the handler returns
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/api/notifications/missing/read", nil, "", student)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestReadyReflectsDatabase(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/ready", nil, "", nil)
	NewMetricsHandler(nil, fakePinger{}).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/ready", nil, "", nil)
	NewMetricsHandler(nil, fakePinger{err: errors.New("connection refused")}).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
