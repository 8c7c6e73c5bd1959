package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type staticTokens map[string]string

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if id, ok := s[token]; ok {
		return &models.JWTClaims{UserID: id}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type userTable map[string]*models.User

func (u userTable) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := u[id]; ok {
		out := *user
		return &out, nil
	}
	return nil, sql.ErrNoRows
}

type auditSink struct {
	logs []*models.AuditLog
}

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type requestCounter struct {
	paths []string
}

func (r *requestCounter) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.paths = append(r.paths, method+" "+path)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(users userTable, extra ...gin.HandlerFunc) *gin.Engine {
	tokens := staticTokens{"root-token": "root", "hod-token": "hod", "idle-token": "idle", "ghost-token": "ghost"}
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWT(tokens), LoadActor(users, nil)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		actor := Actor(c)
		c.JSON(http.StatusOK, gin.H{"role": actor.Role, "hod": actor.IsHOD})
	})
	r.GET("/things/:id", chain...)
	return r
}

func users() userTable {
	college, dept := "college-a", "cse"
	return userTable{
		"root": {ID: "root", Role: models.RoleSuperuser, Active: true},
		"hod":  {ID: "hod", Role: models.RoleHOD, CollegeID: &college, DepartmentID: &dept, Active: true},
		"idle": {ID: "idle", Role: models.RoleStudent, CollegeID: &college, Active: false},
	}
}

func call(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/things/42", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestActorIsReloadedEveryRequest(t *testing.T) {
	table := users()
	r := newRouter(table)

	rec := call(r, "hod-token")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hod", body["role"])
	assert.Equal(t, true, body["hod"])

	table["hod"].Role = models.RoleFaculty
	rec = call(r, "hod-token")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "faculty", body["role"], "role change applies without a new token")
	assert.Equal(t, false, body["hod"])
}

func TestAuthenticationFailures(t *testing.T) {
	r := newRouter(users())

	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "forged").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "ghost-token").Code)
	assert.Equal(t, appErrors.ErrInactiveAccount.Status, call(r, "idle-token").Code)
}

func TestRequireRolesAndAdminGate(t *testing.T) {
	staff := newRouter(users(), RequireRoles(models.RoleHOD, models.RolePrincipal))
	assert.Equal(t, http.StatusOK, call(staff, "hod-token").Code)
	assert.Equal(t, http.StatusForbidden, call(staff, "root-token").Code)

	admin := newRouter(users(), AdminGate(nil))
	assert.Equal(t, http.StatusOK, call(admin, "root-token").Code)
	assert.Equal(t, http.StatusForbidden, call(admin, "hod-token").Code)
}

func TestAuditAndMetrics(t *testing.T) {
	sink := &auditSink{}
	counter := &requestCounter{}
	r := newRouter(users(), Metrics(counter), Audit(sink, "ADMIN_READ", "thing"))

	require.Equal(t, http.StatusOK, call(r, "root-token").Code)
	require.Len(t, sink.logs, 1)
	assert.Equal(t, "root", *sink.logs[0].UserID)
	assert.Equal(t, "42", *sink.logs[0].ResourceID)
	assert.Equal(t, []string{"GET /things/:id"}, counter.paths)

	call(r, "")
	assert.Len(t, sink.logs, 1, "rejected requests are not audited")
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"cache_hit":true}`, rec.Body.String())
}
