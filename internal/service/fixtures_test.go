package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/storage"
)

func newActor(id string, role models.UserRole, college, dept string) *models.User {
	u := &models.User{
		ID:           id,
		Email:        id + "@example.com",
		Username:     id,
		FirstName:    id,
		Role:         role,
		CollegeID:    models.StringPtr(college),
		DepartmentID: models.StringPtr(dept),
		Active:       true,
	}
	u.ApplyRole()
	return u
}

type auditRecorder struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditRecorder) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type sentNotification struct {
	UserID, Title, Message string
}

type notifierRecorder struct {
	sent []sentNotification
}

func (n *notifierRecorder) Notify(ctx context.Context, userID, title, message string) {
	n.sent = append(n.sent, sentNotification{userID, title, message})
}

type invalidationRecorder struct {
	colleges []string
}

func (c *invalidationRecorder) InvalidateDashboard(ctx context.Context, collegeID string) {
	c.colleges = append(c.colleges, collegeID)
}

type approvalCounter struct {
	counts map[string]int
}

func (a *approvalCounter) RecordApproval(category models.ApprovalCategory, status models.ApprovalStatus) {
	if a.counts == nil {
		a.counts = map[string]int{}
	}
	a.counts[string(category)+":"+string(status)]++
}

// memoryStorage writes to a temp dir so Open can hand back real *os.File values.
type memoryStorage struct {
	dir   string
	saved map[string]bool
}

func newMemoryStorage() *memoryStorage {
	dir, _ := os.MkdirTemp("", "college-hub-test-")
	return &memoryStorage{dir: dir, saved: map[string]bool{}}
}

func (m *memoryStorage) SaveStream(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(m.dir, filepath.FromSlash(filename))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	m.saved[filename] = true
	return filename, nil
}

func (m *memoryStorage) Open(filename string) (*os.File, error) {
	if !m.saved[filename] {
		return nil, fmt.Errorf("not found")
	}
	return os.Open(filepath.Join(m.dir, filepath.FromSlash(filename)))
}

func (m *memoryStorage) Delete(filename string) error {
	delete(m.saved, filename)
	return os.Remove(filepath.Join(m.dir, filepath.FromSlash(filename)))
}

func mustDate(value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		panic(err)
	}
	return t
}

// inScope mirrors the WHERE clauses the repositories build from a scope.
func inScope(scope policy.Scope, collegeID, departmentID, ownerID string) bool {
	switch scope.Kind {
	case policy.ScopeAll:
		return true
	case policy.ScopeCollege:
		return collegeID == scope.CollegeID
	case policy.ScopeDepartment:
		return collegeID == scope.CollegeID && departmentID == scope.DepartmentID
	case policy.ScopeOwner:
		return ownerID == scope.UserID
	default:
		return false
	}
}

func errorCode(err error) string {
	return appErrors.FromError(err).Code
}

type stubDepartments map[string]*models.Department

func (d stubDepartments) Get(ctx context.Context, id string) (*models.Department, error) {
	if dept, ok := d[id]; ok {
		return dept, nil
	}
	return nil, sql.ErrNoRows
}

func newStubDepartments() stubDepartments {
	return stubDepartments{
		"cse":  {ID: "cse", Name: "Computer Science", Code: "CSE", CollegeID: "college-a"},
		"mech": {ID: "mech", Name: "Mechanical", Code: "MECH", CollegeID: "college-a"},
		"ece":  {ID: "ece", Name: "Electronics", Code: "ECE", CollegeID: "college-b"},
	}
}

type stubStudentLookup map[string]*models.StudentProfileDetail

func (s stubStudentLookup) FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error) {
	if p, ok := s[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
}

func newTestFiles() (*FileService, *memoryStorage) {
	store := newMemoryStorage()
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewFileService(store, signer, zap.NewNop(), FileServiceConfig{MaxFileSize: 1024}), store
}

func upload(name, body string) *FileUpload {
	return &FileUpload{Filename: name, Size: int64(len(body)), Content: strings.NewReader(body)}
}

type stubUsers map[string]*models.User

func (u stubUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}
