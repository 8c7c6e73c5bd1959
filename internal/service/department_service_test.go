package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type mockDepartmentRepo struct {
	departments map[string]*models.DepartmentDetail
	seq         int
}

func (m *mockDepartmentRepo) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.DepartmentDetail, int, error) {
	var out []models.DepartmentDetail
	for _, d := range m.departments {
		if inScope(scope, d.CollegeID, d.ID, "") {
			out = append(out, *d)
		}
	}
	return out, len(out), nil
}

func (m *mockDepartmentRepo) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.DepartmentDetail, error) {
	d, ok := m.departments[id]
	if !ok || !inScope(scope, d.CollegeID, d.ID, "") {
		return nil, sql.ErrNoRows
	}
	out := *d
	return &out, nil
}

func (m *mockDepartmentRepo) ExistsByCode(ctx context.Context, collegeID, code, excludeID string) (bool, error) {
	for _, d := range m.departments {
		if d.CollegeID == collegeID && d.Code == code && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDepartmentRepo) HeadedBy(ctx context.Context, userID, excludeID string) (bool, error) {
	for _, d := range m.departments {
		if d.HODID != nil && *d.HODID == userID && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, department *models.Department) error {
	m.seq++
	department.ID = fmt.Sprintf("dept-%d", m.seq)
	m.departments[department.ID] = &models.DepartmentDetail{Department: *department}
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, department *models.Department) error {
	d, ok := m.departments[department.ID]
	if !ok {
		return sql.ErrNoRows
	}
	d.Department = *department
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.departments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.departments, id)
	return nil
}

type stubColleges map[string]*models.College

func (c stubColleges) Get(ctx context.Context, id string) (*models.College, error) {
	if college, ok := c[id]; ok {
		return college, nil
	}
	return nil, sql.ErrNoRows
}

func newDepartmentFixture() (*DepartmentService, *mockDepartmentRepo) {
	repo := &mockDepartmentRepo{departments: map[string]*models.DepartmentDetail{}}
	colleges := stubColleges{
		"college-a": {ID: "college-a", Name: "College A", Code: "CA"},
		"college-b": {ID: "college-b", Name: "College B", Code: "CB"},
	}
	users := stubUsers{
		"hod-a": newActor("hod-a", models.RoleHOD, "college-a", "dept-1"),
		"hod-b": newActor("hod-b", models.RoleHOD, "college-b", "ece"),
	}
	return NewDepartmentService(repo, colleges, users, &auditRecorder{}, &invalidationRecorder{}, nil, nil), repo
}

func TestDepartmentServiceCreate(t *testing.T) {
	svc, repo := newDepartmentFixture()
	ctx := context.Background()
	principal := newActor("principal-a", models.RolePrincipal, "college-a", "")

	dept, err := svc.Create(ctx, principal, models.DepartmentRequest{Name: "Computer Science", Code: "cse", CollegeID: "college-b"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "college-a", dept.CollegeID, "principals always create in their own college")
	assert.Equal(t, "CSE", dept.Code)

	_, err = svc.Create(ctx, principal, models.DepartmentRequest{Name: "Comp Sci", Code: "CSE"}, RequestMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	_, err = svc.Create(ctx, principal, models.DepartmentRequest{Name: "Electronics", Code: "ECE", HODID: models.StringPtr("hod-a")}, RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err), "a new department has no members to head it")

	root := newActor("root", models.RoleSuperuser, "", "")
	_, err = svc.Create(ctx, root, models.DepartmentRequest{Name: "Civil", Code: "CIV"}, RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err), "superuser must name the college")

	civil, err := svc.Create(ctx, root, models.DepartmentRequest{Name: "Civil", Code: "CIV", CollegeID: "college-b"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "college-b", civil.CollegeID)

	hod := newActor("hod-a", models.RoleHOD, "college-a", dept.ID)
	_, err = svc.Create(ctx, hod, models.DepartmentRequest{Name: "Mech", Code: "MECH"}, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))
	assert.Len(t, repo.departments, 2)
}

func TestDepartmentServiceHODUpdatesOwnOnly(t *testing.T) {
	svc, repo := newDepartmentFixture()
	ctx := context.Background()
	principal := newActor("principal-a", models.RolePrincipal, "college-a", "")

	dept, err := svc.Create(ctx, principal, models.DepartmentRequest{Name: "Computer Science", Code: "CSE"}, RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, "dept-1", dept.ID)

	hod := newActor("hod-a", models.RoleHOD, "college-a", dept.ID)
	updated, err := svc.Update(ctx, hod, dept.ID, models.DepartmentRequest{Name: "Computer Science & Engineering", Code: "CSE", HODID: models.StringPtr("hod-a")}, RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, updated.HODID)
	assert.Equal(t, "hod-a", *updated.HODID)

	err = svc.Delete(ctx, hod, dept.ID, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))

	require.NoError(t, svc.Delete(ctx, principal, dept.ID, RequestMeta{}))
	assert.Empty(t, repo.departments)
}

func TestDepartmentServiceHODHeadsOneDepartment(t *testing.T) {
	svc, repo := newDepartmentFixture()
	ctx := context.Background()
	principal := newActor("principal-a", models.RolePrincipal, "college-a", "")

	cse, err := svc.Create(ctx, principal, models.DepartmentRequest{Name: "Computer Science", Code: "CSE"}, RequestMeta{})
	require.NoError(t, err)
	mech, err := svc.Create(ctx, principal, models.DepartmentRequest{Name: "Mechanical", Code: "MECH"}, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, principal, mech.ID, models.DepartmentRequest{Name: "Mechanical", Code: "MECH", HODID: models.StringPtr("hod-a")}, RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err), "hod-a belongs to CSE")

	_, err = svc.Update(ctx, principal, cse.ID, models.DepartmentRequest{Name: "Computer Science", Code: "CSE", HODID: models.StringPtr("hod-a")}, RequestMeta{})
	require.NoError(t, err)

	hodID := "hod-a"
	repo.departments["dept-9"] = &models.DepartmentDetail{Department: models.Department{ID: "dept-9", CollegeID: "college-a", Code: "OLD", HODID: &hodID}}
	_, err = svc.Update(ctx, principal, cse.ID, models.DepartmentRequest{Name: "Computer Science", Code: "CSE", HODID: models.StringPtr("hod-a")}, RequestMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err), "hod-a already heads dept-9")
}
