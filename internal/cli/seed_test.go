package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-hub-api/internal/models"
)

type memStore struct {
	seq         int
	colleges    map[string]*models.College
	departments map[string]*models.Department
	users       map[string]*models.User
	faculty     []*models.FacultyProfile
	students    []*models.StudentProfile
}

func newMemStore() *memStore {
	return &memStore{
		colleges:    map[string]*models.College{},
		departments: map[string]*models.Department{},
		users:       map[string]*models.User{},
	}
}

func (m *memStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

type memColleges struct{ *memStore }

func (m memColleges) FindByCode(_ context.Context, code string) (*models.College, error) {
	if c, ok := m.colleges[code]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m memColleges) Create(_ context.Context, c *models.College) error {
	c.ID = m.id("college")
	stored := *c
	m.colleges[c.Code] = &stored
	return nil
}

func (m memColleges) Update(_ context.Context, c *models.College) error {
	stored := *c
	m.colleges[c.Code] = &stored
	return nil
}

type memDepartments struct{ *memStore }

func (m memDepartments) FindByCode(_ context.Context, collegeID, code string) (*models.Department, error) {
	if d, ok := m.departments[collegeID+"/"+code]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m memDepartments) Create(_ context.Context, d *models.Department) error {
	d.ID = m.id("dept")
	stored := *d
	m.departments[d.CollegeID+"/"+d.Code] = &stored
	return nil
}

func (m memDepartments) Update(_ context.Context, d *models.Department) error {
	stored := *d
	m.departments[d.CollegeID+"/"+d.Code] = &stored
	return nil
}

type memUsers struct{ *memStore }

func (m memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m memUsers) Create(_ context.Context, u *models.User) error {
	u.ApplyRole()
	if err := u.Validate(); err != nil {
		return err
	}
	u.ID = m.id("user")
	m.users[u.Email] = u
	return nil
}

func (m memUsers) CreateWithUser(ctx context.Context, u *models.User, p *models.StudentProfile) error {
	if err := m.Create(ctx, u); err != nil {
		return err
	}
	p.UserID = u.ID
	m.students = append(m.students, p)
	return nil
}

type memFaculty struct{ *memStore }

func (m memFaculty) Create(_ context.Context, p *models.FacultyProfile) error {
	m.faculty = append(m.faculty, p)
	return nil
}

func newTestSeeder(store *memStore, out *bytes.Buffer) *Seeder {
	return &Seeder{
		Colleges:    memColleges{store},
		Departments: memDepartments{store},
		Users:       memUsers{store},
		Faculty:     memFaculty{store},
		Students:    memUsers{store},
		Out:         out,
		Cost:        bcrypt.MinCost,
	}
}

func TestSeederCreatesTenantAndRoles(t *testing.T) {
	store := newMemStore()
	var out bytes.Buffer
	require.NoError(t, newTestSeeder(store, &out).Run(context.Background()))

	require.Len(t, store.colleges, 2)
	require.Len(t, store.departments, 2)
	require.Len(t, store.users, 5)

	mit := store.colleges["MIT"]
	principal := store.users["principal@example.com"]
	require.NotNil(t, mit.PrincipalID)
	assert.Equal(t, principal.ID, *mit.PrincipalID)
	assert.True(t, principal.IsPrincipal)
	assert.True(t, principal.IsFaculty)

	cse := store.departments[mit.ID+"/CSE"]
	hod := store.users["hod@example.com"]
	require.NotNil(t, cse.HODID)
	assert.Equal(t, hod.ID, *cse.HODID)
	assert.Equal(t, cse.ID, hod.Department())

	admin := store.users["admin@example.com"]
	assert.Equal(t, models.RoleSuperuser, admin.Role)
	assert.Nil(t, admin.CollegeID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))

	require.Len(t, store.faculty, 2)
	require.Len(t, store.students, 1)
	assert.Equal(t, "MIT2024001", store.students[0].StudentID)
	assert.Equal(t, cse.ID, store.students[0].DepartmentID)

	assert.Contains(t, out.String(), "Created college: Massachusetts Institute of Technology")
	assert.Contains(t, out.String(), "Sample data setup completed!")
}

func TestSeederIsIdempotent(t *testing.T) {
	store := newMemStore()
	require.NoError(t, newTestSeeder(store, &bytes.Buffer{}).Run(context.Background()))

	var out bytes.Buffer
	require.NoError(t, newTestSeeder(store, &out).Run(context.Background()))

	assert.Len(t, store.colleges, 2)
	assert.Len(t, store.departments, 2)
	assert.Len(t, store.users, 5)
	assert.Len(t, store.faculty, 2)
	assert.Len(t, store.students, 1)
	assert.Contains(t, out.String(), "College already exists: Massachusetts Institute of Technology")
}

func TestRootCommandWiresSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])
	assert.True(t, names["clear-users"])
}

func TestClearUsersRequiresConfirmation(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"clear-users"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestMigrateRejectsUnknownCommand(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"migrate", "sideways"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migrate command")
}
