package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/college-hub-api/internal/models"
)

func actor(role models.UserRole, college, dept string) *models.User {
	u := &models.User{
		ID:           string(role) + "-1",
		Email:        string(role) + "@example.com",
		Role:         role,
		CollegeID:    models.StringPtr(college),
		DepartmentID: models.StringPtr(dept),
		Active:       true,
	}
	u.ApplyRole()
	return u
}

func TestAuthorizeSuperuserAlwaysAllowed(t *testing.T) {
	root := actor(models.RoleSuperuser, "", "")
	assert.True(t, Authorize(root, ActionManageDepartment, &Target{CollegeID: "other"}))
	assert.True(t, Authorize(root, ActionApproveEvent, nil))
}

func TestAuthorizePrincipalMatchesCollege(t *testing.T) {
	p := actor(models.RolePrincipal, "college-a", "")
	assert.True(t, Authorize(p, ActionEditStudent, &Target{CollegeID: "college-a", DepartmentID: "cse"}))
	assert.False(t, Authorize(p, ActionEditStudent, &Target{CollegeID: "college-b", DepartmentID: "cse"}))
	assert.True(t, Authorize(p, ActionCreateEvent, nil))

	orphan := actor(models.RolePrincipal, "", "")
	assert.False(t, Authorize(orphan, ActionCreateEvent, nil))
}

func TestAuthorizeHODMatchesDepartment(t *testing.T) {
	h := actor(models.RoleHOD, "college-a", "cse")
	assert.True(t, Authorize(h, ActionApproveAchievement, &Target{CollegeID: "college-a", DepartmentID: "cse"}))
	assert.False(t, Authorize(h, ActionApproveAchievement, &Target{CollegeID: "college-a", DepartmentID: "ece"}))
	assert.True(t, Authorize(h, ActionCreateEvent, nil))

	noDept := actor(models.RoleHOD, "college-a", "")
	assert.False(t, Authorize(noDept, ActionCreateEvent, nil))
	assert.False(t, Authorize(noDept, ActionApproveAchievement, &Target{CollegeID: "college-a"}))
}

func TestAuthorizeFacultyOnlyStudentActions(t *testing.T) {
	f := actor(models.RoleFaculty, "college-a", "cse")
	own := &Target{CollegeID: "college-a", DepartmentID: "cse"}
	assert.True(t, Authorize(f, ActionAddStudent, own))
	assert.True(t, Authorize(f, ActionEditStudent, own))
	assert.False(t, Authorize(f, ActionEditStudent, &Target{CollegeID: "college-a", DepartmentID: "ece"}))
	assert.False(t, Authorize(f, ActionDeleteStudent, own))
	assert.False(t, Authorize(f, ActionApproveAchievement, own))
	assert.False(t, Authorize(f, ActionAddStudent, nil))
}

func TestAuthorizeStudentWhitelist(t *testing.T) {
	s := actor(models.RoleStudent, "college-a", "cse")
	assert.True(t, Authorize(s, ActionUploadAchievement, nil))
	assert.True(t, Authorize(s, ActionDownloadProfilePDF, nil))
	assert.True(t, Authorize(s, ActionRequestPermission, nil))
	assert.False(t, Authorize(s, ActionApproveAchievement, &Target{CollegeID: "college-a", DepartmentID: "cse"}))
	assert.False(t, Authorize(s, ActionCreateEvent, nil))
}

func TestAuthorizeDeniesUnknownAndInactive(t *testing.T) {
	assert.False(t, Authorize(nil, ActionCreateEvent, nil))

	stranger := actor("janitor", "college-a", "cse")
	assert.False(t, Authorize(stranger, ActionUploadAchievement, nil))

	inactive := actor(models.RoleSuperuser, "", "")
	inactive.Active = false
	assert.False(t, Authorize(inactive, ActionCreateEvent, nil))
}

func TestCanApproveCombinesRoleAndTenant(t *testing.T) {
	target := &Target{CollegeID: "college-a", DepartmentID: "cse"}

	assert.True(t, CanApprove(actor(models.RoleHOD, "college-a", "cse"), models.CategoryAchievement, target))
	assert.False(t, CanApprove(actor(models.RoleHOD, "college-a", "cse"), models.CategoryEvent, target))
	assert.False(t, CanApprove(actor(models.RoleHOD, "college-a", "ece"), models.CategoryAchievement, target))
	assert.True(t, CanApprove(actor(models.RolePrincipal, "college-a", ""), models.CategoryEvent, target))
	assert.False(t, CanApprove(actor(models.RolePrincipal, "college-b", ""), models.CategoryPermissionRequest, target))
	assert.False(t, CanApprove(actor(models.RoleFaculty, "college-a", "cse"), models.CategoryAchievement, target))
	assert.True(t, CanApprove(actor(models.RoleSuperuser, "", ""), models.CategoryEvent, target))
}

func TestScopeFor(t *testing.T) {
	cases := []struct {
		name     string
		actor    *models.User
		resource Resource
		kind     ScopeKind
	}{
		{"superuser students", actor(models.RoleSuperuser, "", ""), ResourceStudents, ScopeAll},
		{"principal students", actor(models.RolePrincipal, "college-a", ""), ResourceStudents, ScopeCollege},
		{"hod achievements", actor(models.RoleHOD, "college-a", "cse"), ResourceAchievements, ScopeDepartment},
		{"faculty students", actor(models.RoleFaculty, "college-a", "cse"), ResourceStudents, ScopeDepartment},
		{"hod event requests", actor(models.RoleHOD, "college-a", "cse"), ResourceEventRequests, ScopeOwner},
		{"faculty event requests", actor(models.RoleFaculty, "college-a", "cse"), ResourceEventRequests, ScopeNone},
		{"student achievements", actor(models.RoleStudent, "college-a", "cse"), ResourceAchievements, ScopeOwner},
		{"student faculty", actor(models.RoleStudent, "college-a", "cse"), ResourceFaculty, ScopeNone},
		{"hod without department", actor(models.RoleHOD, "college-a", ""), ResourceStudents, ScopeNone},
		{"principal without college", actor(models.RolePrincipal, "", ""), ResourceStudents, ScopeNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scope := ScopeFor(tc.actor, tc.resource)
			assert.Equal(t, tc.kind, scope.Kind, scope.Kind.String())
		})
	}

	s := ScopeFor(actor(models.RoleHOD, "college-a", "cse"), ResourceStudents)
	assert.Equal(t, "college-a", s.CollegeID)
	assert.Equal(t, "cse", s.DepartmentID)
	assert.Equal(t, "hod-1", s.UserID)
	assert.Equal(t, ScopeNone, ScopeFor(nil, ResourceStudents).Kind)
}
