package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRoleFlags(t *testing.T) {
	cases := []struct {
		role                             UserRole
		student, faculty, hod, principal bool
	}{
		{RoleStudent, true, false, false, false},
		{RoleFaculty, false, true, false, false},
		{RoleHOD, false, true, true, false},
		{RolePrincipal, false, true, false, true},
		{RoleSuperuser, false, false, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			u := &User{Role: tc.role, IsStudent: !tc.student, IsHOD: !tc.hod}
			u.ApplyRole()
			assert.Equal(t, tc.student, u.IsStudent)
			assert.Equal(t, tc.faculty, u.IsFaculty)
			assert.Equal(t, tc.hod, u.IsHOD)
			assert.Equal(t, tc.principal, u.IsPrincipal)
			if u.IsHOD || u.IsPrincipal {
				assert.True(t, u.IsFaculty)
			}
		})
	}
}

func TestApplyRoleIsRecomputedOnRoleChange(t *testing.T) {
	u := &User{Role: RoleHOD}
	u.ApplyRole()
	require.True(t, u.IsHOD)

	u.Role = RoleStudent
	u.ApplyRole()
	assert.True(t, u.IsStudent)
	assert.False(t, u.IsHOD)
	assert.False(t, u.IsFaculty)
	assert.False(t, u.IsPrincipal)
}

func TestUserValidate(t *testing.T) {
	college := "college-1"
	dept := "dept-1"

	cases := []struct {
		name  string
		user  User
		field string
	}{
		{"missing email", User{Role: RoleStudent, CollegeID: &college}, "email"},
		{"unknown role", User{Email: "a@b.c", Role: "janitor"}, "role"},
		{"student without college", User{Email: "a@b.c", Role: RoleStudent}, "college_id"},
		{"principal without college", User{Email: "a@b.c", Role: RolePrincipal}, "college_id"},
		{"faculty without department", User{Email: "a@b.c", Role: RoleFaculty, CollegeID: &college}, "department_id"},
		{"hod without department", User{Email: "a@b.c", Role: RoleHOD, CollegeID: &college}, "department_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.user.Validate()
			require.Error(t, err)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}

	ok := []User{
		{Email: "root@b.c", Role: RoleSuperuser},
		{Email: "s@b.c", Role: RoleStudent, CollegeID: &college},
		{Email: "p@b.c", Role: RolePrincipal, CollegeID: &college},
		{Email: "h@b.c", Role: RoleHOD, CollegeID: &college, DepartmentID: &dept},
	}
	for _, u := range ok {
		assert.NoError(t, u.Validate(), u.Email)
	}
}

func TestRoleCanApprove(t *testing.T) {
	assert.True(t, RoleHOD.CanApprove(CategoryAchievement))
	assert.False(t, RoleHOD.CanApprove(CategoryEvent))
	assert.True(t, RolePrincipal.CanApprove(CategoryEvent))
	assert.False(t, RoleFaculty.CanApprove(CategoryAchievement))
	assert.False(t, RoleStudent.CanApprove(CategoryPermissionRequest))
	assert.True(t, RoleSuperuser.CanApprove(CategoryPermissionRequest))
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("certificate.PDF", DocumentExtensions))
	assert.True(t, HasExtension("photo.jpeg", ImageExtensions))
	assert.False(t, HasExtension("script.exe", DocumentExtensions))
	assert.False(t, HasExtension("notes.docx", ImageExtensions))
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	live := &RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, live.Usable(now))
	assert.False(t, (&RefreshToken{ExpiresAt: now.Add(-time.Second)}).Usable(now))
	assert.False(t, (&RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}).Usable(now))
	assert.False(t, (*RefreshToken)(nil).Usable(now))
}
