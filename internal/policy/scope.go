package policy

import "github.com/noah-isme/college-hub-api/internal/models"

// Resource names a record set that list and detail queries are scoped over.
type Resource string

const (
	ResourceColleges           Resource = "colleges"
	ResourceDepartments        Resource = "departments"
	ResourceUsers              Resource = "users"
	ResourceStudents           Resource = "students"
	ResourceFaculty            Resource = "faculty"
	ResourceAchievements       Resource = "achievements"
	ResourcePermissionRequests Resource = "permission_requests"
	ResourceEvents             Resource = "events"
	ResourceEventRequests      Resource = "event_requests"
)

// ScopeKind is the breadth of a Scope.
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	ScopeAll
	ScopeCollege
	ScopeDepartment
	ScopeOwner
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeAll:
		return "all"
	case ScopeCollege:
		return "college"
	case ScopeDepartment:
		return "department"
	case ScopeOwner:
		return "owner"
	default:
		return "none"
	}
}

// Scope is the visibility filter for one actor over one resource. The same value is
// used for list, detail, update and delete queries so the four can never drift.
// Records outside the scope are reported as not found.
type Scope struct {
	Kind         ScopeKind
	CollegeID    string
	DepartmentID string
	UserID       string
}

// Unrestricted reports whether the scope admits every row.
func (s Scope) Unrestricted() bool {
	return s.Kind == ScopeAll
}

// ScopeFor returns the visibility scope of actor over resource.
//
// For events, ScopeDepartment admits own-college events created by the actor or
// targeting the actor's department, and ScopeOwner admits approved own-college
// events targeting the student's department.
func ScopeFor(actor *models.User, resource Resource) Scope {
	if actor == nil || !actor.Active {
		return Scope{Kind: ScopeNone}
	}
	scope := Scope{
		CollegeID:    actor.College(),
		DepartmentID: actor.Department(),
		UserID:       actor.ID,
	}

	switch actor.Role {
	case models.RoleSuperuser:
		scope.Kind = ScopeAll
	case models.RolePrincipal:
		scope.Kind = ScopeCollege
		if scope.CollegeID == "" {
			scope.Kind = ScopeNone
		}
	case models.RoleHOD, models.RoleFaculty:
		scope.Kind = staffScope(actor.Role, resource)
		if scope.DepartmentID == "" || scope.CollegeID == "" {
			scope.Kind = ScopeNone
		}
	case models.RoleStudent:
		scope.Kind = studentScope(resource)
		if scope.CollegeID == "" {
			scope.Kind = ScopeNone
		}
	default:
		scope.Kind = ScopeNone
	}
	return scope
}

func staffScope(role models.UserRole, resource Resource) ScopeKind {
	switch resource {
	case ResourceColleges:
		return ScopeCollege
	case ResourceEventRequests:
		if role == models.RoleHOD {
			return ScopeOwner
		}
		return ScopeNone
	default:
		return ScopeDepartment
	}
}

func studentScope(resource Resource) ScopeKind {
	switch resource {
	case ResourceColleges:
		return ScopeCollege
	case ResourceDepartments:
		return ScopeDepartment
	case ResourceUsers, ResourceStudents, ResourceAchievements, ResourcePermissionRequests, ResourceEvents:
		return ScopeOwner
	default:
		return ScopeNone
	}
}
