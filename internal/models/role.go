package models

// UserRole is the single authoritative role of a user.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleFaculty   UserRole = "faculty"
	RoleHOD       UserRole = "hod"
	RolePrincipal UserRole = "principal"
	RoleSuperuser UserRole = "superuser"
)

// ApprovalCategory groups approval-bearing entities by who may resolve them.
type ApprovalCategory string

const (
	CategoryAchievement       ApprovalCategory = "achievement"
	CategoryPermissionRequest ApprovalCategory = "permission_request"
	CategoryEvent             ApprovalCategory = "event"
)

// RoleCapabilities is the lookup row for a role: derived legacy flags plus what the role may do.
type RoleCapabilities struct {
	IsStudent   bool
	IsFaculty   bool
	IsHOD       bool
	IsPrincipal bool

	RequiresCollege    bool
	RequiresDepartment bool
	CreatesEvents      bool
	Approves           map[ApprovalCategory]bool
}

var roleCapabilities = map[UserRole]RoleCapabilities{
	RoleStudent: {
		IsStudent:       true,
		RequiresCollege: true,
	},
	RoleFaculty: {
		IsFaculty:          true,
		RequiresCollege:    true,
		RequiresDepartment: true,
	},
	RoleHOD: {
		IsFaculty:          true,
		IsHOD:              true,
		RequiresCollege:    true,
		RequiresDepartment: true,
		CreatesEvents:      true,
		Approves: map[ApprovalCategory]bool{
			CategoryAchievement:       true,
			CategoryPermissionRequest: true,
		},
	},
	RolePrincipal: {
		IsFaculty:       true,
		IsPrincipal:     true,
		RequiresCollege: true,
		CreatesEvents:   true,
		Approves: map[ApprovalCategory]bool{
			CategoryAchievement:       true,
			CategoryPermissionRequest: true,
			CategoryEvent:             true,
		},
	},
	RoleSuperuser: {
		Approves: map[ApprovalCategory]bool{
			CategoryAchievement:       true,
			CategoryPermissionRequest: true,
			CategoryEvent:             true,
		},
	},
}

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Capabilities returns the lookup row for the role. Unknown roles get the zero row.
func (r UserRole) Capabilities() RoleCapabilities {
	return roleCapabilities[r]
}

// CanApprove reports whether holders of the role may resolve entities in the category.
func (r UserRole) CanApprove(category ApprovalCategory) bool {
	return roleCapabilities[r].Approves[category]
}
