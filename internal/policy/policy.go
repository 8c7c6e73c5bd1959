// Package policy decides what an actor may do and which records an actor may see.
// Every function here is a pure function of its arguments; callers pass the actor
// freshly loaded for the current request.
package policy

import "github.com/noah-isme/college-hub-api/internal/models"

// Action names an operation checked by Authorize.
type Action string

const (
	ActionAddStudent         Action = "add_student"
	ActionEditStudent        Action = "edit_student"
	ActionDeleteStudent      Action = "delete_student"
	ActionImportStudents     Action = "import_students"
	ActionUploadAchievement  Action = "upload_achievement"
	ActionDownloadProfilePDF Action = "download_profile_pdf"
	ActionRequestPermission  Action = "request_permission"
	ActionApproveAchievement Action = "approve_achievement"
	ActionApprovePermission  Action = "approve_permission"
	ActionApproveEvent       Action = "approve_event"
	ActionCreateEvent        Action = "create_event"
	ActionManageEvent        Action = "manage_event"
	ActionManageCollege      Action = "manage_college"
	ActionManageDepartment   Action = "manage_department"
	ActionManageFaculty      Action = "manage_faculty"
	ActionViewDashboard      Action = "view_dashboard"
)

var studentActions = map[Action]bool{
	ActionUploadAchievement:  true,
	ActionDownloadProfilePDF: true,
	ActionRequestPermission:  true,
}

var facultyActions = map[Action]bool{
	ActionAddStudent:  true,
	ActionEditStudent: true,
}

// Target is the tenant position of the object being acted on. A user target uses
// the user's college and department; a department target uses its own id and college;
// student-owned records use the owning student's department and college.
type Target struct {
	CollegeID    string
	DepartmentID string
}

// UserTarget builds a target from a user.
func UserTarget(u *models.User) *Target {
	if u == nil {
		return nil
	}
	return &Target{CollegeID: u.College(), DepartmentID: u.Department()}
}

// DepartmentTarget builds a target from a department.
func DepartmentTarget(d *models.Department) *Target {
	if d == nil {
		return nil
	}
	return &Target{CollegeID: d.CollegeID, DepartmentID: d.ID}
}

// Authorize returns whether actor may perform action on target. Rules apply in order:
// superuser, principal, hod, faculty, student, then deny.
func Authorize(actor *models.User, action Action, target *Target) bool {
	if actor == nil || !actor.Active {
		return false
	}
	switch actor.Role {
	case models.RoleSuperuser:
		return true
	case models.RolePrincipal:
		college := actor.College()
		if college == "" {
			return false
		}
		if target == nil {
			return true
		}
		return target.CollegeID == college
	case models.RoleHOD:
		dept := actor.Department()
		if dept == "" {
			return false
		}
		if target == nil {
			return true
		}
		return target.DepartmentID == dept
	case models.RoleFaculty:
		dept := actor.Department()
		if dept == "" || !facultyActions[action] || target == nil {
			return false
		}
		return target.DepartmentID == dept
	case models.RoleStudent:
		return studentActions[action]
	default:
		return false
	}
}

// CanApprove combines the role capability table with Authorize for the entity's tenant.
func CanApprove(actor *models.User, category models.ApprovalCategory, target *Target) bool {
	if actor == nil || !actor.Role.CanApprove(category) {
		return false
	}
	return Authorize(actor, approveAction(category), target)
}

func approveAction(category models.ApprovalCategory) Action {
	switch category {
	case models.CategoryAchievement:
		return ActionApproveAchievement
	case models.CategoryPermissionRequest:
		return ActionApprovePermission
	default:
		return ActionApproveEvent
	}
}
