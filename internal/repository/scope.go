package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
)

// scopeColumns names the SQL expressions a resource exposes for tenant filtering.
// An empty column means the resource cannot be narrowed on that axis.
type scopeColumns struct {
	college    string
	department string
	owner      string
}

// Student and faculty rows belong to the college of their department, not the
// college stored on the user, so the tenant joins go through departments.
const (
	studentTenantJoin = "JOIN users u ON u.id = sp.user_id JOIN departments sd ON sd.id = sp.department_id"
	facultyTenantJoin = "JOIN users u ON u.id = fp.user_id JOIN departments fd ON fd.id = fp.department_id"
)

var (
	collegeScopeColumns     = scopeColumns{college: "c.id"}
	departmentScopeColumns  = scopeColumns{college: "d.college_id", department: "d.id"}
	userScopeColumns        = scopeColumns{college: "u.college_id", department: "u.department_id", owner: "u.id"}
	studentScopeColumns     = scopeColumns{college: "sd.college_id", department: "sp.department_id", owner: "sp.user_id"}
	facultyScopeColumns     = scopeColumns{college: "fd.college_id", department: "fp.department_id", owner: "fp.user_id"}
	eventRequestScopeColumn = scopeColumns{college: "e.college_id", owner: "epr.requested_by"}
)

// scopePredicate renders scope as a WHERE fragment, appending its bind values to args.
func scopePredicate(scope policy.Scope, cols scopeColumns, args []interface{}) (string, []interface{}) {
	switch scope.Kind {
	case policy.ScopeAll:
		return "1=1", args
	case policy.ScopeCollege:
		if cols.college == "" {
			return "1=0", args
		}
		args = append(args, scope.CollegeID)
		return fmt.Sprintf("%s = $%d", cols.college, len(args)), args
	case policy.ScopeDepartment:
		if cols.college == "" {
			return "1=0", args
		}
		args = append(args, scope.CollegeID)
		clause := fmt.Sprintf("%s = $%d", cols.college, len(args))
		if cols.department != "" {
			args = append(args, scope.DepartmentID)
			clause += fmt.Sprintf(" AND %s = $%d", cols.department, len(args))
		}
		return clause, args
	case policy.ScopeOwner:
		if cols.owner == "" {
			return "1=0", args
		}
		args = append(args, scope.UserID)
		return fmt.Sprintf("%s = $%d", cols.owner, len(args)), args
	default:
		return "1=0", args
	}
}

// eventScopePredicate renders event visibility. Staff see own-college events they
// created or that target their department; students see approved ones targeting them.
func eventScopePredicate(scope policy.Scope, args []interface{}) (string, []interface{}) {
	switch scope.Kind {
	case policy.ScopeAll:
		return "1=1", args
	case policy.ScopeCollege:
		args = append(args, scope.CollegeID)
		return fmt.Sprintf("e.college_id = $%d", len(args)), args
	case policy.ScopeDepartment:
		args = append(args, scope.CollegeID, scope.UserID, scope.DepartmentID)
		n := len(args)
		return fmt.Sprintf("e.college_id = $%d AND (e.created_by = $%d OR %s)", n-2, n-1, departmentTargeted(n)), args
	case policy.ScopeOwner:
		args = append(args, scope.CollegeID, models.ApprovalApproved, scope.DepartmentID)
		n := len(args)
		return fmt.Sprintf("e.college_id = $%d AND e.status = $%d AND %s", n-2, n-1, departmentTargeted(n)), args
	default:
		return "1=0", args
	}
}

func departmentTargeted(arg int) string {
	return fmt.Sprintf("($%d = ANY(e.target_departments) OR cardinality(e.target_departments) = 0)", arg)
}

// orderBy resolves a whitelisted sort column and direction.
func orderBy(sortBy, sortOrder string, allowed map[string]string, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return column + " " + order
}

// searchPredicate matches term case-insensitively against any of columns.
func searchPredicate(term string, columns []string, args []interface{}) (string, []interface{}) {
	args = append(args, "%"+strings.ToLower(strings.TrimSpace(term))+"%")
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("LOWER(%s) LIKE $%d", col, len(args))
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
