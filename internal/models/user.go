package models

import (
	"strings"
	"time"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	CollegeID    *string    `db:"college_id" json:"college_id,omitempty"`
	DepartmentID *string    `db:"department_id" json:"department_id,omitempty"`
	IsStudent    bool       `db:"is_student" json:"is_student"`
	IsFaculty    bool       `db:"is_faculty" json:"is_faculty"`
	IsHOD        bool       `db:"is_hod" json:"is_hod"`
	IsPrincipal  bool       `db:"is_principal" json:"is_principal"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ApplyRole recomputes the denormalised role flags from Role.
func (u *User) ApplyRole() {
	caps := u.Role.Capabilities()
	u.IsStudent = caps.IsStudent
	u.IsFaculty = caps.IsFaculty
	u.IsHOD = caps.IsHOD
	u.IsPrincipal = caps.IsPrincipal
}

// Validate enforces the tenant invariants checked before every save.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return &FieldError{Field: "email", Message: "email is required"}
	}
	if !u.Role.Valid() {
		return &FieldError{Field: "role", Message: "unknown role"}
	}
	caps := u.Role.Capabilities()
	if caps.RequiresCollege && blank(u.CollegeID) {
		return &FieldError{Field: "college_id", Message: "college is required for role " + string(u.Role)}
	}
	if caps.RequiresDepartment && blank(u.DepartmentID) {
		return &FieldError{Field: "department_id", Message: "department is required for role " + string(u.Role)}
	}
	return nil
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// College returns the college id or an empty string.
func (u *User) College() string {
	return deref(u.CollegeID)
}

// Department returns the department id or an empty string.
func (u *User) Department() string {
	return deref(u.DepartmentID)
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role         *UserRole
	CollegeID    string
	DepartmentID string
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// FieldError is a model-level validation failure on a single field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
