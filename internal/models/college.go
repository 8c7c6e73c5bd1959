package models

import "time"

// College is the root tenant.
type College struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	Address      string    `db:"address" json:"address"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	ContactPhone string    `db:"contact_phone" json:"contact_phone"`
	PrincipalID  *string   `db:"principal_id" json:"principal_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CollegeDetail adds aggregate counts to a college.
type CollegeDetail struct {
	College
	DepartmentsCount int `db:"departments_count" json:"departments_count"`
}

// CollegeRequest is the create/update payload for colleges.
type CollegeRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Code         string `json:"code" validate:"required,max=20"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=20"`
	// PrincipalID is left unchanged when absent and cleared when empty.
	PrincipalID *string `json:"principal_id"`
}

// Department belongs to exactly one college.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CollegeID string    `db:"college_id" json:"college_id"`
	HODID     *string   `db:"hod_id" json:"hod_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentDetail adds display and aggregate columns to a department.
type DepartmentDetail struct {
	Department
	CollegeName   string  `db:"college_name" json:"college_name"`
	HODName       *string `db:"hod_name" json:"hod_name,omitempty"`
	StudentsCount int     `db:"students_count" json:"students_count"`
	FacultyCount  int     `db:"faculty_count" json:"faculty_count"`
}

// DepartmentRequest is the create/update payload for departments.
type DepartmentRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Code      string `json:"code" validate:"required,max=20"`
	CollegeID string  `json:"college_id"`
	HODID     *string `json:"hod_id"`
}
