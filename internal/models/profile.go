package models

import "time"

// StudentProfile extends a student user.
type StudentProfile struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	YearOfAdmission int        `db:"year_of_admission" json:"year_of_admission"`
	Course          string     `db:"course" json:"course"`
	Branch          string     `db:"branch" json:"branch"`
	DepartmentID    string     `db:"department_id" json:"department_id"`
	PhoneNumber     string     `db:"phone_number" json:"phone_number"`
	Address         string     `db:"address" json:"address"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentProfileDetail joins the owning user, department and college.
type StudentProfileDetail struct {
	StudentProfile
	Email          string `db:"email" json:"email"`
	Username       string `db:"username" json:"username"`
	FirstName      string `db:"first_name" json:"first_name"`
	LastName       string `db:"last_name" json:"last_name"`
	DepartmentName string `db:"department_name" json:"department_name"`
	CollegeID      string `db:"college_id" json:"college_id"`
	CollegeName    string `db:"college_name" json:"college_name"`
}

// FullName mirrors User.FullName for joined rows.
func (d *StudentProfileDetail) FullName() string {
	u := User{FirstName: d.FirstName, LastName: d.LastName, Username: d.Username}
	return u.FullName()
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	ListFilter
	DepartmentID    string
	YearOfAdmission int
}

// StudentProfileRequest creates a profile for an existing student user.
type StudentProfileRequest struct {
	UserID          string `json:"user_id"`
	StudentID       string `json:"student_id" validate:"required,max=20"`
	YearOfAdmission int    `json:"year_of_admission" validate:"required,min=1900,max=2100"`
	Course          string `json:"course" validate:"required,max=100"`
	Branch          string `json:"branch" validate:"max=100"`
	DepartmentID    string `json:"department_id" validate:"required"`
	PhoneNumber     string `json:"phone_number" validate:"max=15"`
	Address         string `json:"address"`
	DateOfBirth     string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

// CreateStudentRequest creates a student user together with the profile.
type CreateStudentRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,max=150"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	StudentProfileRequest
}

// FacultyProfile extends a faculty or hod user.
type FacultyProfile struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	EmployeeID     string    `db:"employee_id" json:"employee_id"`
	DepartmentID   string    `db:"department_id" json:"department_id"`
	Designation    string    `db:"designation" json:"designation"`
	PhoneNumber    string    `db:"phone_number" json:"phone_number"`
	OfficeLocation string    `db:"office_location" json:"office_location"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyProfileDetail joins the owning user, department and college.
type FacultyProfileDetail struct {
	FacultyProfile
	Email          string   `db:"email" json:"email"`
	FirstName      string   `db:"first_name" json:"first_name"`
	LastName       string   `db:"last_name" json:"last_name"`
	Role           UserRole `db:"role" json:"role"`
	DepartmentName string   `db:"department_name" json:"department_name"`
	CollegeID      string   `db:"college_id" json:"college_id"`
}

// FacultyProfileRequest creates or updates a faculty profile.
type FacultyProfileRequest struct {
	UserID         string `json:"user_id"`
	EmployeeID     string `json:"employee_id" validate:"required,max=20"`
	DepartmentID   string `json:"department_id" validate:"required"`
	Designation    string `json:"designation" validate:"required,max=100"`
	PhoneNumber    string `json:"phone_number" validate:"max=15"`
	OfficeLocation string `json:"office_location" validate:"max=100"`
}
