package models

import "time"

// PermissionRequestType classifies a student permission request.
type PermissionRequestType string

const (
	PermissionLeave  PermissionRequestType = "leave"
	PermissionOnDuty PermissionRequestType = "on_duty"
	PermissionOther  PermissionRequestType = "other"
)

// PermissionRequest is a leave or on-duty request raised by a student.
type PermissionRequest struct {
	ID                 string                `db:"id" json:"id"`
	StudentProfileID   string                `db:"student_profile_id" json:"student_profile_id"`
	RequestType        PermissionRequestType `db:"request_type" json:"request_type"`
	Title              string                `db:"title" json:"title"`
	Description        string                `db:"description" json:"description"`
	StartDate          time.Time             `db:"start_date" json:"start_date"`
	EndDate            time.Time             `db:"end_date" json:"end_date"`
	SupportingDocument *string               `db:"supporting_document" json:"supporting_document,omitempty"`
	Approval
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PermissionRequestDetail joins the student and tenant columns used for scoping and display.
type PermissionRequestDetail struct {
	PermissionRequest
	StudentID     string `db:"student_id" json:"student_id"`
	StudentUserID string `db:"student_user_id" json:"student_user_id"`
	StudentName   string `db:"student_name" json:"student_name"`
	DepartmentID  string `db:"department_id" json:"department_id"`
	CollegeID     string `db:"college_id" json:"college_id"`
}

// PermissionRequestFilter narrows permission request listings.
type PermissionRequestFilter struct {
	ListFilter
	RequestType PermissionRequestType
}

// PermissionRequestPayload is the create payload for permission requests.
type PermissionRequestPayload struct {
	RequestType PermissionRequestType `json:"request_type" form:"request_type" validate:"required,oneof=leave on_duty other"`
	Title       string                `json:"title" form:"title" validate:"required,max=200"`
	Description string                `json:"description" form:"description" validate:"required"`
	StartDate   string                `json:"start_date" form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string                `json:"end_date" form:"end_date" validate:"required,datetime=2006-01-02"`
}
