package models

import (
	"time"

	"github.com/lib/pq"
)

// Event is a college event created by an hod or principal.
type Event struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Description       string         `db:"description" json:"description"`
	StartDate         time.Time      `db:"start_date" json:"start_date"`
	EndDate           time.Time      `db:"end_date" json:"end_date"`
	TargetYears       pq.Int64Array  `db:"target_years" json:"target_years"`
	TargetDepartments pq.StringArray `db:"target_departments" json:"target_departments"`
	CircularPhoto     *string        `db:"circular_photo" json:"circular_photo,omitempty"`
	CreatedBy         string         `db:"created_by" json:"created_by"`
	CollegeID         string         `db:"college_id" json:"college_id"`
	Approval
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TargetsDepartment reports whether the event is open to the department. No targets means all.
func (e *Event) TargetsDepartment(departmentID string) bool {
	if len(e.TargetDepartments) == 0 {
		return true
	}
	for _, id := range e.TargetDepartments {
		if id == departmentID {
			return true
		}
	}
	return false
}

// EventDetail adds creator display columns.
type EventDetail struct {
	Event
	CreatorName string `db:"creator_name" json:"creator_name"`
}

// EventPermissionRequest is the companion approval raised when an hod creates an event.
type EventPermissionRequest struct {
	ID          string `db:"id" json:"id"`
	EventID     string `db:"event_id" json:"event_id"`
	RequestedBy string `db:"requested_by" json:"requested_by"`
	Approval
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EventRequestDetail joins the event and tenant columns used for scoping and display.
type EventRequestDetail struct {
	EventPermissionRequest
	EventName     string `db:"event_name" json:"event_name"`
	CollegeID     string `db:"college_id" json:"college_id"`
	RequesterName string `db:"requester_name" json:"requester_name"`
}

// EventRequest is the create/update payload for events.
type EventRequest struct {
	Name              string   `json:"name" form:"name" validate:"required,max=200"`
	Description       string   `json:"description" form:"description" validate:"required"`
	StartDate         string   `json:"start_date" form:"start_date" validate:"required"`
	EndDate           string   `json:"end_date" form:"end_date" validate:"required"`
	TargetYears       []int64  `json:"target_years" form:"target_years" validate:"dive,min=1,max=6"`
	TargetDepartments []string `json:"target_departments" form:"target_departments"`
}
