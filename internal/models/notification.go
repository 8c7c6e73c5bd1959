package models

import "time"

// Notification is an in-app message for a user.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PrincipalDashboard summarises a college for its principal.
type PrincipalDashboard struct {
	CollegeID                 string                    `json:"college_id"`
	DepartmentsCount          int                       `json:"departments_count"`
	StudentsCount             int                       `json:"students_count"`
	HODs                      []UserInfo                `json:"hods"`
	Faculty                   []UserInfo                `json:"faculty"`
	PendingAchievements       int                       `json:"pending_achievements"`
	PendingPermissionRequests int                       `json:"pending_permission_requests"`
	PendingEventRequests      int                       `json:"pending_event_requests"`
	RecentEvents              []EventDetail             `json:"recent_events"`
	RecentPermissionRequests  []PermissionRequestDetail `json:"recent_permission_requests"`
	GeneratedAt               time.Time                 `json:"generated_at"`
}
