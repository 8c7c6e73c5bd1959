package models

import "time"

// ApprovalStatus is the state of an approval-bearing entity.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// Approval holds the shared approval columns embedded by every approval-bearing entity.
type Approval struct {
	Status          ApprovalStatus `db:"status" json:"status"`
	ApprovedBy      *string        `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
}

// ApprovalDecisionRequest is the body of every approve endpoint.
type ApprovalDecisionRequest struct {
	Status          ApprovalStatus `json:"status" validate:"required,oneof=approved rejected"`
	RejectionReason string         `json:"rejection_reason"`
}

// ListFilter carries the paging, search and status options shared by list endpoints.
type ListFilter struct {
	Search    string
	Status    ApprovalStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Normalize clamps paging to sane bounds and returns page, size and offset.
func (f ListFilter) Normalize() (page, size, offset int) {
	page = f.Page
	if page < 1 {
		page = 1
	}
	size = f.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size, (page - 1) * size
}
