// Package workflow holds the pending -> approved|rejected state machine shared by
// achievements, permission requests, events and event permission requests.
package workflow

import (
	"strings"
	"time"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

// Pending returns the initial approval state.
func Pending() models.Approval {
	return models.Approval{Status: models.ApprovalPending}
}

// AutoApprove returns an approval resolved at creation time by its own creator.
func AutoApprove(approverID string, now time.Time) models.Approval {
	at := now.UTC()
	return models.Approval{
		Status:     models.ApprovalApproved,
		ApprovedBy: &approverID,
		ApprovedAt: &at,
	}
}

// Resolve applies a decision to a pending approval and returns the new state.
// A rejection needs a non-empty reason; the reason is dropped on approval.
// The caller persists the result with a compare-and-set on status = pending.
func Resolve(current models.Approval, decision models.ApprovalDecisionRequest, approverID string, now time.Time) (models.Approval, error) {
	if current.Status != models.ApprovalPending {
		return current, appErrors.Clone(appErrors.ErrConflict, "already "+string(current.Status))
	}
	if approverID == "" {
		return current, appErrors.Clone(appErrors.ErrValidation, "approver is required")
	}

	next := models.Approval{Status: decision.Status, ApprovedBy: &approverID}
	at := now.UTC()
	next.ApprovedAt = &at

	switch decision.Status {
	case models.ApprovalApproved:
	case models.ApprovalRejected:
		reason := strings.TrimSpace(decision.RejectionReason)
		if reason == "" {
			return current, appErrors.Clone(appErrors.ErrValidation, "rejection_reason is required when rejecting")
		}
		next.RejectionReason = &reason
	default:
		return current, appErrors.Clone(appErrors.ErrValidation, "status must be approved or rejected")
	}
	return next, nil
}
