package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

func TestResolveApprove(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	next, err := Resolve(Pending(), models.ApprovalDecisionRequest{Status: models.ApprovalApproved, RejectionReason: "ignored"}, "hod-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, next.Status)
	require.NotNil(t, next.ApprovedBy)
	assert.Equal(t, "hod-1", *next.ApprovedBy)
	require.NotNil(t, next.ApprovedAt)
	assert.Equal(t, now, *next.ApprovedAt)
	assert.Nil(t, next.RejectionReason)
}

func TestResolveRejectNeedsReason(t *testing.T) {
	now := time.Now()
	_, err := Resolve(Pending(), models.ApprovalDecisionRequest{Status: models.ApprovalRejected, RejectionReason: "   "}, "hod-1", now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	next, err := Resolve(Pending(), models.ApprovalDecisionRequest{Status: models.ApprovalRejected, RejectionReason: "no certificate"}, "hod-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, next.Status)
	require.NotNil(t, next.RejectionReason)
	assert.Equal(t, "no certificate", *next.RejectionReason)
	assert.Equal(t, "hod-1", *next.ApprovedBy)
	assert.NotNil(t, next.ApprovedAt)
}

func TestResolveRejectsUnknownDecision(t *testing.T) {
	_, err := Resolve(Pending(), models.ApprovalDecisionRequest{Status: models.ApprovalPending}, "hod-1", time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolveTerminalIsConflict(t *testing.T) {
	resolved := AutoApprove("principal-1", time.Now())
	_, err := Resolve(resolved, models.ApprovalDecisionRequest{Status: models.ApprovalRejected, RejectionReason: "late"}, "principal-1", time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAutoApprove(t *testing.T) {
	a := AutoApprove("principal-1", time.Now())
	assert.Equal(t, models.ApprovalApproved, a.Status)
	assert.True(t, a.Status.Terminal())
	assert.Equal(t, "principal-1", *a.ApprovedBy)
	assert.False(t, Pending().Status.Terminal())
}
