package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type mockEventRepo struct {
	events   map[string]*models.EventDetail
	requests map[string]*models.EventRequestDetail
	seq      int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: map[string]*models.EventDetail{}, requests: map[string]*models.EventRequestDetail{}}
}

func (m *mockEventRepo) visible(e *models.EventDetail, scope policy.Scope) bool {
	switch scope.Kind {
	case policy.ScopeDepartment:
		return e.CollegeID == scope.CollegeID && (e.CreatedBy == scope.UserID || e.TargetsDepartment(scope.DepartmentID))
	case policy.ScopeOwner:
		return e.CollegeID == scope.CollegeID && e.Status == models.ApprovalApproved && e.TargetsDepartment(scope.DepartmentID)
	default:
		return inScope(scope, e.CollegeID, "", e.CreatedBy)
	}
}

func (m *mockEventRepo) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.EventDetail, int, error) {
	var out []models.EventDetail
	for _, e := range m.events {
		if m.visible(e, scope) {
			out = append(out, *e)
		}
	}
	return out, len(out), nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.EventDetail, error) {
	e, ok := m.events[id]
	if !ok || !m.visible(e, scope) {
		return nil, sql.ErrNoRows
	}
	out := *e
	return &out, nil
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event, request *models.EventPermissionRequest) error {
	m.seq++
	event.ID = fmt.Sprintf("event-%d", m.seq)
	m.events[event.ID] = &models.EventDetail{Event: *event}
	if request != nil {
		request.ID = fmt.Sprintf("event-req-%d", m.seq)
		request.EventID = event.ID
		m.requests[request.ID] = &models.EventRequestDetail{
			EventPermissionRequest: *request,
			EventName:              event.Name,
			CollegeID:              event.CollegeID,
		}
	}
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event) error {
	e, ok := m.events[event.ID]
	if !ok {
		return sql.ErrNoRows
	}
	e.Event = *event
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.events, id)
	for rid, r := range m.requests {
		if r.EventID == id {
			delete(m.requests, rid)
		}
	}
	return nil
}

func (m *mockEventRepo) ListRequests(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.EventRequestDetail, int, error) {
	var out []models.EventRequestDetail
	for _, r := range m.requests {
		if inScope(scope, r.CollegeID, "", r.RequestedBy) {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

func (m *mockEventRepo) FindRequestByID(ctx context.Context, id string, scope policy.Scope) (*models.EventRequestDetail, error) {
	r, ok := m.requests[id]
	if !ok || !inScope(scope, r.CollegeID, "", r.RequestedBy) {
		return nil, sql.ErrNoRows
	}
	out := *r
	return &out, nil
}

func (m *mockEventRepo) FindRequestByEventID(ctx context.Context, eventID string) (*models.EventRequestDetail, error) {
	for _, r := range m.requests {
		if r.EventID == eventID {
			out := *r
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) ResolveRequest(ctx context.Context, requestID, eventID string, approval models.Approval) error {
	r, ok := m.requests[requestID]
	if !ok || r.Status != models.ApprovalPending {
		return sql.ErrNoRows
	}
	r.Approval = approval
	m.events[eventID].Approval = approval
	return nil
}

func newEventFixture() (*EventService, *mockEventRepo, *notifierRecorder) {
	repo := newMockEventRepo()
	files, _ := newTestFiles()
	notifier := &notifierRecorder{}
	svc := NewEventService(repo, newStubDepartments(), ApprovalDeps{
		Files:    files,
		Audit:    &auditRecorder{},
		Notifier: notifier,
		Metrics:  &approvalCounter{},
		Now:      fixedClock,
	})
	return svc, repo, notifier
}

func techFest() models.EventRequest {
	return models.EventRequest{
		Name:              "Tech Fest",
		Description:       "Annual technical festival",
		StartDate:         "2024-04-10T09:00:00Z",
		EndDate:           "2024-04-12",
		TargetYears:       []int64{2, 3},
		TargetDepartments: []string{"cse", "cse"},
	}
}

func TestEventPrincipalCreateIsAutoApproved(t *testing.T) {
	svc, repo, _ := newEventFixture()
	ctx := context.Background()
	principal := newActor("principal-a", models.RolePrincipal, "college-a", "")

	event, err := svc.Create(ctx, principal, techFest(), upload("poster.png", "png"), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, event.Status)
	assert.Equal(t, "principal-a", *event.ApprovedBy)
	assert.Equal(t, "college-a", event.CollegeID)
	assert.Equal(t, []string{"cse"}, []string(event.TargetDepartments))
	assert.NotNil(t, event.CircularPhoto)
	assert.Empty(t, repo.requests, "no companion request for principal events")

	_, err = svc.Approve(ctx, principal, event.ID, models.ApprovalDecisionRequest{Status: models.ApprovalApproved}, RequestMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))
}

func TestEventHODCreateNeedsPrincipalApproval(t *testing.T) {
	svc, repo, notifier := newEventFixture()
	ctx := context.Background()
	hod := newActor("hod-cse", models.RoleHOD, "college-a", "cse")
	principal := newActor("principal-a", models.RolePrincipal, "college-a", "")
	student := newActor("alice", models.RoleStudent, "college-a", "cse")

	event, err := svc.Create(ctx, hod, techFest(), nil, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, event.Status)
	require.Len(t, repo.requests, 1)

	_, err = svc.Get(ctx, student, event.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err), "students only see approved events")

	own, _, err := svc.ListRequests(ctx, hod, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)

	_, err = svc.ApproveRequest(ctx, hod, own[0].ID, models.ApprovalDecisionRequest{Status: models.ApprovalApproved}, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err), "hods cannot approve events")

	otherPrincipal := newActor("principal-b", models.RolePrincipal, "college-b", "")
	_, err = svc.Approve(ctx, otherPrincipal, event.ID, models.ApprovalDecisionRequest{Status: models.ApprovalApproved}, RequestMeta{})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	approved, err := svc.Approve(ctx, principal, event.ID, models.ApprovalDecisionRequest{Status: models.ApprovalApproved}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, approved.Status)
	assert.Equal(t, models.ApprovalApproved, repo.requests[own[0].ID].Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "hod-cse", notifier.sent[0].UserID)

	visible, err := svc.Get(ctx, student, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tech Fest", visible.Name)

	_, err = svc.ApproveRequest(ctx, principal, own[0].ID, models.ApprovalDecisionRequest{Status: models.ApprovalRejected, RejectionReason: "clash"}, RequestMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))
}

func TestEventCreateRules(t *testing.T) {
	svc, _, _ := newEventFixture()
	ctx := context.Background()
	hod := newActor("hod-cse", models.RoleHOD, "college-a", "cse")

	_, err := svc.Create(ctx, newActor("root", models.RoleSuperuser, "", ""), techFest(), nil, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))

	_, err = svc.Create(ctx, newActor("fac", models.RoleFaculty, "college-a", "cse"), techFest(), nil, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))

	foreign := techFest()
	foreign.TargetDepartments = []string{"ece"}
	_, err = svc.Create(ctx, hod, foreign, nil, RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	backwards := techFest()
	backwards.EndDate = "2024-04-01"
	_, err = svc.Create(ctx, hod, backwards, nil, RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = svc.Create(ctx, hod, techFest(), upload("circular.pdf", "%PDF"), RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err), "circulars must be images")
}

func TestEventManageByCreatorOrApprover(t *testing.T) {
	svc, repo, _ := newEventFixture()
	ctx := context.Background()
	hod := newActor("hod-cse", models.RoleHOD, "college-a", "cse")
	otherHOD := newActor("hod-mech", models.RoleHOD, "college-a", "mech")
	principal := newActor("principal-a", models.RolePrincipal, "college-a", "")

	event, err := svc.Create(ctx, hod, techFest(), nil, RequestMeta{})
	require.NoError(t, err)

	edit := techFest()
	edit.Name = "Tech Fest 2024"
	updated, err := svc.Update(ctx, hod, event.ID, edit, nil, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Tech Fest 2024", updated.Name)

	_, err = svc.Update(ctx, otherHOD, event.ID, edit, nil, RequestMeta{})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err), "event does not target mech")

	_, err = svc.Approve(ctx, principal, event.ID, models.ApprovalDecisionRequest{Status: models.ApprovalApproved}, RequestMeta{})
	require.NoError(t, err)

	edit.Name = "Tech Fest Reloaded"
	_, err = svc.Update(ctx, hod, event.ID, edit, nil, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err), "approved events are out of the creator's hands")
	assert.Equal(t, "Tech Fest 2024", repo.events[event.ID].Name)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(svc.Delete(ctx, hod, event.ID, RequestMeta{})))

	renamed, err := svc.Update(ctx, principal, event.ID, edit, nil, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Tech Fest Reloaded", renamed.Name)
	assert.Equal(t, models.ApprovalApproved, renamed.Status)

	require.NoError(t, svc.Delete(ctx, principal, event.ID, RequestMeta{}))
	assert.Empty(t, repo.events)
	assert.Empty(t, repo.requests)
}
