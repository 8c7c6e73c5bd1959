package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	"github.com/noah-isme/college-hub-api/internal/workflow"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.EventDetail, int, error)
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.EventDetail, error)
	Create(ctx context.Context, event *models.Event, request *models.EventPermissionRequest) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	ListRequests(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.EventRequestDetail, int, error)
	FindRequestByID(ctx context.Context, id string, scope policy.Scope) (*models.EventRequestDetail, error)
	FindRequestByEventID(ctx context.Context, eventID string) (*models.EventRequestDetail, error)
	ResolveRequest(ctx context.Context, requestID, eventID string, approval models.Approval) error
}

// EventService runs college events and the approval of hod-created events.
type EventService struct {
	repo        eventRepository
	departments departmentLookup
	deps        ApprovalDeps
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, departments departmentLookup, deps ApprovalDeps) *EventService {
	return &EventService{repo: repo, departments: departments, deps: deps.withDefaults()}
}

// List returns events visible to the actor.
func (s *EventService) List(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.EventDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourceEvents))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return items, paginate(filter, total), nil
}

// Get returns an event inside the actor's scope.
func (s *EventService) Get(ctx context.Context, actor *models.User, id string) (*models.EventDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	event, err := s.repo.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourceEvents))
	if err != nil {
		return nil, lookupError(err, "event")
	}
	return event, nil
}

// Create adds an event in the actor's college. A principal's event is approved on
// creation by the principal; an hod's event stays pending behind a companion
// permission request.
func (s *EventService) Create(ctx context.Context, actor *models.User, req models.EventRequest, circular *FileUpload, meta RequestMeta) (*models.EventDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.Role.Capabilities().CreatesEvents || !policy.Authorize(actor, policy.ActionCreateEvent, nil) {
		return nil, forbidden("only principals and hods can create events")
	}
	event := &models.Event{CreatedBy: actor.ID, CollegeID: actor.College()}
	if err := s.apply(ctx, event, req); err != nil {
		return nil, err
	}

	var companion *models.EventPermissionRequest
	if actor.Role == models.RolePrincipal {
		event.Approval = workflow.AutoApprove(actor.ID, s.deps.Now())
	} else {
		event.Approval = workflow.Pending()
		companion = &models.EventPermissionRequest{RequestedBy: actor.ID, Approval: workflow.Pending()}
	}

	var err error
	if event.CircularPhoto, err = storeUpload(s.deps.Files, FileCircular, circular); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, event, companion); err != nil {
		discardUpload(s.deps.Files, event.CircularPhoto)
		return nil, saveError(err, "create event")
	}
	if companion == nil && s.deps.Metrics != nil {
		s.deps.Metrics.RecordApproval(models.CategoryEvent, event.Status)
	}
	s.deps.hooks().changed(ctx, event.CollegeID)
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionApprovalCreate, "event", event.ID,
		map[string]interface{}{"name": event.Name, "status": event.Status}, meta)
	return s.reload(ctx, event.ID)
}

// Update edits an event. The college's event approvers may edit any of its
// events; other creators only while the event is pending.
func (s *EventService) Update(ctx context.Context, actor *models.User, id string, req models.EventRequest, circular *FileUpload, meta RequestMeta) (*models.EventDetail, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !s.canManage(actor, current) {
		return nil, forbidden("not allowed to edit this event")
	}
	event := current.Event
	if err := s.apply(ctx, &event, req); err != nil {
		return nil, err
	}
	previous := current.CircularPhoto
	if circular != nil {
		if event.CircularPhoto, err = storeUpload(s.deps.Files, FileCircular, circular); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, &event); err != nil {
		if circular != nil {
			discardUpload(s.deps.Files, event.CircularPhoto)
		}
		return nil, saveError(err, "update event")
	}
	if circular != nil {
		discardUpload(s.deps.Files, previous)
	}
	s.deps.hooks().changed(ctx, event.CollegeID)
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionRecordUpdate, "event", id,
		map[string]interface{}{"name": event.Name}, meta)
	return s.reload(ctx, id)
}

// Delete removes an event together with its companion request.
func (s *EventService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !s.canManage(actor, current) {
		return forbidden("not allowed to delete this event")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "event")
	}
	discardUpload(s.deps.Files, current.CircularPhoto)
	s.deps.hooks().changed(ctx, current.CollegeID)
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionRecordDelete, "event", id,
		map[string]interface{}{"name": current.Name}, meta)
	return nil
}

// Approve resolves a pending event through its companion request.
func (s *EventService) Approve(ctx context.Context, actor *models.User, id string, decision models.ApprovalDecisionRequest, meta RequestMeta) (*models.EventDetail, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanApprove(actor, models.CategoryEvent, &policy.Target{CollegeID: current.CollegeID}) {
		return nil, forbidden("not allowed to approve this event")
	}
	request, err := s.repo.FindRequestByEventID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event request")
		}
		if current.Status.Terminal() {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already "+string(current.Status))
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "event has no approval request")
	}
	if err := s.resolve(ctx, actor, request, decision, meta); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

// ListRequests returns event permission requests visible to the actor.
func (s *EventService) ListRequests(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.EventRequestDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.ListRequests(ctx, filter, policy.ScopeFor(actor, policy.ResourceEventRequests))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list event requests")
	}
	return items, paginate(filter, total), nil
}

// ApproveRequest resolves an event permission request; the event mirrors the decision.
func (s *EventService) ApproveRequest(ctx context.Context, actor *models.User, requestID string, decision models.ApprovalDecisionRequest, meta RequestMeta) (*models.EventRequestDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	request, err := s.repo.FindRequestByID(ctx, requestID, policy.ScopeFor(actor, policy.ResourceEventRequests))
	if err != nil {
		return nil, lookupError(err, "event request")
	}
	if err := s.resolve(ctx, actor, request, decision, meta); err != nil {
		return nil, err
	}
	resolved, err := s.repo.FindRequestByID(ctx, requestID, policy.Scope{Kind: policy.ScopeAll})
	if err != nil {
		return nil, lookupError(err, "event request")
	}
	return resolved, nil
}

// CircularLink returns a signed download link for the event circular.
func (s *EventService) CircularLink(ctx context.Context, actor *models.User, id string) (*FileLink, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.deps.Files == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage unavailable")
	}
	return s.deps.Files.Link(id, current.CircularPhoto)
}

func (s *EventService) resolve(ctx context.Context, actor *models.User, request *models.EventRequestDetail, decision models.ApprovalDecisionRequest, meta RequestMeta) error {
	if !policy.CanApprove(actor, models.CategoryEvent, &policy.Target{CollegeID: request.CollegeID}) {
		return forbidden("not allowed to approve this event")
	}
	if err := s.deps.Validate.Struct(decision); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "status must be approved or rejected")
	}
	next, err := workflow.Resolve(request.Approval, decision, actor.ID, s.deps.Now())
	if err != nil {
		return err
	}
	if err := s.repo.ResolveRequest(ctx, request.ID, request.EventID, next); err != nil {
		return resolveError(err, "event request")
	}
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionApprovalReview, "event_permission_request", request.ID,
		map[string]interface{}{"event_id": request.EventID, "status": next.Status, "rejection_reason": next.RejectionReason}, meta)
	s.deps.hooks().decided(ctx, models.CategoryEvent, next, request.CollegeID, request.RequestedBy,
		"Your event \""+request.EventName+"\"")
	return nil
}

// Creators who cannot approve events lose edit rights once their event is resolved.
func (s *EventService) canManage(actor *models.User, event *models.EventDetail) bool {
	if policy.CanApprove(actor, models.CategoryEvent, &policy.Target{CollegeID: event.CollegeID}) {
		return true
	}
	return event.CreatedBy == actor.ID && event.Status == models.ApprovalPending
}

// apply validates the payload into event. Target departments must belong to the event's college.
func (s *EventService) apply(ctx context.Context, event *models.Event, req models.EventRequest) error {
	if err := s.deps.Validate.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, err := parseDateTime(req.StartDate, "start_date")
	if err != nil {
		return err
	}
	end, err := parseDateTime(req.EndDate, "end_date")
	if err != nil {
		return err
	}
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	seen := make(map[string]bool, len(req.TargetDepartments))
	departments := make(pq.StringArray, 0, len(req.TargetDepartments))
	for _, id := range req.TargetDepartments {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		dept, err := s.departments.Get(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "invalid target department "+id)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		if dept.CollegeID != event.CollegeID {
			return appErrors.Clone(appErrors.ErrValidation, "target department "+id+" is not in this college")
		}
		seen[id] = true
		departments = append(departments, id)
	}

	event.Name = strings.TrimSpace(req.Name)
	event.Description = strings.TrimSpace(req.Description)
	event.StartDate = start
	event.EndDate = end
	event.TargetYears = pq.Int64Array(req.TargetYears)
	event.TargetDepartments = departments
	return nil
}

func (s *EventService) reload(ctx context.Context, id string) (*models.EventDetail, error) {
	event, err := s.repo.FindByID(ctx, id, policy.Scope{Kind: policy.ScopeAll})
	if err != nil {
		return nil, lookupError(err, "event")
	}
	return event, nil
}
