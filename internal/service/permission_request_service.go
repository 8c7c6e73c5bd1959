package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	"github.com/noah-isme/college-hub-api/internal/workflow"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type permissionRequestRepository interface {
	List(ctx context.Context, filter models.PermissionRequestFilter, scope policy.Scope) ([]models.PermissionRequestDetail, int, error)
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.PermissionRequestDetail, error)
	Create(ctx context.Context, request *models.PermissionRequest) error
	Resolve(ctx context.Context, id string, approval models.Approval) error
	Delete(ctx context.Context, id string) error
}

// PermissionRequestService runs leave and on-duty requests.
type PermissionRequestService struct {
	repo     permissionRequestRepository
	students studentProfileLookup
	deps     ApprovalDeps
}

// NewPermissionRequestService constructs the service.
func NewPermissionRequestService(repo permissionRequestRepository, students studentProfileLookup, deps ApprovalDeps) *PermissionRequestService {
	return &PermissionRequestService{repo: repo, students: students, deps: deps.withDefaults()}
}

// List returns permission requests visible to the actor.
func (s *PermissionRequestService) List(ctx context.Context, actor *models.User, filter models.PermissionRequestFilter) ([]models.PermissionRequestDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourcePermissionRequests))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list permission requests")
	}
	return items, paginate(filter.ListFilter, total), nil
}

// Get returns a permission request inside the actor's scope.
func (s *PermissionRequestService) Get(ctx context.Context, actor *models.User, id string) (*models.PermissionRequestDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourcePermissionRequests))
	if err != nil {
		return nil, lookupError(err, "permission request")
	}
	return item, nil
}

// Create files a pending request for the acting student.
func (s *PermissionRequestService) Create(ctx context.Context, actor *models.User, req models.PermissionRequestPayload, document *FileUpload, meta RequestMeta) (*models.PermissionRequestDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !policy.Authorize(actor, policy.ActionRequestPermission, nil) || actor.Role != models.RoleStudent {
		return nil, forbidden("only students can request permission")
	}
	profile, err := s.students.FindByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, forbidden("create your student profile before requesting permission")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	if err := s.deps.Validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, err := parseDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate, "end_date")
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	request := &models.PermissionRequest{
		StudentProfileID: profile.ID,
		RequestType:      req.RequestType,
		Title:            strings.TrimSpace(req.Title),
		Description:      strings.TrimSpace(req.Description),
		StartDate:        start,
		EndDate:          end,
		Approval:         workflow.Pending(),
	}
	if request.SupportingDocument, err = storeUpload(s.deps.Files, FileDocument, document); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, request); err != nil {
		discardUpload(s.deps.Files, request.SupportingDocument)
		return nil, saveError(err, "create permission request")
	}
	s.deps.hooks().changed(ctx, profile.CollegeID)
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionApprovalCreate, "permission_request", request.ID,
		map[string]interface{}{"request_type": request.RequestType, "title": request.Title}, meta)
	return s.reload(ctx, request.ID)
}

// Delete withdraws a request. Owners may withdraw while pending; approvers at any time.
func (s *PermissionRequestService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	owner := current.StudentUserID == actor.ID && current.Status == models.ApprovalPending
	if !owner && !policy.CanApprove(actor, models.CategoryPermissionRequest, permissionTarget(current)) {
		return forbidden("not allowed to delete this permission request")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "permission request")
	}
	discardUpload(s.deps.Files, current.SupportingDocument)
	s.deps.hooks().changed(ctx, current.CollegeID)
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionRecordDelete, "permission_request", id,
		map[string]interface{}{"title": current.Title, "status": current.Status}, meta)
	return nil
}

// Approve resolves a pending permission request.
func (s *PermissionRequestService) Approve(ctx context.Context, actor *models.User, id string, decision models.ApprovalDecisionRequest, meta RequestMeta) (*models.PermissionRequestDetail, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanApprove(actor, models.CategoryPermissionRequest, permissionTarget(current)) {
		return nil, forbidden("not allowed to approve this permission request")
	}
	if err := s.deps.Validate.Struct(decision); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be approved or rejected")
	}
	next, err := workflow.Resolve(current.Approval, decision, actor.ID, s.deps.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Resolve(ctx, id, next); err != nil {
		return nil, resolveError(err, "permission request")
	}
	writeAudit(ctx, s.deps.Audit, s.deps.Logger, actor, models.AuditActionApprovalReview, "permission_request", id,
		map[string]interface{}{"status": next.Status, "rejection_reason": next.RejectionReason}, meta)
	s.deps.hooks().decided(ctx, models.CategoryPermissionRequest, next, current.CollegeID, current.StudentUserID,
		"Your permission request \""+current.Title+"\"")
	return s.reload(ctx, id)
}

// DocumentLink returns a signed download link for the supporting document.
func (s *PermissionRequestService) DocumentLink(ctx context.Context, actor *models.User, id string) (*FileLink, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.deps.Files == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage unavailable")
	}
	return s.deps.Files.Link(id, current.SupportingDocument)
}

func (s *PermissionRequestService) reload(ctx context.Context, id string) (*models.PermissionRequestDetail, error) {
	item, err := s.repo.FindByID(ctx, id, policy.Scope{Kind: policy.ScopeAll})
	if err != nil {
		return nil, lookupError(err, "permission request")
	}
	return item, nil
}

func permissionTarget(r *models.PermissionRequestDetail) *policy.Target {
	return &policy.Target{CollegeID: r.CollegeID, DepartmentID: r.DepartmentID}
}
