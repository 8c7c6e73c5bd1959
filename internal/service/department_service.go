package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.DepartmentDetail, int, error)
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.DepartmentDetail, error)
	ExistsByCode(ctx context.Context, collegeID, code, excludeID string) (bool, error)
	HeadedBy(ctx context.Context, userID, excludeID string) (bool, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, id string) error
}

type collegeGetter interface {
	Get(ctx context.Context, id string) (*models.College, error)
}

// DepartmentService manages departments inside colleges.
type DepartmentService struct {
	repo     departmentRepository
	colleges collegeGetter
	users    userFinder
	audit    auditLogger
	cache    dashboardInvalidator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewDepartmentService constructs the service.
func NewDepartmentService(repo departmentRepository, colleges collegeGetter, users userFinder, audit auditLogger, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, colleges: colleges, users: users, audit: audit, cache: cache, validate: validate, logger: logger}
}

// List returns departments visible to the actor.
func (s *DepartmentService) List(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.DepartmentDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourceDepartments))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return items, paginate(filter, total), nil
}

// Get returns a department inside the actor's scope.
func (s *DepartmentService) Get(ctx context.Context, actor *models.User, id string) (*models.DepartmentDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	dept, err := s.repo.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourceDepartments))
	if err != nil {
		return nil, lookupError(err, "department")
	}
	return dept, nil
}

// Create adds a department. Principals create inside their own college; the
// college_id of the request is honoured for superusers only.
func (s *DepartmentService) Create(ctx context.Context, actor *models.User, req models.DepartmentRequest, meta RequestMeta) (*models.Department, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	collegeID := actor.College()
	if actor.Role == models.RoleSuperuser {
		collegeID = strings.TrimSpace(req.CollegeID)
	}
	if collegeID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "college_id is required")
	}
	if !policy.Authorize(actor, policy.ActionManageDepartment, &policy.Target{CollegeID: collegeID}) || actor.Role == models.RoleHOD {
		return nil, forbidden("not allowed to create departments in this college")
	}
	if _, err := s.colleges.Get(ctx, collegeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid college ID")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	dept := &models.Department{
		Name:      strings.TrimSpace(req.Name),
		Code:      strings.ToUpper(strings.TrimSpace(req.Code)),
		CollegeID: collegeID,
	}
	if err := s.ensureUnique(ctx, collegeID, dept.Code, ""); err != nil {
		return nil, err
	}
	if req.HODID != nil && strings.TrimSpace(*req.HODID) != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hod_id can only be set once the department has members")
	}
	if err := s.repo.Create(ctx, dept); err != nil {
		return nil, saveError(err, "create department")
	}
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, collegeID)
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordCreate, "department", dept.ID, map[string]interface{}{"code": dept.Code, "college_id": collegeID}, meta)
	return dept, nil
}

// Update edits a department. Its college never changes.
func (s *DepartmentService) Update(ctx context.Context, actor *models.User, id string, req models.DepartmentRequest, meta RequestMeta) (*models.Department, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !policy.Authorize(actor, policy.ActionManageDepartment, policy.DepartmentTarget(&current.Department)) {
		return nil, forbidden("not allowed to edit this department")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dept := current.Department
	dept.Name = strings.TrimSpace(req.Name)
	dept.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureUnique(ctx, dept.CollegeID, dept.Code, dept.ID); err != nil {
		return nil, err
	}
	if req.HODID != nil {
		dept.HODID = nil
		if hodID := strings.TrimSpace(*req.HODID); hodID != "" {
			if err := s.checkHOD(ctx, hodID, &dept); err != nil {
				return nil, err
			}
			dept.HODID = &hodID
		}
	}
	if err := s.repo.Update(ctx, &dept); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, saveError(err, "update department")
	}
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, dept.CollegeID)
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordUpdate, "department", dept.ID, map[string]interface{}{"code": dept.Code, "hod_id": dept.HODID}, meta)
	return &dept, nil
}

// Delete removes a department. Hods cannot delete their own department.
func (s *DepartmentService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleHOD || !policy.Authorize(actor, policy.ActionManageDepartment, policy.DepartmentTarget(&current.Department)) {
		return forbidden("not allowed to delete this department")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "department")
	}
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, current.CollegeID)
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordDelete, "department", id, map[string]interface{}{"code": current.Code}, meta)
	return nil
}

func (s *DepartmentService) ensureUnique(ctx context.Context, collegeID, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, collegeID, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "department code already exists in this college")
	}
	return nil
}

// A department has at most one hod, who must be a member of it and head no
// other department.
func (s *DepartmentService) checkHOD(ctx context.Context, userID string, dept *models.Department) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid hod ID")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hod")
	}
	if user.Role != models.RoleHOD || user.College() != dept.CollegeID || user.Department() != dept.ID {
		return appErrors.Clone(appErrors.ErrValidation, "hod_id must reference an hod of this department")
	}
	taken, err := s.repo.HeadedBy(ctx, userID, dept.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check hod")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrConflict, "user already heads another department")
	}
	return nil
}
