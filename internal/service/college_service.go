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

type collegeRepository interface {
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.CollegeDetail, int, error)
	ListPublic(ctx context.Context) ([]models.College, error)
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.CollegeDetail, error)
	ExistsByCodeOrName(ctx context.Context, code, name, excludeID string) (bool, error)
	Create(ctx context.Context, college *models.College) error
	Update(ctx context.Context, college *models.College) error
	Delete(ctx context.Context, id string) error
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CollegeService manages the tenant roots.
type CollegeService struct {
	repo     collegeRepository
	users    userFinder
	audit    auditLogger
	cache    dashboardInvalidator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCollegeService constructs the service.
func NewCollegeService(repo collegeRepository, users userFinder, audit auditLogger, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *CollegeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollegeService{repo: repo, users: users, audit: audit, cache: cache, validate: validate, logger: logger}
}

// List returns colleges visible to the actor.
func (s *CollegeService) List(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.CollegeDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourceColleges))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	return items, paginate(filter, total), nil
}

// ListPublic returns the id, name and code of every college for the registration form.
func (s *CollegeService) ListPublic(ctx context.Context) ([]models.College, error) {
	items, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	return items, nil
}

// Get returns a college inside the actor's scope.
func (s *CollegeService) Get(ctx context.Context, actor *models.User, id string) (*models.CollegeDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	college, err := s.repo.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourceColleges))
	if err != nil {
		return nil, lookupError(err, "college")
	}
	return college, nil
}

// Create adds a college. Only superusers create tenants.
func (s *CollegeService) Create(ctx context.Context, actor *models.User, req models.CollegeRequest, meta RequestMeta) (*models.College, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSuperuser {
		return nil, forbidden("only superusers can create colleges")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.PrincipalID != nil && strings.TrimSpace(*req.PrincipalID) != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "principal_id can be assigned once the college exists")
	}
	if err := s.ensureUnique(ctx, req, ""); err != nil {
		return nil, err
	}
	college := &models.College{
		Name:         strings.TrimSpace(req.Name),
		Code:         strings.ToUpper(strings.TrimSpace(req.Code)),
		Address:      req.Address,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	}
	if err := s.repo.Create(ctx, college); err != nil {
		return nil, saveError(err, "create college")
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordCreate, "college", college.ID, map[string]interface{}{"code": college.Code, "name": college.Name}, meta)
	return college, nil
}

// Update edits a college. Principals may edit the details of their own college;
// assigning the principal is left to superusers.
func (s *CollegeService) Update(ctx context.Context, actor *models.User, id string, req models.CollegeRequest, meta RequestMeta) (*models.College, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !policy.Authorize(actor, policy.ActionManageCollege, &policy.Target{CollegeID: current.ID}) {
		return nil, forbidden("not allowed to edit this college")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.ensureUnique(ctx, req, id); err != nil {
		return nil, err
	}
	college := current.College
	college.Name = strings.TrimSpace(req.Name)
	college.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	college.Address = req.Address
	college.ContactEmail = req.ContactEmail
	college.ContactPhone = req.ContactPhone
	if req.PrincipalID != nil {
		if actor.Role != models.RoleSuperuser {
			return nil, forbidden("only superusers can assign the principal")
		}
		college.PrincipalID = nil
		if principalID := strings.TrimSpace(*req.PrincipalID); principalID != "" {
			if err := s.checkPrincipal(ctx, principalID, id); err != nil {
				return nil, err
			}
			college.PrincipalID = &principalID
		}
	}
	if err := s.repo.Update(ctx, &college); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, saveError(err, "update college")
	}
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, id)
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordUpdate, "college", id, map[string]interface{}{"code": college.Code, "name": college.Name}, meta)
	return &college, nil
}

// Delete removes a college and, through cascades, everything inside it.
func (s *CollegeService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if actor.Role != models.RoleSuperuser {
		return forbidden("only superusers can delete colleges")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "college")
	}
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, id)
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordDelete, "college", id, nil, meta)
	return nil
}

func (s *CollegeService) ensureUnique(ctx context.Context, req models.CollegeRequest, excludeID string) error {
	exists, err := s.repo.ExistsByCodeOrName(ctx, strings.ToUpper(strings.TrimSpace(req.Code)), strings.TrimSpace(req.Name), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check college uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "college with this code or name already exists")
	}
	return nil
}

func (s *CollegeService) checkPrincipal(ctx context.Context, userID, collegeID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid principal ID")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load principal")
	}
	if user.Role != models.RolePrincipal || user.College() != collegeID {
		return appErrors.Clone(appErrors.ErrValidation, "principal_id must reference a principal of this college")
	}
	return nil
}
