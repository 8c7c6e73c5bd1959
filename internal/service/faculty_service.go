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

type facultyRepository interface {
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.FacultyProfileDetail, int, error)
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.FacultyProfileDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.FacultyProfileDetail, error)
	ExistsEmployeeID(ctx context.Context, departmentID, employeeID, excludeID string) (bool, error)
	Create(ctx context.Context, profile *models.FacultyProfile) error
	Update(ctx context.Context, profile *models.FacultyProfile) error
	Delete(ctx context.Context, id string) error
}

// FacultyService manages faculty profiles of faculty, hods and principals.
type FacultyService struct {
	repo        facultyRepository
	departments departmentLookup
	users       userFinder
	audit       auditLogger
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewFacultyService constructs the service.
func NewFacultyService(repo facultyRepository, departments departmentLookup, users userFinder, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *FacultyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FacultyService{repo: repo, departments: departments, users: users, audit: audit, validate: validate, logger: logger}
}

// List returns faculty profiles visible to the actor.
func (s *FacultyService) List(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.FacultyProfileDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourceFaculty))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	return items, paginate(filter, total), nil
}

// Get returns a faculty profile inside the actor's scope.
func (s *FacultyService) Get(ctx context.Context, actor *models.User, id string) (*models.FacultyProfileDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourceFaculty))
	if err != nil {
		return nil, lookupError(err, "faculty profile")
	}
	return profile, nil
}

// Me returns the actor's own faculty profile.
func (s *FacultyService) Me(ctx context.Context, actor *models.User) (*models.FacultyProfileDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, lookupError(err, "faculty profile")
	}
	return profile, nil
}

// Create adds a faculty profile. Without user_id (or with the actor's own id) the
// profile is the actor's; otherwise the actor needs faculty management rights on
// the department.
func (s *FacultyService) Create(ctx context.Context, actor *models.User, req models.FacultyProfileRequest, meta RequestMeta) (*models.FacultyProfileDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dept, target, err := departmentTarget(ctx, s.departments, req.DepartmentID)
	if err != nil {
		return nil, err
	}

	owner := actor
	if userID := strings.TrimSpace(req.UserID); userID != "" && userID != actor.ID {
		if !policy.Authorize(actor, policy.ActionManageFaculty, target) {
			return nil, forbidden("not allowed to manage faculty in this department")
		}
		owner, err = s.users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "invalid user ID")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
		}
	}
	if !owner.IsFaculty {
		return nil, appErrors.Clone(appErrors.ErrValidation, "faculty profiles are for faculty, hod and principal accounts")
	}
	if dept.CollegeID != owner.College() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department does not belong to the user's college")
	}
	if _, err := s.repo.FindByUserID(ctx, owner.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "faculty profile already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
	}

	profile := &models.FacultyProfile{UserID: owner.ID}
	applyFacultyRequest(profile, req)
	if err := s.ensureEmployeeIDFree(ctx, profile, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, saveError(err, "create faculty profile")
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordCreate, "faculty_profile", profile.ID,
		map[string]interface{}{"employee_id": profile.EmployeeID, "user_id": owner.ID}, meta)
	return s.reload(ctx, profile.ID)
}

// Update edits a faculty profile. The owner may edit their own profile.
func (s *FacultyService) Update(ctx context.Context, actor *models.User, id string, req models.FacultyProfileRequest, meta RequestMeta) (*models.FacultyProfileDetail, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	owner := current.UserID == actor.ID
	if !owner && !policy.Authorize(actor, policy.ActionManageFaculty, &policy.Target{CollegeID: current.CollegeID, DepartmentID: current.DepartmentID}) {
		return nil, forbidden("not allowed to edit this faculty profile")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dept, target, err := departmentTarget(ctx, s.departments, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if dept.CollegeID != current.CollegeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department does not belong to the user's college")
	}
	if !owner && !policy.Authorize(actor, policy.ActionManageFaculty, target) {
		return nil, forbidden("not allowed to move faculty into this department")
	}
	profile := current.FacultyProfile
	applyFacultyRequest(&profile, req)
	if err := s.ensureEmployeeIDFree(ctx, &profile, profile.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &profile); err != nil {
		return nil, saveError(err, "update faculty profile")
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordUpdate, "faculty_profile", profile.ID,
		map[string]interface{}{"employee_id": profile.EmployeeID, "department_id": profile.DepartmentID}, meta)
	return s.reload(ctx, id)
}

// Delete removes a faculty profile. The account itself stays.
func (s *FacultyService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !policy.Authorize(actor, policy.ActionManageFaculty, &policy.Target{CollegeID: current.CollegeID, DepartmentID: current.DepartmentID}) {
		return forbidden("not allowed to delete this faculty profile")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "faculty profile")
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionRecordDelete, "faculty_profile", id,
		map[string]interface{}{"employee_id": current.EmployeeID}, meta)
	return nil
}

func (s *FacultyService) reload(ctx context.Context, id string) (*models.FacultyProfileDetail, error) {
	profile, err := s.repo.FindByID(ctx, id, policy.Scope{Kind: policy.ScopeAll})
	if err != nil {
		return nil, lookupError(err, "faculty profile")
	}
	return profile, nil
}

func (s *FacultyService) ensureEmployeeIDFree(ctx context.Context, profile *models.FacultyProfile, excludeID string) error {
	exists, err := s.repo.ExistsEmployeeID(ctx, profile.DepartmentID, profile.EmployeeID, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "employee ID "+profile.EmployeeID+" already exists in this department")
	}
	return nil
}

func applyFacultyRequest(profile *models.FacultyProfile, req models.FacultyProfileRequest) {
	profile.EmployeeID = strings.TrimSpace(req.EmployeeID)
	profile.DepartmentID = req.DepartmentID
	profile.Designation = strings.TrimSpace(req.Designation)
	profile.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	profile.OfficeLocation = strings.TrimSpace(req.OfficeLocation)
}
