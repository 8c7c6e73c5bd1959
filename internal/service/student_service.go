package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter, scope policy.Scope) ([]models.StudentProfileDetail, int, error)
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.StudentProfileDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error)
	ExistsStudentID(ctx context.Context, departmentID, studentID, excludeID string) (bool, error)
	Create(ctx context.Context, profile *models.StudentProfile) error
	CreateWithUser(ctx context.Context, user *models.User, profile *models.StudentProfile) error
	Update(ctx context.Context, profile *models.StudentProfile) error
	Delete(ctx context.Context, id string) error
}

// StudentService manages student profiles and the student accounts staff create.
type StudentService struct {
	repo        studentRepository
	departments departmentLookup
	identities  identityChecker
	audit       auditLogger
	cache       dashboardInvalidator
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(repo studentRepository, departments departmentLookup, identities identityChecker, audit auditLogger, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, departments: departments, identities: identities, audit: audit, cache: cache, validate: validate, logger: logger}
}

// List returns student profiles visible to the actor.
func (s *StudentService) List(ctx context.Context, actor *models.User, filter models.StudentFilter) ([]models.StudentProfileDetail, *models.Pagination, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourceStudents))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return items, paginate(filter.ListFilter, total), nil
}

// Get returns a student profile inside the actor's scope.
func (s *StudentService) Get(ctx context.Context, actor *models.User, id string) (*models.StudentProfileDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourceStudents))
	if err != nil {
		return nil, lookupError(err, "student profile")
	}
	return profile, nil
}

// Me returns the actor's own student profile.
func (s *StudentService) Me(ctx context.Context, actor *models.User) (*models.StudentProfileDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, lookupError(err, "student profile")
	}
	return profile, nil
}

// CreateOwn lets a registered student create their profile. The department must
// belong to the student's college.
func (s *StudentService) CreateOwn(ctx context.Context, actor *models.User, req models.StudentProfileRequest, meta RequestMeta) (*models.StudentProfileDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent {
		return nil, forbidden("only students can create their own profile")
	}
	if _, err := s.repo.FindByUserID(ctx, actor.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student profile already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dept, _, err := departmentTarget(ctx, s.departments, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if dept.CollegeID != actor.College() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department does not belong to your college")
	}
	profile := &models.StudentProfile{UserID: actor.ID}
	if err := applyStudentRequest(profile, req); err != nil {
		return nil, err
	}
	if err := s.ensureStudentIDFree(ctx, profile.DepartmentID, profile.StudentID, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, saveError(err, "create student profile")
	}
	s.changed(ctx, actor, models.AuditActionRecordCreate, profile, dept.CollegeID, meta)
	return s.reload(ctx, profile.ID)
}

// Create adds a student account together with its profile in one transaction.
// Without a password the account gets an unusable hash.
func (s *StudentService) Create(ctx context.Context, actor *models.User, req models.CreateStudentRequest, meta RequestMeta) (*models.StudentProfileDetail, error) {
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
	if !policy.Authorize(actor, policy.ActionAddStudent, target) {
		return nil, forbidden("not allowed to add students to this department")
	}
	if err := checkIdentityFree(ctx, s.identities, req.Email, req.Username); err != nil {
		return nil, err
	}
	profile := &models.StudentProfile{}
	if err := applyStudentRequest(profile, req.StudentProfileRequest); err != nil {
		return nil, err
	}
	if err := s.ensureStudentIDFree(ctx, profile.DepartmentID, profile.StudentID, ""); err != nil {
		return nil, err
	}
	hash, err := passwordHash(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         models.RoleStudent,
		CollegeID:    &dept.CollegeID,
		DepartmentID: &dept.ID,
		Active:       true,
	}
	if err := s.repo.CreateWithUser(ctx, user, profile); err != nil {
		return nil, saveError(err, "create student")
	}
	s.changed(ctx, actor, models.AuditActionRecordCreate, profile, dept.CollegeID, meta)
	return s.reload(ctx, profile.ID)
}

// Update edits a profile. Staff need edit rights on both the current and the new
// department; a student may edit their own profile within their college.
func (s *StudentService) Update(ctx context.Context, actor *models.User, id string, req models.StudentProfileRequest, meta RequestMeta) (*models.StudentProfileDetail, error) {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	owner := current.UserID == actor.ID
	currentTarget := &policy.Target{CollegeID: current.CollegeID, DepartmentID: current.DepartmentID}
	if !owner && !policy.Authorize(actor, policy.ActionEditStudent, currentTarget) {
		return nil, forbidden("not allowed to edit this student")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	dept, target, err := departmentTarget(ctx, s.departments, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if dept.CollegeID != current.CollegeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department does not belong to the student's college")
	}
	if !owner && !policy.Authorize(actor, policy.ActionEditStudent, target) {
		return nil, forbidden("not allowed to move students into this department")
	}
	profile := current.StudentProfile
	if err := applyStudentRequest(&profile, req); err != nil {
		return nil, err
	}
	if err := s.ensureStudentIDFree(ctx, profile.DepartmentID, profile.StudentID, profile.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &profile); err != nil {
		return nil, saveError(err, "update student profile")
	}
	s.changed(ctx, actor, models.AuditActionRecordUpdate, &profile, current.CollegeID, meta)
	return s.reload(ctx, id)
}

// Delete removes a student and the student's account.
func (s *StudentService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !policy.Authorize(actor, policy.ActionDeleteStudent, &policy.Target{CollegeID: current.CollegeID, DepartmentID: current.DepartmentID}) {
		return forbidden("not allowed to delete this student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "student profile")
	}
	s.changed(ctx, actor, models.AuditActionRecordDelete, &current.StudentProfile, current.CollegeID, meta)
	return nil
}

func (s *StudentService) reload(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	profile, err := s.repo.FindByID(ctx, id, policy.Scope{Kind: policy.ScopeAll})
	if err != nil {
		return nil, lookupError(err, "student profile")
	}
	return profile, nil
}

func (s *StudentService) ensureStudentIDFree(ctx context.Context, departmentID, studentID, excludeID string) error {
	exists, err := s.repo.ExistsStudentID(ctx, departmentID, studentID, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "student ID "+studentID+" already exists in this department")
	}
	return nil
}

func (s *StudentService) changed(ctx context.Context, actor *models.User, action string, profile *models.StudentProfile, collegeID string, meta RequestMeta) {
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx, collegeID)
	}
	writeAudit(ctx, s.audit, s.logger, actor, action, "student_profile", profile.ID,
		map[string]interface{}{"student_id": profile.StudentID, "department_id": profile.DepartmentID}, meta)
}

func applyStudentRequest(profile *models.StudentProfile, req models.StudentProfileRequest) error {
	dob, err := optionalDate(req.DateOfBirth, "date_of_birth")
	if err != nil {
		return err
	}
	profile.StudentID = strings.TrimSpace(req.StudentID)
	profile.YearOfAdmission = req.YearOfAdmission
	profile.Course = strings.TrimSpace(req.Course)
	profile.Branch = strings.TrimSpace(req.Branch)
	profile.DepartmentID = req.DepartmentID
	profile.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	profile.Address = req.Address
	profile.DateOfBirth = dob
	return nil
}

// passwordHash hashes password, or returns an unusable hash when it is empty.
func passwordHash(password string) (string, error) {
	if password == "" {
		return "!" + randomSuffix() + randomSuffix(), nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hash), nil
}
