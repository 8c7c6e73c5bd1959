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

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter, scope policy.Scope) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	DeleteNonSuperusers(ctx context.Context) (int64, error)
	ProfileDepartments(ctx context.Context, userID string) ([]string, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest provisions an account of any role from the admin surface.
type CreateUserRequest struct {
	Email        string          `json:"email" validate:"required,email"`
	Username     string          `json:"username" validate:"required,max=150"`
	FirstName    string          `json:"first_name" validate:"required"`
	LastName     string          `json:"last_name"`
	Password     string          `json:"password" validate:"required,min=8"`
	Role         models.UserRole `json:"role" validate:"required,oneof=student faculty hod principal superuser"`
	CollegeID    string          `json:"college_id"`
	DepartmentID string          `json:"department_id"`
}

// UpdateRoleRequest changes a user's role, tenant and active flag.
type UpdateRoleRequest struct {
	Role         models.UserRole `json:"role" validate:"required,oneof=student faculty hod principal superuser"`
	CollegeID    *string         `json:"college_id"`
	DepartmentID *string         `json:"department_id"`
	Active       *bool           `json:"active"`
}

// UserService is the superuser account management surface.
type UserService struct {
	repo      userRepository
	tenants   tenantLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, tenants tenantLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, tenants: tenants, cache: cache, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, actor *models.User, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, nil, err
	}
	users, total, err := s.repo.List(ctx, filter, policy.ScopeFor(actor, policy.ResourceUsers))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, paginate(models.ListFilter{Page: filter.Page, PageSize: filter.PageSize}, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	return user, nil
}

// Create provisions a new account, including principals and hods that cannot self-register.
func (s *UserService) Create(ctx context.Context, actor *models.User, req CreateUserRequest, meta RequestMeta) (*models.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if err := checkTenant(ctx, s.tenants, req.Role, req.CollegeID, req.DepartmentID); err != nil {
		return nil, err
	}
	if err := checkIdentityFree(ctx, s.repo, req.Email, req.Username); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(passwordHash),
		Role:         req.Role,
		CollegeID:    models.StringPtr(req.CollegeID),
		DepartmentID: models.StringPtr(req.DepartmentID),
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, saveError(err, "create user")
	}
	s.cache.InvalidateDashboard(ctx, user.College())
	writeAudit(ctx, s.repo, s.logger, actor, models.AuditActionUserCreate, "users", user.ID,
		map[string]interface{}{"email": user.Email, "role": user.Role}, meta)
	return user, nil
}

// UpdateRole changes the role of a user. Derived flags are recomputed and tenant
// requirements of the new role are enforced before the write.
func (s *UserService) UpdateRole(ctx context.Context, actor *models.User, id string, req UpdateRoleRequest, meta RequestMeta) (*models.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	if user.ID == actor.ID && req.Role != models.RoleSuperuser {
		return nil, appErrors.Clone(appErrors.ErrValidation, "superusers cannot demote themselves")
	}
	previous := map[string]interface{}{"role": user.Role, "college_id": user.CollegeID, "department_id": user.DepartmentID, "active": user.Active}
	oldCollege, oldDepartment := user.College(), user.Department()

	user.Role = req.Role
	if req.CollegeID != nil {
		user.CollegeID = models.StringPtr(strings.TrimSpace(*req.CollegeID))
	}
	if req.DepartmentID != nil {
		user.DepartmentID = models.StringPtr(strings.TrimSpace(*req.DepartmentID))
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := checkTenant(ctx, s.tenants, user.Role, user.College(), user.Department()); err != nil {
		return nil, err
	}
	if user.College() != oldCollege || user.Department() != oldDepartment {
		if err := s.ensureNoProfile(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, saveError(err, "update user")
	}
	s.cache.InvalidateDashboard(ctx, oldCollege)
	s.cache.InvalidateDashboard(ctx, user.College())
	writeAudit(ctx, s.repo, s.logger, actor, models.AuditActionRoleChange, "users", user.ID, map[string]interface{}{
		"before": previous,
		"after":  map[string]interface{}{"role": user.Role, "college_id": user.CollegeID, "department_id": user.DepartmentID, "active": user.Active},
	}, meta)
	return user, nil
}

// Profiles carry their own department, so moving their owner to another tenant
// would leave the profile visible to the old college only.
func (s *UserService) ensureNoProfile(ctx context.Context, userID string) error {
	departments, err := s.repo.ProfileDepartments(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profiles")
	}
	if len(departments) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "user owns a profile in department "+departments[0]+"; college and department cannot change")
	}
	return nil
}

// Delete removes an account. Profiles and owned records cascade.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string, meta RequestMeta) error {
	if err := requireSuperuser(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return appErrors.Clone(appErrors.ErrValidation, "superusers cannot delete themselves")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "user")
	}
	s.cache.InvalidateDashboard(ctx, user.College())
	writeAudit(ctx, s.repo, s.logger, actor, models.AuditActionUserDelete, "users", id,
		map[string]interface{}{"email": user.Email, "role": user.Role}, meta)
	return nil
}

// ClearNonSuperusers deletes every account that is not a superuser and returns how many went.
func (s *UserService) ClearNonSuperusers(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteNonSuperusers(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear users")
	}
	s.cache.InvalidateAllDashboards(ctx)
	s.logger.Info("cleared non-superuser accounts", zap.Int64("removed", removed))
	return removed, nil
}

func requireSuperuser(actor *models.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != models.RoleSuperuser {
		return forbidden("superuser access required")
	}
	return nil
}
