package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type identityChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type departmentLookup interface {
	Get(ctx context.Context, id string) (*models.Department, error)
}

// RequestMeta carries client details recorded in audit logs.
type RequestMeta struct {
	IP        string
	UserAgent string
}

const dateLayout = "2006-01-02"

// lookupError maps a repository lookup failure. Missing rows, including rows hidden
// by scope, become NotFound.
func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

// saveError maps a repository write failure, surfacing model validation as ValidationError.
func saveError(err error, action string) error {
	var fe *models.FieldError
	if errors.As(err, &fe) {
		return appErrors.Clone(appErrors.ErrValidation, fe.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+action)
}

func forbidden(message string) error {
	return appErrors.Clone(appErrors.ErrForbidden, message)
}

func requireActor(actor *models.User) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !actor.Active {
		return appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	return nil
}

func parseDate(value, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, field+" must be YYYY-MM-DD")
	}
	return parsed, nil
}

// parseDateTime accepts RFC3339 timestamps or plain dates.
func parseDateTime(value, field string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.UTC(), nil
	}
	return parseDate(value, field)
}

func optionalDate(value, field string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(value, field)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func paginate(filter models.ListFilter, total int) *models.Pagination {
	page, size, _ := filter.Normalize()
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func pendingFilter(filter models.ListFilter) models.ListFilter {
	filter.Status = models.ApprovalPending
	return filter
}

// departmentTarget resolves a department id into a policy target, reporting unknown ids as validation errors.
func departmentTarget(ctx context.Context, departments departmentLookup, id string) (*models.Department, *policy.Target, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "department_id is required")
	}
	dept, err := departments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid department ID")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return dept, policy.DepartmentTarget(dept), nil
}

func writeAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, actor *models.User, action, resource, resourceID string, values map[string]interface{}, meta RequestMeta) {
	if audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actor != nil {
		entry.UserID = &actor.ID
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

type notifier interface {
	Notify(ctx context.Context, userID, title, message string)
}

type dashboardInvalidator interface {
	InvalidateDashboard(ctx context.Context, collegeID string)
}

type approvalRecorder interface {
	RecordApproval(category models.ApprovalCategory, status models.ApprovalStatus)
}

// approvalHooks fans a committed decision out to notifications, the dashboard cache and metrics.
// Every collaborator is optional.
type approvalHooks struct {
	notify  notifier
	cache   dashboardInvalidator
	metrics approvalRecorder
}

func (h approvalHooks) decided(ctx context.Context, category models.ApprovalCategory, approval models.Approval, collegeID, recipientID, subject string) {
	if h.metrics != nil {
		h.metrics.RecordApproval(category, approval.Status)
	}
	if h.cache != nil {
		h.cache.InvalidateDashboard(ctx, collegeID)
	}
	if h.notify != nil {
		message := subject + " was " + string(approval.Status) + "."
		if approval.Status == models.ApprovalRejected && approval.RejectionReason != nil {
			message += " Reason: " + *approval.RejectionReason
		}
		h.notify.Notify(ctx, recipientID, "Request "+string(approval.Status), message)
	}
}

func (h approvalHooks) changed(ctx context.Context, collegeID string) {
	if h.cache != nil {
		h.cache.InvalidateDashboard(ctx, collegeID)
	}
}

// checkTenant verifies that the college exists and that the department, when given
// or required by role, exists inside it.
func checkTenant(ctx context.Context, tenants tenantLookup, role models.UserRole, collegeID, departmentID string) error {
	caps := role.Capabilities()
	if collegeID == "" {
		if caps.RequiresCollege {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("college is required for %s role", role))
		}
		if departmentID != "" {
			return appErrors.Clone(appErrors.ErrValidation, "department requires a college")
		}
		return nil
	}
	if _, err := tenants.GetCollege(ctx, collegeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid college ID")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	if caps.RequiresDepartment && departmentID == "" {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("department is required for %s role", role))
	}
	if departmentID == "" {
		return nil
	}
	dept, err := tenants.GetDepartment(ctx, departmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid department ID")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	if dept.CollegeID != collegeID {
		return appErrors.Clone(appErrors.ErrValidation, "department does not belong to college")
	}
	return nil
}

func checkIdentityFree(ctx context.Context, repo identityChecker, email, username string) error {
	if exists, err := repo.ExistsByEmail(ctx, email); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	} else if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	if exists, err := repo.ExistsByUsername(ctx, username); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	} else if exists {
		return appErrors.Clone(appErrors.ErrConflict, "username already taken")
	}
	return nil
}

type fileKeeper interface {
	Store(kind FileKind, upload *FileUpload) (string, error)
	Link(ownerID string, path *string) (*FileLink, error)
	Remove(path *string)
}

// ApprovalDeps groups the collaborators shared by the approval-bearing services.
type ApprovalDeps struct {
	Files    fileKeeper
	Audit    auditLogger
	Notifier notifier
	Cache    dashboardInvalidator
	Metrics  approvalRecorder
	Validate *validator.Validate
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d ApprovalDeps) withDefaults() ApprovalDeps {
	if d.Validate == nil {
		d.Validate = validator.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d ApprovalDeps) hooks() approvalHooks {
	return approvalHooks{notify: d.Notifier, cache: d.Cache, metrics: d.Metrics}
}

// resolveError maps a lost compare-and-set to Conflict.
func resolveError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrConflict, what+" has already been resolved")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve "+what)
}

func storeUpload(files fileKeeper, kind FileKind, upload *FileUpload) (*string, error) {
	if upload == nil {
		return nil, nil
	}
	if files == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage unavailable")
	}
	path, err := files.Store(kind, upload)
	if err != nil {
		return nil, err
	}
	return &path, nil
}

func discardUpload(files fileKeeper, path *string) {
	if files != nil {
		files.Remove(path)
	}
}
