package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
)

const permissionSelect = `SELECT pr.id, pr.student_profile_id, pr.request_type, pr.title, pr.description, pr.start_date, pr.end_date,
        pr.supporting_document, pr.status, pr.approved_by, pr.approved_at, pr.rejection_reason, pr.created_at, pr.updated_at,
        sp.student_id, sp.user_id AS student_user_id, TRIM(u.first_name || ' ' || u.last_name) AS student_name,
        sp.department_id, sd.college_id`

const permissionFrom = "FROM permission_requests pr JOIN student_profiles sp ON sp.id = pr.student_profile_id " + studentTenantJoin

// PermissionRequestRepository manages persistence for permission requests.
type PermissionRequestRepository struct {
	db *sqlx.DB
}

// NewPermissionRequestRepository constructs a PermissionRequestRepository.
func NewPermissionRequestRepository(db *sqlx.DB) *PermissionRequestRepository {
	return &PermissionRequestRepository{db: db}
}

// List returns permission requests visible under scope.
func (r *PermissionRequestRepository) List(ctx context.Context, filter models.PermissionRequestFilter, scope policy.Scope) ([]models.PermissionRequestDetail, int, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, nil)
	conditions := []string{clause}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("pr.status = $%d", len(args)))
	}
	if filter.RequestType != "" {
		args = append(args, filter.RequestType)
		conditions = append(conditions, fmt.Sprintf("pr.request_type = $%d", len(args)))
	}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"pr.title", "sp.student_id"}, args)
		conditions = append(conditions, cond)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"start_date": "pr.start_date",
		"status":     "pr.status",
		"created_at": "pr.created_at",
	}, "pr.created_at")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf("%s %s%s ORDER BY %s LIMIT %d OFFSET %d", permissionSelect, permissionFrom, where, order, size, offset)
	var requests []models.PermissionRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list permission requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+permissionFrom+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count permission requests: %w", err)
	}
	return requests, total, nil
}

// FindByID fetches a permission request visible under scope.
func (r *PermissionRequestRepository) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.PermissionRequestDetail, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, []interface{}{id})
	query := fmt.Sprintf("%s %s WHERE pr.id = $1 AND %s", permissionSelect, permissionFrom, clause)
	var detail models.PermissionRequestDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Recent returns the newest permission requests visible under scope.
func (r *PermissionRequestRepository) Recent(ctx context.Context, scope policy.Scope, limit int) ([]models.PermissionRequestDetail, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, nil)
	query := fmt.Sprintf("%s %s WHERE %s ORDER BY pr.created_at DESC LIMIT %d", permissionSelect, permissionFrom, clause, limit)
	var requests []models.PermissionRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("recent permission requests: %w", err)
	}
	return requests, nil
}

// CountPending returns pending permission requests visible under scope.
func (r *PermissionRequestRepository) CountPending(ctx context.Context, scope policy.Scope) (int, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, []interface{}{models.ApprovalPending})
	query := "SELECT COUNT(*) " + permissionFrom + " WHERE pr.status = $1 AND " + clause
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count pending permission requests: %w", err)
	}
	return total, nil
}

// Create inserts a permission request.
func (r *PermissionRequestRepository) Create(ctx context.Context, request *models.PermissionRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO permission_requests (id, student_profile_id, request_type, title, description, start_date, end_date,
        supporting_document, status, approved_by, approved_at, rejection_reason, created_at, updated_at)
        VALUES (:id, :student_profile_id, :request_type, :title, :description, :start_date, :end_date,
        :supporting_document, :status, :approved_by, :approved_at, :rejection_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create permission request: %w", err)
	}
	return nil
}

// Resolve records an approval decision while the request is pending.
func (r *PermissionRequestRepository) Resolve(ctx context.Context, id string, approval models.Approval) error {
	return resolveApproval(ctx, r.db, "permission_requests", id, approval)
}

// Delete removes a permission request.
func (r *PermissionRequestRepository) Delete(ctx context.Context, id string) error {
	if err := execAffected(ctx, r.db, `DELETE FROM permission_requests WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete permission request: %w", err)
	}
	return nil
}
