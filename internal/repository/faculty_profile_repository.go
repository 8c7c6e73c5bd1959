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

const facultySelect = `SELECT fp.id, fp.user_id, fp.employee_id, fp.department_id, fp.designation, fp.phone_number, fp.office_location,
        fp.created_at, fp.updated_at, u.email, u.first_name, u.last_name, u.role, fd.name AS department_name, fd.college_id`

const facultyFrom = "FROM faculty_profiles fp " + facultyTenantJoin

// FacultyProfileRepository manages persistence for faculty profiles.
type FacultyProfileRepository struct {
	db *sqlx.DB
}

// NewFacultyProfileRepository constructs a FacultyProfileRepository.
func NewFacultyProfileRepository(db *sqlx.DB) *FacultyProfileRepository {
	return &FacultyProfileRepository{db: db}
}

// List returns faculty profiles visible under scope.
func (r *FacultyProfileRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.FacultyProfileDetail, int, error) {
	clause, args := scopePredicate(scope, facultyScopeColumns, nil)
	conditions := []string{clause}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"fp.employee_id", "u.email", "u.first_name", "u.last_name"}, args)
		conditions = append(conditions, cond)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"employee_id": "fp.employee_id",
		"designation": "fp.designation",
		"last_name":   "u.last_name",
		"created_at":  "fp.created_at",
	}, "fp.created_at")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf("%s %s%s ORDER BY %s LIMIT %d OFFSET %d", facultySelect, facultyFrom, where, order, size, offset)
	var faculty []models.FacultyProfileDetail
	if err := r.db.SelectContext(ctx, &faculty, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM faculty_profiles fp "+facultyTenantJoin+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}
	return faculty, total, nil
}

// FindByID fetches a faculty profile visible under scope.
func (r *FacultyProfileRepository) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.FacultyProfileDetail, error) {
	clause, args := scopePredicate(scope, facultyScopeColumns, []interface{}{id})
	query := fmt.Sprintf("%s %s WHERE fp.id = $1 AND %s", facultySelect, facultyFrom, clause)
	var detail models.FacultyProfileDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the profile owned by a user.
func (r *FacultyProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.FacultyProfileDetail, error) {
	query := fmt.Sprintf("%s %s WHERE fp.user_id = $1", facultySelect, facultyFrom)
	var detail models.FacultyProfileDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsEmployeeID reports whether employeeID is taken within the department.
func (r *FacultyProfileRepository) ExistsEmployeeID(ctx context.Context, departmentID, employeeID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM faculty_profiles WHERE department_id = $1 AND employee_id = $2"
	args := []interface{}{departmentID, employeeID}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check employee id: %w", err)
	}
	return true, nil
}

// Create inserts a faculty profile.
func (r *FacultyProfileRepository) Create(ctx context.Context, profile *models.FacultyProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const query = `INSERT INTO faculty_profiles (id, user_id, employee_id, department_id, designation, phone_number, office_location, created_at, updated_at)
        VALUES (:id, :user_id, :employee_id, :department_id, :designation, :phone_number, :office_location, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create faculty profile: %w", err)
	}
	return nil
}

// Update modifies a faculty profile.
func (r *FacultyProfileRepository) Update(ctx context.Context, profile *models.FacultyProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculty_profiles SET employee_id = :employee_id, department_id = :department_id, designation = :designation,
        phone_number = :phone_number, office_location = :office_location, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update faculty profile: %w", err)
	}
	return nil
}

// Delete removes a faculty profile; the user account is kept.
func (r *FacultyProfileRepository) Delete(ctx context.Context, id string) error {
	if err := execAffected(ctx, r.db, `DELETE FROM faculty_profiles WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete faculty profile: %w", err)
	}
	return nil
}
