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

const departmentSelect = `SELECT d.id, d.name, d.code, d.college_id, d.hod_id, d.created_at, d.updated_at,
        c.name AS college_name, NULLIF(TRIM(h.first_name || ' ' || h.last_name), '') AS hod_name,
        (SELECT COUNT(*) FROM student_profiles sp WHERE sp.department_id = d.id) AS students_count,
        (SELECT COUNT(*) FROM faculty_profiles fp WHERE fp.department_id = d.id) AS faculty_count`

const departmentFrom = `FROM departments d JOIN colleges c ON c.id = d.college_id LEFT JOIN users h ON h.id = d.hod_id`

// DepartmentRepository manages persistence for departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs a DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns departments visible under scope.
func (r *DepartmentRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.DepartmentDetail, int, error) {
	clause, args := scopePredicate(scope, departmentScopeColumns, nil)
	conditions := []string{clause}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"d.name", "d.code"}, args)
		conditions = append(conditions, cond)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "d.name",
		"code":       "d.code",
		"created_at": "d.created_at",
	}, "d.name")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf("%s %s%s ORDER BY %s LIMIT %d OFFSET %d", departmentSelect, departmentFrom, where, order, size, offset)
	var departments []models.DepartmentDetail
	if err := r.db.SelectContext(ctx, &departments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM departments d"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}
	return departments, total, nil
}

// FindByID fetches a department visible under scope.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.DepartmentDetail, error) {
	clause, args := scopePredicate(scope, departmentScopeColumns, []interface{}{id})
	query := fmt.Sprintf("%s %s WHERE d.id = $1 AND %s", departmentSelect, departmentFrom, clause)
	var department models.DepartmentDetail
	if err := r.db.GetContext(ctx, &department, query, args...); err != nil {
		return nil, err
	}
	return &department, nil
}

// Get fetches a department by id without scoping; used to resolve tenant targets.
func (r *DepartmentRepository) Get(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, name, code, college_id, hod_id, created_at, updated_at FROM departments WHERE id = $1`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, id); err != nil {
		return nil, err
	}
	return &department, nil
}

// FindByCode fetches a department of a college by code.
func (r *DepartmentRepository) FindByCode(ctx context.Context, collegeID, code string) (*models.Department, error) {
	const query = `SELECT id, name, code, college_id, hod_id, created_at, updated_at FROM departments WHERE college_id = $1 AND code = $2`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, collegeID, code); err != nil {
		return nil, err
	}
	return &department, nil
}

// ExistsByCode reports whether code is taken within the college.
func (r *DepartmentRepository) ExistsByCode(ctx context.Context, collegeID, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM departments WHERE college_id = $1 AND code = $2"
	args := []interface{}{collegeID, code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check department code: %w", err)
	}
	return true, nil
}

// HeadedBy reports whether userID is the hod of a department other than excludeID.
func (r *DepartmentRepository) HeadedBy(ctx context.Context, userID, excludeID string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, "SELECT 1 FROM departments WHERE hod_id = $1 AND id <> $2 LIMIT 1", userID, excludeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check department hod: %w", err)
	}
	return true, nil
}

// Create inserts a new department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now
	const query = `INSERT INTO departments (id, name, code, college_id, hod_id, created_at, updated_at)
        VALUES (:id, :name, :code, :college_id, :hod_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update modifies an existing department.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, code = :code, hod_id = :hod_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// Delete removes a department.
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	if err := execAffected(ctx, r.db, `DELETE FROM departments WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}
