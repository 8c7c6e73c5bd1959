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

const collegeColumns = `c.id, c.name, c.code, c.address, c.contact_email, c.contact_phone, c.principal_id, c.created_at, c.updated_at`

// CollegeRepository manages persistence for colleges.
type CollegeRepository struct {
	db *sqlx.DB
}

// NewCollegeRepository constructs a CollegeRepository.
func NewCollegeRepository(db *sqlx.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// List returns colleges visible under scope with department counts.
func (r *CollegeRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]models.CollegeDetail, int, error) {
	clause, args := scopePredicate(scope, collegeScopeColumns, nil)
	conditions := []string{clause}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"c.name", "c.code"}, args)
		conditions = append(conditions, cond)
	}
	base := "FROM colleges c WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "c.name",
		"code":       "c.code",
		"created_at": "c.created_at",
	}, "c.name")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf(`SELECT %s, (SELECT COUNT(*) FROM departments d WHERE d.college_id = c.id) AS departments_count
        %s ORDER BY %s LIMIT %d OFFSET %d`, collegeColumns, base, order, size, offset)
	var colleges []models.CollegeDetail
	if err := r.db.SelectContext(ctx, &colleges, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list colleges: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count colleges: %w", err)
	}
	return colleges, total, nil
}

// ListPublic returns every college ordered by name for the registration form.
func (r *CollegeRepository) ListPublic(ctx context.Context) ([]models.College, error) {
	query := `SELECT ` + collegeColumns + ` FROM colleges c ORDER BY c.name`
	var colleges []models.College
	if err := r.db.SelectContext(ctx, &colleges, query); err != nil {
		return nil, fmt.Errorf("list public colleges: %w", err)
	}
	return colleges, nil
}

// FindByID fetches a college visible under scope.
func (r *CollegeRepository) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.CollegeDetail, error) {
	clause, args := scopePredicate(scope, collegeScopeColumns, []interface{}{id})
	query := fmt.Sprintf(`SELECT %s, (SELECT COUNT(*) FROM departments d WHERE d.college_id = c.id) AS departments_count
        FROM colleges c WHERE c.id = $1 AND %s`, collegeColumns, clause)
	var college models.CollegeDetail
	if err := r.db.GetContext(ctx, &college, query, args...); err != nil {
		return nil, err
	}
	return &college, nil
}

// Get fetches a college by id without scoping.
func (r *CollegeRepository) Get(ctx context.Context, id string) (*models.College, error) {
	query := `SELECT ` + collegeColumns + ` FROM colleges c WHERE c.id = $1`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, id); err != nil {
		return nil, err
	}
	return &college, nil
}

// FindByCode fetches a college by its unique code.
func (r *CollegeRepository) FindByCode(ctx context.Context, code string) (*models.College, error) {
	query := `SELECT ` + collegeColumns + ` FROM colleges c WHERE c.code = $1`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, code); err != nil {
		return nil, err
	}
	return &college, nil
}

// ExistsByCodeOrName reports whether another college already uses code or name.
func (r *CollegeRepository) ExistsByCodeOrName(ctx context.Context, code, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM colleges WHERE (code = $1 OR LOWER(name) = LOWER($2))"
	args := []interface{}{code, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check college uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new college.
func (r *CollegeRepository) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	college.CreatedAt = now
	college.UpdatedAt = now
	const query = `INSERT INTO colleges (id, name, code, address, contact_email, contact_phone, principal_id, created_at, updated_at)
        VALUES (:id, :name, :code, :address, :contact_email, :contact_phone, :principal_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("create college: %w", err)
	}
	return nil
}

// Update modifies an existing college.
func (r *CollegeRepository) Update(ctx context.Context, college *models.College) error {
	college.UpdatedAt = time.Now().UTC()
	const query = `UPDATE colleges SET name = :name, code = :code, address = :address, contact_email = :contact_email,
        contact_phone = :contact_phone, principal_id = :principal_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("update college: %w", err)
	}
	return nil
}

// Delete removes a college.
func (r *CollegeRepository) Delete(ctx context.Context, id string) error {
	if err := execAffected(ctx, r.db, `DELETE FROM colleges WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete college: %w", err)
	}
	return nil
}
