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
	"github.com/noah-isme/college-hub-api/pkg/database"
)

const studentSelect = `SELECT sp.id, sp.user_id, sp.student_id, sp.year_of_admission, sp.course, sp.branch, sp.department_id,
        sp.phone_number, sp.address, sp.date_of_birth, sp.created_at, sp.updated_at,
        u.email, u.username, u.first_name, u.last_name, sd.name AS department_name, sd.college_id, c.name AS college_name`

const studentFrom = "FROM student_profiles sp " + studentTenantJoin + " JOIN colleges c ON c.id = sd.college_id"

// StudentProfileRepository manages persistence for student profiles.
type StudentProfileRepository struct {
	db *sqlx.DB
}

// NewStudentProfileRepository constructs a StudentProfileRepository.
func NewStudentProfileRepository(db *sqlx.DB) *StudentProfileRepository {
	return &StudentProfileRepository{db: db}
}

// List returns student profiles visible under scope.
func (r *StudentProfileRepository) List(ctx context.Context, filter models.StudentFilter, scope policy.Scope) ([]models.StudentProfileDetail, int, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, nil)
	conditions := []string{clause}

	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("sp.department_id = $%d", len(args)))
	}
	if filter.YearOfAdmission > 0 {
		args = append(args, filter.YearOfAdmission)
		conditions = append(conditions, fmt.Sprintf("sp.year_of_admission = $%d", len(args)))
	}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"sp.student_id", "u.email", "u.first_name", "u.last_name"}, args)
		conditions = append(conditions, cond)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"student_id":        "sp.student_id",
		"year_of_admission": "sp.year_of_admission",
		"last_name":         "u.last_name",
		"created_at":        "sp.created_at",
	}, "sp.created_at")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf("%s %s%s ORDER BY %s LIMIT %d OFFSET %d", studentSelect, studentFrom, where, order, size, offset)
	var students []models.StudentProfileDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM student_profiles sp " + studentTenantJoin + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student profile visible under scope ordered by student id.
func (r *StudentProfileRepository) ListAll(ctx context.Context, scope policy.Scope) ([]models.StudentProfileDetail, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, nil)
	query := fmt.Sprintf("%s %s WHERE %s ORDER BY sp.student_id", studentSelect, studentFrom, clause)
	var students []models.StudentProfileDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a profile visible under scope.
func (r *StudentProfileRepository) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.StudentProfileDetail, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, []interface{}{id})
	query := fmt.Sprintf("%s %s WHERE sp.id = $1 AND %s", studentSelect, studentFrom, clause)
	var detail models.StudentProfileDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches the profile owned by a user.
func (r *StudentProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error) {
	query := fmt.Sprintf("%s %s WHERE sp.user_id = $1", studentSelect, studentFrom)
	var detail models.StudentProfileDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsStudentID reports whether studentID is taken within the department.
func (r *StudentProfileRepository) ExistsStudentID(ctx context.Context, departmentID, studentID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM student_profiles WHERE department_id = $1 AND student_id = $2"
	args := []interface{}{departmentID, studentID}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var one int
	if err := r.db.GetContext(ctx, &one, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student id: %w", err)
	}
	return true, nil
}

// Create inserts a profile for an existing student user and moves the user into the profile's department.
func (r *StudentProfileRepository) Create(ctx context.Context, profile *models.StudentProfile) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertStudentProfile(ctx, tx, profile); err != nil {
			return err
		}
		return syncStudentDepartment(ctx, tx, profile)
	})
}

// CreateWithUser inserts a student user and its profile atomically.
func (r *StudentProfileRepository) CreateWithUser(ctx context.Context, user *models.User, profile *models.StudentProfile) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		return insertStudentProfile(ctx, tx, profile)
	})
}

func insertStudentProfile(ctx context.Context, ext sqlx.ExtContext, profile *models.StudentProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const query = `INSERT INTO student_profiles (id, user_id, student_id, year_of_admission, course, branch, department_id, phone_number, address, date_of_birth, created_at, updated_at)
        VALUES (:id, :user_id, :student_id, :year_of_admission, :course, :branch, :department_id, :phone_number, :address, :date_of_birth, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, profile); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// Update writes profile fields and keeps the owning user's department in step.
func (r *StudentProfileRepository) Update(ctx context.Context, profile *models.StudentProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE student_profiles SET student_id = :student_id, year_of_admission = :year_of_admission, course = :course,
        branch = :branch, department_id = :department_id, phone_number = :phone_number, address = :address,
        date_of_birth = :date_of_birth, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, query, profile); err != nil {
			return fmt.Errorf("update student profile: %w", err)
		}
		return syncStudentDepartment(ctx, tx, profile)
	})
}

func syncStudentDepartment(ctx context.Context, tx *sqlx.Tx, profile *models.StudentProfile) error {
	if _, err := tx.ExecContext(ctx, `UPDATE users SET department_id = $2, updated_at = $3 WHERE id = $1`, profile.UserID, profile.DepartmentID, profile.UpdatedAt); err != nil {
		return fmt.Errorf("sync student department: %w", err)
	}
	return nil
}

// Delete removes a student profile together with its user account.
func (r *StudentProfileRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = (SELECT user_id FROM student_profiles WHERE id = $1)`
	if err := execAffected(ctx, r.db, query, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// CountByCollege returns the number of students in a college.
func (r *StudentProfileRepository) CountByCollege(ctx context.Context, collegeID string) (int, error) {
	var total int
	const query = "SELECT COUNT(*) FROM student_profiles sp " + studentTenantJoin + " WHERE sd.college_id = $1"
	if err := r.db.GetContext(ctx, &total, query, collegeID); err != nil {
		return 0, fmt.Errorf("count college students: %w", err)
	}
	return total, nil
}
