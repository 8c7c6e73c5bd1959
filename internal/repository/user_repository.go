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

const userColumns = `u.id, u.email, u.username, u.first_name, u.last_name, u.password_hash, u.role, u.college_id, u.department_id,
        u.is_student, u.is_faculty, u.is_hod, u.is_principal, u.active, u.last_login, u.created_at, u.updated_at`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE LOWER(u.email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindScoped returns a user by id only when it is visible under scope.
func (r *UserRepository) FindScoped(ctx context.Context, id string, scope policy.Scope) (*models.User, error) {
	clause, args := scopePredicate(scope, userScopeColumns, []interface{}{id})
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE u.id = $1 AND %s LIMIT 1`, userColumns, clause)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find scoped user: %w", err)
	}
	return &user, nil
}

// ExistsByEmail reports whether any user already holds email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`, email)
}

// ExistsByUsername reports whether any user already holds username.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username = $1 LIMIT 1`, username)
}

func (r *UserRepository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return true, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// List returns users visible under scope that match filter, with the total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter, scope policy.Scope) ([]models.User, int, error) {
	clause, args := scopePredicate(scope, userScopeColumns, nil)
	conditions := []string{clause}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if filter.CollegeID != "" {
		args = append(args, filter.CollegeID)
		conditions = append(conditions, fmt.Sprintf("u.college_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("u.department_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("u.active = $%d", len(args)))
	}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"u.email", "u.username", "u.first_name", "u.last_name"}, args)
		conditions = append(conditions, cond)
	}

	base := "FROM users u WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"email":      "u.email",
		"username":   "u.username",
		"last_name":  "u.last_name",
		"created_at": "u.created_at",
		"updated_at": "u.updated_at",
	}, "u.created_at")
	_, size, offset := models.ListFilter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", userColumns, base, order, size, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// ListByRole returns the active users of a college holding role, ordered by name.
func (r *UserRepository) ListByRole(ctx context.Context, collegeID string, role models.UserRole) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.college_id = $1 AND u.role = $2 AND u.active = TRUE ORDER BY u.first_name, u.last_name`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, collegeID, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// Create inserts a new user after recomputing role flags and validating tenancy.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return insertUser(ctx, r.db, user)
}

func insertUser(ctx context.Context, ext sqlx.ExtContext, user *models.User) error {
	user.ApplyRole()
	if err := user.Validate(); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, username, first_name, last_name, password_hash, role, college_id, department_id,
        is_student, is_faculty, is_hod, is_principal, active, created_at, updated_at)
        VALUES (:id, :email, :username, :first_name, :last_name, :password_hash, :role, :college_id, :department_id,
        :is_student, :is_faculty, :is_hod, :is_principal, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update writes the mutable fields of a user after recomputing role flags.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.ApplyRole()
	if err := user.Validate(); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET email = :email, username = :username, first_name = :first_name, last_name = :last_name,
        role = :role, college_id = :college_id, department_id = :department_id, is_student = :is_student, is_faculty = :is_faculty,
        is_hod = :is_hod, is_principal = :is_principal, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a user; dependent profiles and records cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := execAffected(ctx, r.db, `DELETE FROM users WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// DeleteNonSuperusers removes every user except superusers and returns the count.
func (r *UserRepository) DeleteNonSuperusers(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE role <> $1`, models.RoleSuperuser)
	if err != nil {
		return 0, fmt.Errorf("delete non-superusers: %w", err)
	}
	return res.RowsAffected()
}

// ProfileDepartments lists the departments of the student and faculty profiles
// owned by the user. Users without a profile get an empty slice.
func (r *UserRepository) ProfileDepartments(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT department_id FROM student_profiles WHERE user_id = $1
        UNION SELECT department_id FROM faculty_profiles WHERE user_id = $1`
	var departments []string
	if err := r.db.SelectContext(ctx, &departments, query, userID); err != nil {
		return nil, fmt.Errorf("list profile departments: %w", err)
	}
	return departments, nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	const query = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
