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

const achievementSelect = `SELECT a.id, a.student_profile_id, a.title, a.description, a.category, a.date_achieved, a.evidence_file,
        a.status, a.approved_by, a.approved_at, a.rejection_reason, a.created_at, a.updated_at,
        sp.student_id, sp.user_id AS student_user_id, TRIM(u.first_name || ' ' || u.last_name) AS student_name,
        sp.department_id, sd.college_id, NULLIF(TRIM(ap.first_name || ' ' || ap.last_name), '') AS approver_name`

const achievementJoin = "FROM achievements a JOIN student_profiles sp ON sp.id = a.student_profile_id " + studentTenantJoin

const achievementFrom = achievementJoin + " LEFT JOIN users ap ON ap.id = a.approved_by"

// AchievementRepository manages persistence for achievements.
type AchievementRepository struct {
	db *sqlx.DB
}

// NewAchievementRepository constructs an AchievementRepository.
func NewAchievementRepository(db *sqlx.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// List returns achievements visible under scope.
func (r *AchievementRepository) List(ctx context.Context, filter models.AchievementFilter, scope policy.Scope) ([]models.AchievementDetail, int, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, nil)
	conditions := []string{clause}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if filter.StudentProfileID != "" {
		args = append(args, filter.StudentProfileID)
		conditions = append(conditions, fmt.Sprintf("a.student_profile_id = $%d", len(args)))
	}
	if filter.Search != "" {
		var cond string
		cond, args = searchPredicate(filter.Search, []string{"a.title", "sp.student_id"}, args)
		conditions = append(conditions, cond)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"title":         "a.title",
		"date_achieved": "a.date_achieved",
		"status":        "a.status",
		"created_at":    "a.created_at",
	}, "a.created_at")
	_, size, offset := filter.Normalize()

	query := fmt.Sprintf("%s %s%s ORDER BY %s LIMIT %d OFFSET %d", achievementSelect, achievementFrom, where, order, size, offset)
	var achievements []models.AchievementDetail
	if err := r.db.SelectContext(ctx, &achievements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list achievements: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) " + achievementJoin + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count achievements: %w", err)
	}
	return achievements, total, nil
}

// FindByID fetches an achievement visible under scope.
func (r *AchievementRepository) FindByID(ctx context.Context, id string, scope policy.Scope) (*models.AchievementDetail, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, []interface{}{id})
	query := fmt.Sprintf("%s %s WHERE a.id = $1 AND %s", achievementSelect, achievementFrom, clause)
	var detail models.AchievementDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListApproved returns the approved achievements of a student, newest first.
func (r *AchievementRepository) ListApproved(ctx context.Context, studentProfileID string) ([]models.AchievementDetail, error) {
	query := fmt.Sprintf("%s %s WHERE a.student_profile_id = $1 AND a.status = $2 ORDER BY a.date_achieved DESC", achievementSelect, achievementFrom)
	var achievements []models.AchievementDetail
	if err := r.db.SelectContext(ctx, &achievements, query, studentProfileID, models.ApprovalApproved); err != nil {
		return nil, fmt.Errorf("list approved achievements: %w", err)
	}
	return achievements, nil
}

// CountPending returns pending achievements visible under scope.
func (r *AchievementRepository) CountPending(ctx context.Context, scope policy.Scope) (int, error) {
	clause, args := scopePredicate(scope, studentScopeColumns, []interface{}{models.ApprovalPending})
	query := "SELECT COUNT(*) " + achievementJoin + " WHERE a.status = $1 AND " + clause
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count pending achievements: %w", err)
	}
	return total, nil
}

// Create inserts an achievement.
func (r *AchievementRepository) Create(ctx context.Context, achievement *models.Achievement) error {
	if achievement.ID == "" {
		achievement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	achievement.CreatedAt = now
	achievement.UpdatedAt = now
	const query = `INSERT INTO achievements (id, student_profile_id, title, description, category, date_achieved, evidence_file,
        status, approved_by, approved_at, rejection_reason, created_at, updated_at)
        VALUES (:id, :student_profile_id, :title, :description, :category, :date_achieved, :evidence_file,
        :status, :approved_by, :approved_at, :rejection_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, achievement); err != nil {
		return fmt.Errorf("create achievement: %w", err)
	}
	return nil
}

// Update rewrites the content of a still-pending achievement.
func (r *AchievementRepository) Update(ctx context.Context, achievement *models.Achievement) error {
	achievement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE achievements SET title = $2, description = $3, category = $4, date_achieved = $5, evidence_file = $6, updated_at = $7
        WHERE id = $1 AND status = $8`
	err := execAffected(ctx, r.db, query, achievement.ID, achievement.Title, achievement.Description, achievement.Category,
		achievement.DateAchieved, achievement.EvidenceFile, achievement.UpdatedAt, models.ApprovalPending)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("update achievement: %w", err)
	}
	return err
}

// Resolve records an approval decision while the achievement is pending.
func (r *AchievementRepository) Resolve(ctx context.Context, id string, approval models.Approval) error {
	return resolveApproval(ctx, r.db, "achievements", id, approval)
}

// Delete removes an achievement.
func (r *AchievementRepository) Delete(ctx context.Context, id string) error {
	if err := execAffected(ctx, r.db, `DELETE FROM achievements WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete achievement: %w", err)
	}
	return nil
}
