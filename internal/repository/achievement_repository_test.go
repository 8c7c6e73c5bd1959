package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
)

func TestAchievementListDepartmentScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAchievementRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_profile_id", "title", "description", "category", "date_achieved", "evidence_file",
		"status", "approved_by", "approved_at", "rejection_reason", "created_at", "updated_at",
		"student_id", "student_user_id", "student_name", "department_id", "college_id", "approver_name"}).
		AddRow("a-1", "sp-1", "Hackathon", "Won", "technical", now, nil, "pending", nil, nil, nil, now, now,
			"STU001", "u-1", "Ada Lovelace", "cse", "college-a", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sd.college_id = $1 AND sp.department_id = $2 AND a.status = $3 ORDER BY a.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("college-a", "cse", models.ApprovalPending).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM achievements a")).
		WithArgs("college-a", "cse", models.ApprovalPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	scope := policy.Scope{Kind: policy.ScopeDepartment, CollegeID: "college-a", DepartmentID: "cse"}
	filter := models.AchievementFilter{ListFilter: models.ListFilter{Status: models.ApprovalPending}}
	items, total, err := repo.List(context.Background(), filter, scope)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ApprovalPending, items[0].Status)
	assert.Equal(t, "STU001", items[0].StudentID)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementResolveCompareAndSet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAchievementRepository(db)

	approver := "hod-1"
	at := time.Now().UTC()
	approval := models.Approval{Status: models.ApprovalApproved, ApprovedBy: &approver, ApprovedAt: &at}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE achievements SET status = $2, approved_by = $3, approved_at = $4, rejection_reason = $5, updated_at = $6 WHERE id = $1 AND status = $7")).
		WithArgs("a-1", models.ApprovalApproved, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.ApprovalPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Resolve(context.Background(), "a-1", approval))

	mock.ExpectExec("UPDATE achievements SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Resolve(context.Background(), "a-1", approval), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementUpdateOnlyWhilePending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAchievementRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $8")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Achievement{ID: "a-1", Title: "x", Category: models.AchievementSports})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionRequestCountPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN departments sd ON sd.id = sp.department_id WHERE pr.status = $1 AND sd.college_id = $2")).
		WithArgs(models.ApprovalPending, "college-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountPending(context.Background(), policy.Scope{Kind: policy.ScopeCollege, CollegeID: "college-a"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
