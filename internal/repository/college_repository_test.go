package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
)

func TestCollegeListPrincipalScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCollegeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "code", "address", "contact_email", "contact_phone", "principal_id", "created_at", "updated_at", "departments_count"}).
		AddRow("college-a", "MIT", "MIT", "", "", "", nil, now, now, 2)
	mock.ExpectQuery(regexp.QuoteMeta("FROM colleges c WHERE c.id = $1 ORDER BY c.name DESC LIMIT 20 OFFSET 0")).
		WithArgs("college-a").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM colleges c WHERE c.id = $1")).
		WithArgs("college-a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.ListFilter{}, policy.Scope{Kind: policy.ScopeCollege, CollegeID: "college-a"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].DepartmentsCount)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentExistsByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM departments WHERE college_id = $1 AND code = $2 AND id <> $3 LIMIT 1")).
		WithArgs("college-a", "CSE", "d-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "college-a", "CSE", "d-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentHeadedBy(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM departments WHERE hod_id = $1 AND id <> $2 LIMIT 1")).
		WithArgs("hod-1", "d-1").
		WillReturnRows(sqlmock.NewRows([]string{"one"}))

	taken, err := repo.HeadedBy(context.Background(), "hod-1", "d-1")
	require.NoError(t, err)
	assert.False(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadScopedToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2")).
		WithArgs("n-1", "u-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Error(t, repo.MarkRead(context.Background(), "n-1", "u-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
