package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
)

var studentRowColumns = []string{"id", "user_id", "student_id", "year_of_admission", "course", "branch", "department_id",
	"phone_number", "address", "date_of_birth", "created_at", "updated_at",
	"email", "username", "first_name", "last_name", "department_name", "college_id", "college_name"}

func newStudentUser() *models.User {
	return &models.User{
		Email:        "stu@example.com",
		Username:     "stu",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         models.RoleStudent,
		CollegeID:    models.StringPtr("college-a"),
		DepartmentID: models.StringPtr("cse"),
		Active:       true,
	}
}

func TestStudentProfileCreateWithUserCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_profiles").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	user := newStudentUser()
	profile := &models.StudentProfile{StudentID: "STU001", YearOfAdmission: 2024, Course: "CS", DepartmentID: "cse"}
	require.NoError(t, repo.CreateWithUser(context.Background(), user, profile))
	assert.Equal(t, user.ID, profile.UserID)
	assert.True(t, user.IsStudent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileCreateWithUserRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_profiles").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.CreateWithUser(context.Background(), newStudentUser(), &models.StudentProfile{StudentID: "STU001", DepartmentID: "cse"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileFindByIDOwnerScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("sp-1", "u-1", "STU001", 2024, "CS", "CSE", "cse", "", "", nil, now, now, "stu@example.com", "stu", "Ada", "Lovelace", "Computer Science", "college-a", "MIT")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sp.id = $1 AND sp.user_id = $2")).
		WithArgs("sp-1", "u-1").
		WillReturnRows(rows)

	detail, err := repo.FindByID(context.Background(), "sp-1", policy.Scope{Kind: policy.ScopeOwner, UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", detail.FullName())
	assert.Equal(t, "MIT", detail.CollegeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileExistsStudentID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM student_profiles WHERE department_id = $1 AND student_id = $2 LIMIT 1")).
		WithArgs("cse", "STU001").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsStudentID(context.Background(), "cse", "STU001", "")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
