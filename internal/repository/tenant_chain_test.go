package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
)

// recordingDB captures the SQL of the first query issued and fails it.
func recordingDB(t *testing.T) (*sqlx.DB, *[]string) {
	t.Helper()
	var queries []string
	matcher := sqlmock.QueryMatcherFunc(func(_, actual string) error {
		queries = append(queries, actual)
		return nil
	})
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectQuery("").WillReturnError(errors.New("stop"))
	return sqlx.NewDb(db, "sqlmock"), &queries
}

func TestPrincipalScopeFollowsProfileDepartment(t *testing.T) {
	principal := policy.Scope{Kind: policy.ScopeCollege, CollegeID: "college-a"}
	ctx := context.Background()

	cases := []struct {
		name    string
		run     func(db *sqlx.DB)
		join    string
		college string
	}{
		{"students", func(db *sqlx.DB) {
			_, _, _ = NewStudentProfileRepository(db).List(ctx, models.StudentFilter{}, principal)
		}, "JOIN departments sd ON sd.id = sp.department_id", "sd.college_id = $1"},
		{"student detail", func(db *sqlx.DB) {
			_, _ = NewStudentProfileRepository(db).FindByID(ctx, "sp-1", principal)
		}, "JOIN departments sd ON sd.id = sp.department_id", "sd.college_id = $2"},
		{"faculty", func(db *sqlx.DB) {
			_, _, _ = NewFacultyProfileRepository(db).List(ctx, models.ListFilter{}, principal)
		}, "JOIN departments fd ON fd.id = fp.department_id", "fd.college_id = $1"},
		{"achievements", func(db *sqlx.DB) {
			_, _, _ = NewAchievementRepository(db).List(ctx, models.AchievementFilter{}, principal)
		}, "JOIN departments sd ON sd.id = sp.department_id", "sd.college_id = $1"},
		{"permission requests", func(db *sqlx.DB) {
			_, _, _ = NewPermissionRequestRepository(db).List(ctx, models.PermissionRequestFilter{}, principal)
		}, "JOIN departments sd ON sd.id = sp.department_id", "sd.college_id = $1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, queries := recordingDB(t)
			tc.run(db)
			require.NotEmpty(t, *queries)
			query := (*queries)[0]
			assert.Contains(t, query, tc.join)
			assert.Contains(t, query, tc.college)
			assert.NotContains(t, query, "u.college_id")
		})
	}
}
