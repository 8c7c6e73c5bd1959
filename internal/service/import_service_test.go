package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/export"
)

type importCounter struct {
	created, failed int
}

func (c *importCounter) RecordImport(created, failed int) {
	c.created += created
	c.failed += failed
}

func workbook(t *testing.T, headers []string, rows ...map[string]string) *FileUpload {
	t.Helper()
	body, err := export.NewXLSXExporter().Render(export.Dataset{Headers: headers, Rows: rows}, "Students")
	require.NoError(t, err)
	return &FileUpload{Filename: "students.xlsx", Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func importRow(studentID, email string) map[string]string {
	return map[string]string{
		"student_id": studentID, "email": email, "username": studentID, "first_name": "Asha", "last_name": "Rao",
		"year_of_admission": "2024", "course": "B.Tech", "date_of_birth": "2005-06-07",
	}
}

type importFixture struct {
	svc     *ImportService
	repo    *mockStudentRepo
	audit   *auditRecorder
	metrics *importCounter
	cache   *invalidationRecorder
}

func newImportFixture() *importFixture {
	repo := newMockStudentRepo()
	f := &importFixture{repo: repo, audit: &auditRecorder{}, metrics: &importCounter{}, cache: &invalidationRecorder{}}
	f.svc = NewImportService(ImportServiceParams{
		Students:    repo,
		Identities:  repo,
		Departments: repo.departments,
		Audit:       f.audit,
		Cache:       f.cache,
		Metrics:     f.metrics,
		Config:      ImportServiceConfig{MaxRows: 10},
	})
	return f
}

var importHeaders = append(append([]string{}, importRequiredColumns...), importOptionalColumns...)

func TestImportServiceRowsAreIndependent(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	hod := newActor("hod-cse", models.RoleHOD, "college-a", "cse")

	bad := importRow("CSE003", "c@example.com")
	bad["year_of_admission"] = "soon"
	file := workbook(t, importHeaders,
		importRow("CSE001", "a@example.com"),
		importRow("CSE001", "b@example.com"),
		importRow("CSE002", "A@example.com"),
		map[string]string{},
		bad,
		importRow("CSE004", "d@example.com"),
	)

	result, err := f.svc.Import(ctx, hod, "college-a", "cse", file, RequestMeta{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.CreatedCount)
	assert.Equal(t, []string{
		"Row 3: Student ID CSE001 already exists",
		"Row 4: Email a@example.com already exists",
		"Row 6: year_of_admission must be a year",
	}, result.Errors)
	assert.Equal(t, "CSE004", result.CreatedStudents[1].StudentID)
	assert.Equal(t, "Asha Rao", result.CreatedStudents[0].Name)

	assert.Len(t, f.repo.profiles, 2)
	for _, u := range f.repo.users {
		assert.True(t, u.IsStudent)
		assert.Equal(t, "college-a", u.College())
		assert.Equal(t, "!", u.PasswordHash[:1])
	}
	assert.Equal(t, 2, f.metrics.created)
	assert.Equal(t, 3, f.metrics.failed)
	assert.Equal(t, []string{models.AuditActionStudentImport}, f.audit.actions())
	assert.Equal(t, []string{"college-a"}, f.cache.colleges)
}

func TestImportServiceRejectsWholeFile(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	principal := newActor("principal-a", models.RolePrincipal, "college-a", "")

	_, err := f.svc.Import(ctx, principal, "college-a", "cse", workbook(t, []string{"student_id", "email", "course"}, importRow("X", "x@example.com")), RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
	assert.Contains(t, err.Error(), "Missing required columns: username, first_name, last_name, year_of_admission")

	_, err = f.svc.Import(ctx, principal, "college-b", "cse", workbook(t, importHeaders), RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = f.svc.Import(ctx, principal, "college-a", "cse", &FileUpload{Filename: "students.csv", Size: 3, Content: bytes.NewReader([]byte("a,b"))}, RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	rows := make([]map[string]string, 11)
	for i := range rows {
		rows[i] = importRow("R", "r@example.com")
	}
	_, err = f.svc.Import(ctx, principal, "college-a", "cse", workbook(t, importHeaders, rows...), RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
	assert.Empty(t, f.repo.profiles)
}

func TestImportServiceAuthorization(t *testing.T) {
	f := newImportFixture()
	ctx := context.Background()
	file := workbook(t, importHeaders, importRow("CSE001", "a@example.com"))

	_, err := f.svc.Import(ctx, newActor("fac-cse", models.RoleFaculty, "college-a", "cse"), "college-a", "cse", file, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))

	_, err = f.svc.Import(ctx, newActor("hod-mech", models.RoleHOD, "college-a", "mech"), "college-a", "cse", file, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))

	_, err = f.svc.Import(ctx, newActor("principal-b", models.RolePrincipal, "college-b", ""), "", "cse", file, RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))
}

func TestImportServiceTemplate(t *testing.T) {
	f := newImportFixture()
	file, err := f.svc.Template()
	require.NoError(t, err)
	assert.Equal(t, "student_import_template.xlsx", file.Filename)

	sheet, err := export.ReadSheet(bytes.NewReader(file.Body))
	require.NoError(t, err)
	assert.Empty(t, sheet.Missing(importRequiredColumns))
	require.Len(t, sheet.Records, 2)
	assert.Equal(t, "STU002", sheet.Records[1][sheet.Column("student_id")])

	result, err := f.svc.Import(context.Background(), newActor("root", models.RoleSuperuser, "", ""), "", "cse",
		&FileUpload{Filename: file.Filename, Size: int64(len(file.Body)), Content: bytes.NewReader(file.Body)}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreatedCount)
	assert.Empty(t, result.Errors)
}

func TestImportServiceDateOfBirthIsISO(t *testing.T) {
	f := newImportFixture()
	hod := newActor("hod-cse", models.RoleHOD, "college-a", "cse")

	shortYear := importRow("CSE001", "a@example.com")
	shortYear["date_of_birth"] = "06-07-05"
	slashed := importRow("CSE002", "b@example.com")
	slashed["date_of_birth"] = "6/7/2005"
	file := workbook(t, importHeaders, shortYear, slashed, importRow("CSE003", "c@example.com"))

	result, err := f.svc.Import(context.Background(), hod, "college-a", "cse", file, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, []string{
		"Row 2: date_of_birth must be YYYY-MM-DD",
		"Row 3: date_of_birth must be YYYY-MM-DD",
	}, result.Errors)
}
