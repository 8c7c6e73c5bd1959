package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
)

type fakeDocuments struct {
	format    service.RosterFormat
	profileID string
	err       error
}

func (f *fakeDocuments) ProfilePDF(_ context.Context, _ *models.User, id string) (*service.RenderedFile, error) {
	f.profileID = id
	if f.err != nil {
		return nil, f.err
	}
	return &service.RenderedFile{Filename: "CSE001_profile.pdf", ContentType: service.ContentTypePDF, Body: []byte("%PDF-1.3")}, nil
}

func (f *fakeDocuments) PortfolioPDF(_ context.Context, _ *models.User, id string) (*service.RenderedFile, error) {
	f.profileID = id
	return &service.RenderedFile{Filename: "CSE001_portfolio.pdf", ContentType: service.ContentTypePDF, Body: []byte("%PDF-1.3")}, f.err
}

func (f *fakeDocuments) Roster(_ context.Context, _ *models.User, format service.RosterFormat) (*service.RenderedFile, error) {
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &service.RenderedFile{Filename: "students_20240101_120000.csv", ContentType: service.ContentTypeCSV, Body: []byte("student_id\nCSE001\n")}, nil
}

type fakeImporter struct {
	collegeID    string
	departmentID string
	filename     string
	content      []byte
}

func (f *fakeImporter) Import(_ context.Context, _ *models.User, collegeID, departmentID string, file *service.FileUpload, _ service.RequestMeta) (*models.ImportResult, error) {
	f.collegeID, f.departmentID, f.filename = collegeID, departmentID, file.Filename
	f.content, _ = io.ReadAll(file.Content)
	return &models.ImportResult{
		Success:         true,
		CreatedCount:    1,
		CreatedStudents: []models.ImportedStudent{{StudentID: "CSE001", Name: "Asha Rao", Email: "asha@example.com"}},
		Errors:          []string{"Row 3: Student ID CSE001 already exists"},
	}, nil
}

func (f *fakeImporter) Template() (*service.RenderedFile, error) {
	return &service.RenderedFile{Filename: "student_import_template.xlsx", ContentType: service.ContentTypeXLSX, Body: []byte("PK")}, nil
}

func TestStudentExportSendsAttachment(t *testing.T) {
	docs := &fakeDocuments{}
	h := NewStudentHandler(nil, docs, &fakeImporter{})

	c, rec := newTestContext(http.MethodGet, "/api/students/export?format=csv", nil, "", testUser(models.RoleHOD, "college-a", "cse"))
	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.RosterFormat("csv"), docs.format)
	assert.Equal(t, `attachment; filename="students_20240101_120000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "student_id\nCSE001\n", rec.Body.String())
}

func TestStudentExportDefaultsToCSVAndForwardsErrors(t *testing.T) {
	docs := &fakeDocuments{err: appErrors.Clone(appErrors.ErrForbidden, "students cannot export the roster")}
	h := NewStudentHandler(nil, docs, &fakeImporter{})

	c, rec := newTestContext(http.MethodGet, "/api/students/export", nil, "", testUser(models.RoleStudent, "college-a", "cse"))
	h.Export(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, service.RosterFormat("csv"), docs.format)
}

func TestStudentProfilePDFUsesPathID(t *testing.T) {
	docs := &fakeDocuments{}
	h := NewStudentHandler(nil, docs, &fakeImporter{})

	c, rec := newTestContext(http.MethodGet, "/api/students/stu-1/profile.pdf", nil, "", testUser(models.RoleFaculty, "college-a", "cse"))
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	h.ProfilePDF(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", docs.profileID)
	assert.Equal(t, service.ContentTypePDF, rec.Header().Get("Content-Type"))
}

func TestStudentMyPortfolioUsesActor(t *testing.T) {
	docs := &fakeDocuments{profileID: "unset"}
	h := NewStudentHandler(nil, docs, &fakeImporter{})

	c, rec := newTestContext(http.MethodGet, "/api/students/me/portfolio.pdf", nil, "", testUser(models.RoleStudent, "college-a", "cse"))
	h.MyPortfolio(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, docs.profileID)
}

func TestStudentImportForwardsUpload(t *testing.T) {
	importer := &fakeImporter{}
	h := NewStudentHandler(nil, &fakeDocuments{}, importer)

	body, contentType := multipartBody(t, [][2]string{
		{"college_id", "college-a"},
		{"department_id", "cse"},
	}, "file", "students.xlsx", []byte("PK\x03\x04"))
	c, rec := newTestContext(http.MethodPost, "/api/students/import", body, contentType, testUser(models.RoleHOD, "college-a", "cse"))
	h.Import(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "college-a", importer.collegeID)
	assert.Equal(t, "cse", importer.departmentID)
	assert.Equal(t, "students.xlsx", importer.filename)
	assert.Equal(t, []byte("PK\x03\x04"), importer.content)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(1), envelope.Data["created_count"])
	assert.Equal(t, []interface{}{"Row 3: Student ID CSE001 already exists"}, envelope.Data["errors"])
}

func TestStudentImportRequiresFile(t *testing.T) {
	importer := &fakeImporter{}
	h := NewStudentHandler(nil, &fakeDocuments{}, importer)

	body, contentType := multipartBody(t, [][2]string{{"department_id", "cse"}}, "", "", nil)
	c, rec := newTestContext(http.MethodPost, "/api/students/import", body, contentType, testUser(models.RoleHOD, "college-a", "cse"))
	h.Import(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, importer.departmentID)
}

func TestStudentImportTemplate(t *testing.T) {
	h := NewStudentHandler(nil, &fakeDocuments{}, &fakeImporter{})

	c, rec := newTestContext(http.MethodGet, "/api/students/import/template", nil, "", testUser(models.RoleHOD, "college-a", "cse"))
	h.ImportTemplate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="student_import_template.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, service.ContentTypeXLSX, rec.Header().Get("Content-Type"))
}
