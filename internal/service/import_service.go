package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/export"
)

type studentImporter interface {
	ExistsStudentID(ctx context.Context, departmentID, studentID, excludeID string) (bool, error)
	CreateWithUser(ctx context.Context, user *models.User, profile *models.StudentProfile) error
}

type importRecorder interface {
	RecordImport(created, failed int)
}

var (
	importRequiredColumns = []string{"student_id", "email", "username", "first_name", "last_name", "year_of_admission", "course"}
	importOptionalColumns = []string{"branch", "phone_number", "date_of_birth"}
)

// ImportServiceConfig bounds spreadsheet imports.
type ImportServiceConfig struct {
	MaxFileSize int64
	MaxRows     int
}

// ImportServiceParams groups ImportService collaborators.
type ImportServiceParams struct {
	Students    studentImporter
	Identities  identityChecker
	Departments departmentLookup
	Audit       auditLogger
	Cache       dashboardInvalidator
	Metrics     importRecorder
	Validate    *validator.Validate
	Logger      *zap.Logger
	Config      ImportServiceConfig
}

// ImportService bulk-creates student accounts from an .xlsx roster.
type ImportService struct {
	students    studentImporter
	identities  identityChecker
	departments departmentLookup
	audit       auditLogger
	cache       dashboardInvalidator
	metrics     importRecorder
	validate    *validator.Validate
	logger      *zap.Logger
	xlsx        xlsxRenderer
	cfg         ImportServiceConfig
}

// NewImportService constructs the service.
func NewImportService(params ImportServiceParams) *ImportService {
	cfg := params.Config
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 1000
	}
	if params.Validate == nil {
		params.Validate = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &ImportService{
		students:    params.Students,
		identities:  params.Identities,
		departments: params.Departments,
		audit:       params.Audit,
		cache:       params.Cache,
		metrics:     params.Metrics,
		validate:    params.Validate,
		logger:      params.Logger,
		xlsx:        export.NewXLSXExporter(),
		cfg:         cfg,
	}
}

// Import reads the workbook and creates one student account plus profile per row
// in department departmentID. A missing required column rejects the whole file;
// a bad row is reported and skipped while the others still commit.
func (s *ImportService) Import(ctx context.Context, actor *models.User, collegeID, departmentID string, file *FileUpload, meta RequestMeta) (*models.ImportResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	dept, target, err := departmentTarget(ctx, s.departments, departmentID)
	if err != nil {
		return nil, err
	}
	if collegeID != "" && dept.CollegeID != collegeID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid college or department: department does not belong to college")
	}
	if !policy.Authorize(actor, policy.ActionImportStudents, target) {
		return nil, forbidden("not allowed to import students into this department")
	}
	sheet, err := s.readSheet(file)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{Success: true, CreatedStudents: []models.ImportedStudent{}, Errors: []string{}}
	for i, record := range sheet.Records {
		if export.Blank(record) {
			continue
		}
		rowNumber := i + 2
		created, err := s.importRow(ctx, dept, sheet, record)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNumber, rowMessage(err)))
			continue
		}
		result.CreatedStudents = append(result.CreatedStudents, *created)
	}
	result.CreatedCount = len(result.CreatedStudents)

	if s.metrics != nil {
		s.metrics.RecordImport(result.CreatedCount, len(result.Errors))
	}
	if result.CreatedCount > 0 && s.cache != nil {
		s.cache.InvalidateDashboard(ctx, dept.CollegeID)
	}
	writeAudit(ctx, s.audit, s.logger, actor, models.AuditActionStudentImport, "department", dept.ID,
		map[string]interface{}{"created": result.CreatedCount, "failed": len(result.Errors), "file": file.Filename}, meta)
	s.logger.Info("student import finished",
		zap.String("department_id", dept.ID),
		zap.Int("created", result.CreatedCount),
		zap.Int("failed", len(result.Errors)))
	return result, nil
}

// Template returns a workbook with every import column and two sample rows.
func (s *ImportService) Template() (*RenderedFile, error) {
	headers := append(append([]string{}, importRequiredColumns...), importOptionalColumns...)
	data := export.Dataset{
		Headers: headers,
		Rows: []map[string]string{
			{"student_id": "STU001", "email": "student1@example.com", "username": "student1", "first_name": "John", "last_name": "Doe",
				"year_of_admission": "2024", "course": "Computer Science", "branch": "CSE", "phone_number": "1234567890", "date_of_birth": "2000-01-01"},
			{"student_id": "STU002", "email": "student2@example.com", "username": "student2", "first_name": "Jane", "last_name": "Smith",
				"year_of_admission": "2024", "course": "Electronics", "branch": "ECE", "phone_number": "0987654321", "date_of_birth": "2000-02-02"},
		},
	}
	body, err := s.xlsx.Render(data, "Students")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return &RenderedFile{Filename: "student_import_template.xlsx", ContentType: ContentTypeXLSX, Body: body}, nil
}

func (s *ImportService) readSheet(file *FileUpload) (*export.Sheet, error) {
	if file == nil || file.Content == nil || file.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if file.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if !models.HasExtension(file.Filename, []string{"xlsx"}) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file must be an .xlsx workbook")
	}
	sheet, err := export.ReadSheet(file.Content)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "could not read workbook: "+err.Error())
	}
	if missing := sheet.Missing(importRequiredColumns); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Missing required columns: "+strings.Join(missing, ", "))
	}
	if len(sheet.Records) > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("workbook has %d rows; the limit is %d", len(sheet.Records), s.cfg.MaxRows))
	}
	return sheet, nil
}

// rowError is a per-row failure reported verbatim.
type rowError string

func (e rowError) Error() string { return string(e) }

func rowMessage(err error) string {
	var re rowError
	if errors.As(err, &re) {
		return string(re)
	}
	if appErr := appErrors.FromError(err); appErr.Code != appErrors.ErrInternal.Code {
		return appErr.Message
	}
	return "could not create student"
}

func (s *ImportService) importRow(ctx context.Context, dept *models.Department, sheet *export.Sheet, record []string) (*models.ImportedStudent, error) {
	cell := func(column string) string {
		idx := sheet.Column(column)
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	for _, column := range importRequiredColumns {
		if cell(column) == "" {
			return nil, rowError(column + " is required")
		}
	}

	studentID := cell("student_id")
	email := strings.ToLower(cell("email"))
	username := cell("username")
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, rowError("Email " + email + " is not a valid address")
	}
	year, err := strconv.Atoi(strings.TrimSuffix(cell("year_of_admission"), ".0"))
	if err != nil || year < 1900 || year > 2100 {
		return nil, rowError("year_of_admission must be a year")
	}
	dob, err := parseImportDate(cell("date_of_birth"))
	if err != nil {
		return nil, err
	}

	if exists, err := s.students.ExistsStudentID(ctx, dept.ID, studentID, ""); err != nil {
		return nil, err
	} else if exists {
		return nil, rowError("Student ID " + studentID + " already exists")
	}
	if exists, err := s.identities.ExistsByEmail(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, rowError("Email " + email + " already exists")
	}
	if exists, err := s.identities.ExistsByUsername(ctx, username); err != nil {
		return nil, err
	} else if exists {
		return nil, rowError("Username " + username + " already exists")
	}

	hash, err := passwordHash("")
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Username:     username,
		FirstName:    cell("first_name"),
		LastName:     cell("last_name"),
		PasswordHash: hash,
		Role:         models.RoleStudent,
		CollegeID:    &dept.CollegeID,
		DepartmentID: &dept.ID,
		Active:       true,
	}
	profile := &models.StudentProfile{
		StudentID:       studentID,
		YearOfAdmission: year,
		Course:          cell("course"),
		Branch:          cell("branch"),
		DepartmentID:    dept.ID,
		PhoneNumber:     cell("phone_number"),
		DateOfBirth:     dob,
	}
	if err := s.students.CreateWithUser(ctx, user, profile); err != nil {
		s.logger.Warn("import row failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, saveError(err, "create student")
	}
	return &models.ImportedStudent{StudentID: profile.StudentID, Name: user.FullName(), Email: user.Email}, nil
}

func parseImportDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	// Regional renderings such as 06-07-05 are ambiguous between day and month.
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, rowError("date_of_birth must be YYYY-MM-DD")
	}
	return &parsed, nil
}
