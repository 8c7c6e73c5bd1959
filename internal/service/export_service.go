package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/policy"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/export"
)

type exportStudentSource interface {
	FindByID(ctx context.Context, id string, scope policy.Scope) (*models.StudentProfileDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfileDetail, error)
	ListAll(ctx context.Context, scope policy.Scope) ([]models.StudentProfileDetail, error)
}

type approvedAchievementSource interface {
	ListApproved(ctx context.Context, studentProfileID string) ([]models.AchievementDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// RosterFormat selects the roster export encoding.
type RosterFormat string

const (
	RosterCSV  RosterFormat = "csv"
	RosterXLSX RosterFormat = "xlsx"
	RosterPDF  RosterFormat = "pdf"
)

// RenderedFile is a generated download.
type RenderedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Content types of rendered files.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const (
	portfolioDate     = "January 02, 2006"
	portfolioDateTime = "January 02, 2006 at 03:04 PM"
)

var rosterHeaders = []string{"student_id", "first_name", "last_name", "email", "username", "department", "course", "branch", "year_of_admission", "phone_number"}

// ExportService renders student documents and roster exports synchronously.
type ExportService struct {
	students     exportStudentSource
	achievements approvedAchievementSource
	csv          csvRenderer
	pdf          pdfRenderer
	xlsx         xlsxRenderer
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(students exportStudentSource, achievements approvedAchievementSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		students:     students,
		achievements: achievements,
		csv:          csv,
		pdf:          pdf,
		xlsx:         xlsx,
		logger:       logger,
		now:          time.Now,
	}
}

// ProfilePDF renders the one-page profile of a student visible to the actor. An
// empty id selects the actor's own profile.
func (s *ExportService) ProfilePDF(ctx context.Context, actor *models.User, id string) (*RenderedFile, error) {
	student, err := s.student(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	doc := export.NewDocument("Student Profile").
		Heading("Student Information").
		Table(studentFields(student, true), 50, export.ShadeGrey).
		Footer(fmt.Sprintf("Generated on %s by %s Student Hub System", s.now().UTC().Format(portfolioDate), student.CollegeName))
	return s.pdfFile(doc, student.StudentID+"_profile.pdf")
}

// PortfolioPDF renders the approved achievements of a student, newest first.
func (s *ExportService) PortfolioPDF(ctx context.Context, actor *models.User, id string) (*RenderedFile, error) {
	student, err := s.student(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	achievements, err := s.achievements.ListApproved(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load achievements")
	}

	doc := export.NewDocument("Student Achievement Portfolio").
		Heading("Student Information").
		Table(studentFields(student, false), 50, export.ShadeGrey).
		Space(5)
	if len(achievements) == 0 {
		doc.Paragraph("", "No approved achievements found.")
	} else {
		doc.Heading("Approved Achievements")
		for i, a := range achievements {
			doc.Subheading(fmt.Sprintf("%d. %s", i+1, a.Title)).
				Table(achievementFields(a), 40, export.ShadeBlue).
				Paragraph("Description:", a.Description)
			if a.EvidenceFile != nil && *a.EvidenceFile != "" {
				doc.Paragraph("Evidence:", filepath.Base(*a.EvidenceFile))
			}
			doc.Space(4)
		}
	}
	doc.Footer(fmt.Sprintf("Generated on %s Student Hub System", student.CollegeName))
	return s.pdfFile(doc, student.StudentID+"_portfolio.pdf")
}

// Roster exports every student visible to a staff actor.
func (s *ExportService) Roster(ctx context.Context, actor *models.User, format RosterFormat) (*RenderedFile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent {
		return nil, forbidden("students cannot export the roster")
	}
	scope := policy.ScopeFor(actor, policy.ResourceStudents)
	if scope.Kind == policy.ScopeNone {
		return nil, forbidden("no students visible to this account")
	}
	students, err := s.students.ListAll(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	dataset := rosterDataset(students)
	stamp := s.now().UTC().Format("20060102_150405")

	var (
		body []byte
		file = &RenderedFile{}
	)
	switch format {
	case RosterCSV, "":
		body, err = s.csv.Render(dataset)
		file.Filename, file.ContentType = "students_"+stamp+".csv", ContentTypeCSV
	case RosterXLSX:
		body, err = s.xlsx.Render(dataset, "Students")
		file.Filename, file.ContentType = "students_"+stamp+".xlsx", ContentTypeXLSX
	case RosterPDF:
		body, err = s.pdf.Render(dataset, "Student Roster")
		file.Filename, file.ContentType = "students_"+stamp+".pdf", ContentTypePDF
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.logger.Info("roster exported", zap.String("actor", actor.ID), zap.String("format", string(format)), zap.Int("rows", len(students)))
	file.Body = body
	return file, nil
}

// student resolves the target profile through the actor's student scope, so
// students only ever reach their own.
func (s *ExportService) student(ctx context.Context, actor *models.User, id string) (*models.StudentProfileDetail, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStudent && !policy.Authorize(actor, policy.ActionDownloadProfilePDF, nil) {
		return nil, forbidden("not allowed to download this profile")
	}
	if id == "" {
		student, err := s.students.FindByUserID(ctx, actor.ID)
		if err != nil {
			return nil, lookupError(err, "student profile")
		}
		return student, nil
	}
	student, err := s.students.FindByID(ctx, id, policy.ScopeFor(actor, policy.ResourceStudents))
	if err != nil {
		return nil, lookupError(err, "student profile")
	}
	return student, nil
}

func (s *ExportService) pdfFile(doc *export.Document, filename string) (*RenderedFile, error) {
	body, err := doc.Bytes()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &RenderedFile{Filename: sanitizeFilename(filename), ContentType: ContentTypePDF, Body: body}, nil
}

func studentFields(st *models.StudentProfileDetail, full bool) []export.Field {
	fields := []export.Field{
		{Label: "Name:", Value: st.FullName()},
		{Label: "Student ID:", Value: st.StudentID},
		{Label: "Email:", Value: st.Email},
		{Label: "College:", Value: st.CollegeName},
		{Label: "Course:", Value: st.Course},
		{Label: "Branch:", Value: orNA(st.Branch)},
		{Label: "Year of Admission:", Value: strconv.Itoa(st.YearOfAdmission)},
	}
	if st.PhoneNumber != "" {
		fields = append(fields, export.Field{Label: "Phone:", Value: st.PhoneNumber})
	}
	if !full {
		return fields
	}
	fields = append(fields, export.Field{Label: "Department:", Value: orNA(st.DepartmentName)})
	dob := "N/A"
	if st.DateOfBirth != nil {
		dob = st.DateOfBirth.Format(portfolioDate)
	}
	fields = append(fields,
		export.Field{Label: "Date of Birth:", Value: dob},
		export.Field{Label: "Address:", Value: orNA(strings.Join(strings.Fields(st.Address), " "))},
	)
	return fields
}

func achievementFields(a models.AchievementDetail) []export.Field {
	approvedBy, approvedOn := "N/A", "N/A"
	if a.ApproverName != nil && *a.ApproverName != "" {
		approvedBy = *a.ApproverName
	}
	if a.ApprovedAt != nil {
		approvedOn = a.ApprovedAt.Format(portfolioDateTime)
	}
	return []export.Field{
		{Label: "Category:", Value: a.Category.Label()},
		{Label: "Date Achieved:", Value: a.DateAchieved.Format(portfolioDate)},
		{Label: "Approved By:", Value: approvedBy},
		{Label: "Approved On:", Value: approvedOn},
	}
}

func rosterDataset(students []models.StudentProfileDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, map[string]string{
			"student_id":        st.StudentID,
			"first_name":        st.FirstName,
			"last_name":         st.LastName,
			"email":             st.Email,
			"username":          st.Username,
			"department":        st.DepartmentName,
			"course":            st.Course,
			"branch":            st.Branch,
			"year_of_admission": strconv.Itoa(st.YearOfAdmission),
			"phone_number":      st.PhoneNumber,
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
