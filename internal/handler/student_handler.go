package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, actor *models.User, filter models.StudentFilter) ([]models.StudentProfileDetail, *models.Pagination, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.StudentProfileDetail, error)
	Me(ctx context.Context, actor *models.User) (*models.StudentProfileDetail, error)
	CreateOwn(ctx context.Context, actor *models.User, req models.StudentProfileRequest, meta service.RequestMeta) (*models.StudentProfileDetail, error)
	Create(ctx context.Context, actor *models.User, req models.CreateStudentRequest, meta service.RequestMeta) (*models.StudentProfileDetail, error)
	Update(ctx context.Context, actor *models.User, id string, req models.StudentProfileRequest, meta service.RequestMeta) (*models.StudentProfileDetail, error)
	Delete(ctx context.Context, actor *models.User, id string, meta service.RequestMeta) error
}

type studentDocuments interface {
	ProfilePDF(ctx context.Context, actor *models.User, id string) (*service.RenderedFile, error)
	PortfolioPDF(ctx context.Context, actor *models.User, id string) (*service.RenderedFile, error)
	Roster(ctx context.Context, actor *models.User, format service.RosterFormat) (*service.RenderedFile, error)
}

type studentImporter interface {
	Import(ctx context.Context, actor *models.User, collegeID, departmentID string, file *service.FileUpload, meta service.RequestMeta) (*models.ImportResult, error)
	Template() (*service.RenderedFile, error)
}

// StudentHandler exposes student profile, document and import endpoints.
type StudentHandler struct {
	students  studentService
	documents studentDocuments
	importer  studentImporter
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, documents studentDocuments, importer studentImporter) *StudentHandler {
	return &StudentHandler{students: students, documents: documents, importer: importer}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name, email or student ID"
// @Param department_id query string false "Filter by department"
// @Param year_of_admission query int false "Filter by admission year"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter := models.StudentFilter{ListFilter: listFilter(c), DepartmentID: c.Query("department_id")}
	if year, err := strconv.Atoi(c.Query("year_of_admission")); err == nil {
		filter.YearOfAdmission = year
	}
	students, pagination, err := h.students.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student profile ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	student, err := h.students.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Me godoc
// @Summary Current student profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me [get]
func (h *StudentHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	student, err := h.students.Me(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// CreateOwn godoc
// @Summary Create the current student's profile
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentProfileRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Router /students/me [post]
func (h *StudentHandler) CreateOwn(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.StudentProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.CreateOwn(c.Request.Context(), actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Create godoc
// @Summary Create student account and profile
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Create(c.Request.Context(), actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student profile ID"
// @Param payload body models.StudentProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.StudentProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	student, err := h.students.Update(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student and account
// @Tags Students
// @Param id path string true "Student profile ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.students.Delete(c.Request.Context(), actor, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ProfilePDF godoc
// @Summary Download a student's profile PDF
// @Tags Students
// @Produce application/pdf
// @Param id path string true "Student profile ID"
// @Success 200 {file} file
// @Router /students/{id}/profile.pdf [get]
func (h *StudentHandler) ProfilePDF(c *gin.Context) {
	h.document(c, h.documents.ProfilePDF, c.Param("id"))
}

// MyPortfolio godoc
// @Summary Download the current student's achievement portfolio
// @Tags Students
// @Produce application/pdf
// @Success 200 {file} file
// @Router /students/me/portfolio.pdf [get]
func (h *StudentHandler) MyPortfolio(c *gin.Context) {
	h.document(c, h.documents.PortfolioPDF, "")
}

// Portfolio godoc
// @Summary Download a student's achievement portfolio
// @Tags Students
// @Produce application/pdf
// @Param id path string true "Student profile ID"
// @Success 200 {file} file
// @Router /students/{id}/portfolio.pdf [get]
func (h *StudentHandler) Portfolio(c *gin.Context) {
	h.document(c, h.documents.PortfolioPDF, c.Param("id"))
}

func (h *StudentHandler) document(c *gin.Context, render func(context.Context, *models.User, string) (*service.RenderedFile, error), id string) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := render(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Export godoc
// @Summary Export the visible student roster
// @Tags Students
// @Produce octet-stream
// @Param format query string false "csv, xlsx or pdf"
// @Success 200 {file} file
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := h.documents.Roster(c.Request.Context(), actor, service.RosterFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Import godoc
// @Summary Bulk import students from an .xlsx workbook
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Workbook"
// @Param college_id formData string false "College ID"
// @Param department_id formData string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	upload, closeUpload, err := formFile(c, "file")
	defer closeUpload()
	if err != nil {
		response.Error(c, err)
		return
	}
	if upload == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	result, err := h.importer.Import(c.Request.Context(), actor, c.PostForm("college_id"), c.PostForm("department_id"), upload, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ImportTemplate godoc
// @Summary Download the import workbook template
// @Tags Students
// @Produce octet-stream
// @Success 200 {file} file
// @Router /students/import/template [get]
func (h *StudentHandler) ImportTemplate(c *gin.Context) {
	file, err := h.importer.Template()
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}
