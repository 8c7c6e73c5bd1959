package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type facultyService interface {
	List(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.FacultyProfileDetail, *models.Pagination, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.FacultyProfileDetail, error)
	Me(ctx context.Context, actor *models.User) (*models.FacultyProfileDetail, error)
	Create(ctx context.Context, actor *models.User, req models.FacultyProfileRequest, meta service.RequestMeta) (*models.FacultyProfileDetail, error)
	Update(ctx context.Context, actor *models.User, id string, req models.FacultyProfileRequest, meta service.RequestMeta) (*models.FacultyProfileDetail, error)
	Delete(ctx context.Context, actor *models.User, id string, meta service.RequestMeta) error
}

// FacultyHandler exposes faculty profile endpoints.
type FacultyHandler struct {
	faculty facultyService
}

// NewFacultyHandler constructs FacultyHandler.
func NewFacultyHandler(faculty facultyService) *FacultyHandler {
	return &FacultyHandler{faculty: faculty}
}

// List godoc
// @Summary List faculty profiles
// @Tags Faculty
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *FacultyHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, pagination, err := h.faculty.List(c.Request.Context(), actor, listFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Me godoc
// @Summary Current faculty profile
// @Tags Faculty
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculty/me [get]
func (h *FacultyHandler) Me(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	profile, err := h.faculty.Me(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Get godoc
// @Summary Get faculty profile
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty profile ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [get]
func (h *FacultyHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	profile, err := h.faculty.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Create godoc
// @Summary Create faculty profile
// @Tags Faculty
// @Accept json
// @Produce json
// @Param payload body models.FacultyProfileRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /faculty [post]
func (h *FacultyHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.FacultyProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.faculty.Create(c.Request.Context(), actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Update godoc
// @Summary Update faculty profile
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty profile ID"
// @Param payload body models.FacultyProfileRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [put]
func (h *FacultyHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.FacultyProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.faculty.Update(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Delete godoc
// @Summary Delete faculty profile
// @Tags Faculty
// @Param id path string true "Faculty profile ID"
// @Success 204
// @Router /faculty/{id} [delete]
func (h *FacultyHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.faculty.Delete(c.Request.Context(), actor, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
