package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type collegeService interface {
	List(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.CollegeDetail, *models.Pagination, error)
	ListPublic(ctx context.Context) ([]models.College, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.CollegeDetail, error)
	Create(ctx context.Context, actor *models.User, req models.CollegeRequest, meta service.RequestMeta) (*models.College, error)
	Update(ctx context.Context, actor *models.User, id string, req models.CollegeRequest, meta service.RequestMeta) (*models.College, error)
	Delete(ctx context.Context, actor *models.User, id string, meta service.RequestMeta) error
}

// CollegeHandler exposes college endpoints.
type CollegeHandler struct {
	colleges collegeService
}

// NewCollegeHandler constructs CollegeHandler.
func NewCollegeHandler(colleges collegeService) *CollegeHandler {
	return &CollegeHandler{colleges: colleges}
}

// Public godoc
// @Summary List colleges for registration
// @Tags Colleges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/colleges [get]
func (h *CollegeHandler) Public(c *gin.Context) {
	colleges, err := h.colleges.ListPublic(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, colleges, nil)
}

// List godoc
// @Summary List colleges
// @Tags Colleges
// @Produce json
// @Param search query string false "Search by name or code"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /colleges [get]
func (h *CollegeHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, pagination, err := h.colleges.List(c.Request.Context(), actor, listFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get college
// @Tags Colleges
// @Produce json
// @Param id path string true "College ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /colleges/{id} [get]
func (h *CollegeHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	college, err := h.colleges.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}

// Create godoc
// @Summary Create college
// @Tags Colleges
// @Accept json
// @Produce json
// @Param payload body models.CollegeRequest true "College payload"
// @Success 201 {object} response.Envelope
// @Router /colleges [post]
func (h *CollegeHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CollegeRequest
	if !bindJSON(c, &req) {
		return
	}
	college, err := h.colleges.Create(c.Request.Context(), actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, college)
}

// Update godoc
// @Summary Update college
// @Tags Colleges
// @Accept json
// @Produce json
// @Param id path string true "College ID"
// @Param payload body models.CollegeRequest true "College payload"
// @Success 200 {object} response.Envelope
// @Router /colleges/{id} [put]
func (h *CollegeHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CollegeRequest
	if !bindJSON(c, &req) {
		return
	}
	college, err := h.colleges.Update(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, college, nil)
}

// Delete godoc
// @Summary Delete college
// @Tags Colleges
// @Param id path string true "College ID"
// @Success 204
// @Router /colleges/{id} [delete]
func (h *CollegeHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.colleges.Delete(c.Request.Context(), actor, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
