package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.EventDetail, *models.Pagination, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.EventDetail, error)
	Create(ctx context.Context, actor *models.User, req models.EventRequest, circular *service.FileUpload, meta service.RequestMeta) (*models.EventDetail, error)
	Update(ctx context.Context, actor *models.User, id string, req models.EventRequest, circular *service.FileUpload, meta service.RequestMeta) (*models.EventDetail, error)
	Delete(ctx context.Context, actor *models.User, id string, meta service.RequestMeta) error
	Approve(ctx context.Context, actor *models.User, id string, decision models.ApprovalDecisionRequest, meta service.RequestMeta) (*models.EventDetail, error)
	ListRequests(ctx context.Context, actor *models.User, filter models.ListFilter) ([]models.EventRequestDetail, *models.Pagination, error)
	ApproveRequest(ctx context.Context, actor *models.User, requestID string, decision models.ApprovalDecisionRequest, meta service.RequestMeta) (*models.EventRequestDetail, error)
	CircularLink(ctx context.Context, actor *models.User, id string) (*service.FileLink, error)
}

// EventHandler exposes event and event approval endpoints.
type EventHandler struct {
	events eventService
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events eventService) *EventHandler {
	return &EventHandler{events: events}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, pagination, err := h.events.List(c.Request.Context(), actor, listFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Create godoc
// @Summary Create an event
// @Description Principal events are approved on creation; hod events wait for the principal.
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param description formData string true "Description"
// @Param start_date formData string true "RFC3339 or YYYY-MM-DD"
// @Param end_date formData string true "RFC3339 or YYYY-MM-DD"
// @Param target_years formData []int false "Target years"
// @Param target_departments formData []string false "Target department IDs"
// @Param circular formData file false "Circular image"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.EventRequest
	if !bindForm(c, &req) {
		return
	}
	circular, closeCircular, err := formFile(c, "circular")
	defer closeCircular()
	if err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.events.Create(c.Request.Context(), actor, req, circular, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Edit an event
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.EventRequest
	if !bindForm(c, &req) {
		return
	}
	circular, closeCircular, err := formFile(c, "circular")
	defer closeCircular()
	if err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.events.Update(c.Request.Context(), actor, c.Param("id"), req, circular, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), actor, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve or reject an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body models.ApprovalDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/approve [post]
func (h *EventHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	req, ok := decision(c)
	if !ok {
		return
	}
	event, err := h.events.Approve(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Circular godoc
// @Summary Signed link to the event circular
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/circular [get]
func (h *EventHandler) Circular(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.events.CircularLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// ListRequests godoc
// @Summary List event approval requests
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /event-requests [get]
func (h *EventHandler) ListRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, pagination, err := h.events.ListRequests(c.Request.Context(), actor, listFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// ApproveRequest godoc
// @Summary Decide an event approval request
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event request ID"
// @Param payload body models.ApprovalDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /event-requests/{id}/approve [post]
func (h *EventHandler) ApproveRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	req, ok := decision(c)
	if !ok {
		return
	}
	item, err := h.events.ApproveRequest(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
