package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type permissionRequestService interface {
	List(ctx context.Context, actor *models.User, filter models.PermissionRequestFilter) ([]models.PermissionRequestDetail, *models.Pagination, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.PermissionRequestDetail, error)
	Create(ctx context.Context, actor *models.User, req models.PermissionRequestPayload, document *service.FileUpload, meta service.RequestMeta) (*models.PermissionRequestDetail, error)
	Delete(ctx context.Context, actor *models.User, id string, meta service.RequestMeta) error
	Approve(ctx context.Context, actor *models.User, id string, decision models.ApprovalDecisionRequest, meta service.RequestMeta) (*models.PermissionRequestDetail, error)
	DocumentLink(ctx context.Context, actor *models.User, id string) (*service.FileLink, error)
}

// PermissionRequestHandler exposes leave and on-duty request endpoints.
type PermissionRequestHandler struct {
	requests permissionRequestService
}

// NewPermissionRequestHandler constructs PermissionRequestHandler.
func NewPermissionRequestHandler(requests permissionRequestService) *PermissionRequestHandler {
	return &PermissionRequestHandler{requests: requests}
}

// List godoc
// @Summary List permission requests
// @Tags PermissionRequests
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param request_type query string false "leave, on_duty or other"
// @Success 200 {object} response.Envelope
// @Router /permission-requests [get]
func (h *PermissionRequestHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter := models.PermissionRequestFilter{ListFilter: listFilter(c), RequestType: models.PermissionRequestType(c.Query("request_type"))}
	items, pagination, err := h.requests.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get permission request
// @Tags PermissionRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /permission-requests/{id} [get]
func (h *PermissionRequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.requests.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary File a permission request
// @Tags PermissionRequests
// @Accept multipart/form-data
// @Produce json
// @Param request_type formData string true "leave, on_duty or other"
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param start_date formData string true "YYYY-MM-DD"
// @Param end_date formData string true "YYYY-MM-DD"
// @Param supporting_document formData file false "Supporting document"
// @Success 201 {object} response.Envelope
// @Router /permission-requests [post]
func (h *PermissionRequestHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.PermissionRequestPayload
	if !bindForm(c, &req) {
		return
	}
	document, closeDocument, err := formFile(c, "supporting_document")
	defer closeDocument()
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.requests.Create(c.Request.Context(), actor, req, document, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Withdraw a pending permission request
// @Tags PermissionRequests
// @Param id path string true "Request ID"
// @Success 204
// @Router /permission-requests/{id} [delete]
func (h *PermissionRequestHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.requests.Delete(c.Request.Context(), actor, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve or reject a permission request
// @Tags PermissionRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.ApprovalDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /permission-requests/{id}/approve [post]
func (h *PermissionRequestHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	req, ok := decision(c)
	if !ok {
		return
	}
	item, err := h.requests.Approve(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Document godoc
// @Summary Signed link to the supporting document
// @Tags PermissionRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /permission-requests/{id}/document [get]
func (h *PermissionRequestHandler) Document(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.requests.DocumentLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}
