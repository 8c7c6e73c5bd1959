package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type achievementService interface {
	List(ctx context.Context, actor *models.User, filter models.AchievementFilter) ([]models.AchievementDetail, *models.Pagination, error)
	Pending(ctx context.Context, actor *models.User, filter models.AchievementFilter) ([]models.AchievementDetail, *models.Pagination, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.AchievementDetail, error)
	Create(ctx context.Context, actor *models.User, req models.AchievementRequest, evidence *service.FileUpload, meta service.RequestMeta) (*models.AchievementDetail, error)
	Update(ctx context.Context, actor *models.User, id string, req models.AchievementRequest, evidence *service.FileUpload, meta service.RequestMeta) (*models.AchievementDetail, error)
	Delete(ctx context.Context, actor *models.User, id string, meta service.RequestMeta) error
	Approve(ctx context.Context, actor *models.User, id string, decision models.ApprovalDecisionRequest, meta service.RequestMeta) (*models.AchievementDetail, error)
	EvidenceLink(ctx context.Context, actor *models.User, id string) (*service.FileLink, error)
}

// AchievementHandler exposes achievement endpoints.
type AchievementHandler struct {
	achievements achievementService
}

// NewAchievementHandler constructs AchievementHandler.
func NewAchievementHandler(achievements achievementService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

func achievementFilter(c *gin.Context) models.AchievementFilter {
	return models.AchievementFilter{
		ListFilter:       listFilter(c),
		Category:         models.AchievementCategory(c.Query("category")),
		StudentProfileID: c.Query("student_profile_id"),
	}
}

// List godoc
// @Summary List achievements
// @Tags Achievements
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param category query string false "Category"
// @Success 200 {object} response.Envelope
// @Router /achievements [get]
func (h *AchievementHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, pagination, err := h.achievements.List(c.Request.Context(), actor, achievementFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Pending godoc
// @Summary List achievements awaiting the actor's approval
// @Tags Achievements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /achievements/pending [get]
func (h *AchievementHandler) Pending(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, pagination, err := h.achievements.Pending(c.Request.Context(), actor, achievementFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get achievement
// @Tags Achievements
// @Produce json
// @Param id path string true "Achievement ID"
// @Success 200 {object} response.Envelope
// @Router /achievements/{id} [get]
func (h *AchievementHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.achievements.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Submit an achievement
// @Tags Achievements
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param category formData string true "Category"
// @Param date_achieved formData string true "YYYY-MM-DD"
// @Param evidence_file formData file false "Evidence"
// @Success 201 {object} response.Envelope
// @Router /achievements [post]
func (h *AchievementHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.AchievementRequest
	if !bindForm(c, &req) {
		return
	}
	evidence, closeEvidence, err := formFile(c, "evidence_file")
	defer closeEvidence()
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.achievements.Create(c.Request.Context(), actor, req, evidence, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Edit an achievement
// @Tags Achievements
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Achievement ID"
// @Success 200 {object} response.Envelope
// @Router /achievements/{id} [put]
func (h *AchievementHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.AchievementRequest
	if !bindForm(c, &req) {
		return
	}
	evidence, closeEvidence, err := formFile(c, "evidence_file")
	defer closeEvidence()
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.achievements.Update(c.Request.Context(), actor, c.Param("id"), req, evidence, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete an achievement
// @Tags Achievements
// @Param id path string true "Achievement ID"
// @Success 204
// @Router /achievements/{id} [delete]
func (h *AchievementHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.achievements.Delete(c.Request.Context(), actor, c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve or reject an achievement
// @Tags Achievements
// @Accept json
// @Produce json
// @Param id path string true "Achievement ID"
// @Param payload body models.ApprovalDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /achievements/{id}/approve [post]
func (h *AchievementHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	req, ok := decision(c)
	if !ok {
		return
	}
	item, err := h.achievements.Approve(c.Request.Context(), actor, c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Evidence godoc
// @Summary Signed link to an achievement's evidence file
// @Tags Achievements
// @Produce json
// @Param id path string true "Achievement ID"
// @Success 200 {object} response.Envelope
// @Router /achievements/{id}/evidence [get]
func (h *AchievementHandler) Evidence(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	link, err := h.achievements.EvidenceLink(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}
