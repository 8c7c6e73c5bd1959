package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/middleware"
	"github.com/noah-isme/college-hub-api/internal/models"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type dashboardService interface {
	Principal(ctx context.Context, actor *models.User, collegeID string) (*models.PrincipalDashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Principal godoc
// @Summary Principal dashboard summary
// @Description Principals always see their own college; superusers pass college_id.
// @Tags Dashboard
// @Produce json
// @Param college_id query string false "College ID (superuser only)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/principal [get]
func (h *DashboardHandler) Principal(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Principal(c.Request.Context(), actor, strings.TrimSpace(c.Query("college_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
