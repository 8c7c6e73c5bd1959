package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/middleware"
	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/internal/service"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

// actorFromContext returns the user loaded for this request, writing 401 when absent.
func actorFromContext(c *gin.Context) (*models.User, bool) {
	actor := middleware.Actor(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return actor, true
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// listFilter reads page, page_size, search, status, sort and order.
func listFilter(c *gin.Context) models.ListFilter {
	var filter models.ListFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Status = models.ApprovalStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// bindForm binds JSON or multipart bodies according to the content type.
func bindForm(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBind(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// formFile opens an optional multipart file. The returned closer is never nil.
func formFile(c *gin.Context, field string) (*service.FileUpload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, nil
	}
	header, err := c.FormFile(field)
	if err == http.ErrMissingFile {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+field+" upload")
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*service.FileUpload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read upload")
	}
	return &service.FileUpload{Filename: header.Filename, Size: header.Size, Content: file}, func() { _ = file.Close() }, nil
}

func sendFile(c *gin.Context, file *service.RenderedFile) {
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

func decision(c *gin.Context) (models.ApprovalDecisionRequest, bool) {
	var req models.ApprovalDecisionRequest
	return req, bindJSON(c, &req)
}
