package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-hub-api/internal/service"
	appErrors "github.com/noah-isme/college-hub-api/pkg/errors"
	"github.com/noah-isme/college-hub-api/pkg/response"
)

type fileOpener interface {
	Open(token string) (*service.FileDownload, error)
}

// FileHandler streams stored uploads addressed by signed token.
type FileHandler struct {
	files fileOpener
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(files fileOpener) *FileHandler {
	return &FileHandler{files: files}
}

// Download godoc
// @Summary Download an uploaded file via signed token
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.files.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() { _ = result.File.Close() }()
	response.Stream(c, result.Filename, result.MimeType, result.SizeBytes, result.File)
}
