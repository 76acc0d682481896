package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/response"
)

type fileResolver interface {
	Resolve(token string) (string, string, error)
	ReadAll(key string) ([]byte, error)
}

// FileHandler serves uploaded receipts behind signed tokens.
type FileHandler struct {
	files  fileResolver
	logger *zap.Logger
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(files fileResolver, logger *zap.Logger) *FileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileHandler{files: files, logger: logger}
}

// Download godoc
// @Summary Download an uploaded receipt
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	key, contentType, err := h.files.Resolve(c.Param("token"))
	if err != nil {
		h.logger.Debug("file token rejected", zap.Error(err))
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found or link expired"))
		return
	}
	data, err := h.files.ReadAll(key)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, contentType, data)
}
