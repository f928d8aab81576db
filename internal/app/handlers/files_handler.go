package handlers

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/archivus/sitedocs/internal/infrastructure/storage/local"
	"github.com/gin-gonic/gin"
)

// FilesHandler serves blobs of the local storage backend behind signed URLs.
// It is public; the signature is the credential.
type FilesHandler struct {
	*BaseHandler
	storage *local.StorageService
}

func NewFilesHandler(base *BaseHandler, storage *local.StorageService) *FilesHandler {
	return &FilesHandler{
		BaseHandler: base,
		storage:     storage,
	}
}

// RegisterRoutes registers the file route on the engine root
func (h *FilesHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET(local.FilesRoute+"/*path", h.ServeFile)
}

func (h *FilesHandler) ServeFile(c *gin.Context) {
	file, err := h.storage.Open(c.Param("path"), c.Query("expires"), c.Query("signature"))
	switch {
	case errors.Is(err, local.ErrInvalidSignature):
		h.RespondError(c, http.StatusForbidden, "invalid_signature", "Invalid file signature")
		return
	case errors.Is(err, local.ErrURLExpired):
		h.RespondError(c, http.StatusForbidden, "url_expired", "Signed URL has expired")
		return
	case errors.Is(err, os.ErrNotExist):
		h.RespondNotFound(c, "File not found")
		return
	case err != nil:
		h.RespondInternalError(c, "Failed to open file", err.Error())
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.RespondInternalError(c, "Failed to open file", err.Error())
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(file.Name()))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
