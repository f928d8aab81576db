package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
}

// parseOptionalUUID parses an optional id; empty input yields nil
func parseOptionalUUID(value string) (*uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q", value)
	}
	return &id, nil
}

// formList collects a repeated form field, also splitting comma-separated values
func formList(c *gin.Context, field string) []string {
	var out []string
	for _, value := range c.PostFormArray(field) {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// formFile opens the "file" part of a multipart request. The caller closes the file.
func (b *BaseHandler) formFile(c *gin.Context) (*services.FileUpload, multipart.File, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, b.config.uploadLimit())

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			b.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds maximum size limit")
			return nil, nil, false
		}
		b.RespondBadRequest(c, "No file uploaded or invalid file", err.Error())
		return nil, nil, false
	}

	return &services.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}, file, true
}

// sendDownload writes a fetched file as an attachment
func sendDownload(c *gin.Context, download *services.Download) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, download.FileName))
	c.Header("Content-Length", strconv.Itoa(len(download.Data)))
	c.Header("Cache-Control", "private, no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	contentType := download.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, download.Data)
}
