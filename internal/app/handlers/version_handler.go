package handlers

import (
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/gin-gonic/gin"
)

// VersionHandler handles revision history: new versions, reverts and supersession
type VersionHandler struct {
	*BaseHandler
	versionService  *services.VersionService
	documentService *services.DocumentService
}

func NewVersionHandler(base *BaseHandler, versionService *services.VersionService, documentService *services.DocumentService) *VersionHandler {
	return &VersionHandler{
		BaseHandler:     base,
		versionService:  versionService,
		documentService: documentService,
	}
}

// RegisterRoutes registers all version routes
func (h *VersionHandler) RegisterRoutes(router *gin.RouterGroup) {
	docs := router.Group("/documents/:id")
	{
		docs.GET("/versions", h.ListVersions)
		docs.POST("/versions", h.CreateVersion)
		docs.POST("/versions/:versionId/revert", h.RevertToVersion)
		docs.GET("/versions/:versionId/download", h.DownloadVersion)
		docs.POST("/supersede", h.Supersede)
	}
}

func (h *VersionHandler) ListVersions(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	versions, err := h.versionService.ListVersions(c.Request.Context(), userCtx.UserID, documentID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, gin.H{"versions": versions})
}

// CreateVersion archives the current file and replaces it with the upload
func (h *VersionHandler) CreateVersion(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	upload, file, ok := h.formFile(c)
	if !ok {
		return
	}
	defer file.Close()

	version, err := h.versionService.CreateNewVersion(c.Request.Context(), userCtx.UserID, documentID, upload, c.PostForm("change_summary"))
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondCreated(c, version)
}

func (h *VersionHandler) RevertToVersion(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	versionID, ok := h.pathUUID(c, "versionId")
	if !ok {
		return
	}

	document, err := h.versionService.RevertToVersion(c.Request.Context(), userCtx.UserID, documentID, versionID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, document)
}

func (h *VersionHandler) DownloadVersion(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	versionID, ok := h.pathUUID(c, "versionId")
	if !ok {
		return
	}

	download, err := h.documentService.DownloadVersion(c.Request.Context(), userCtx.UserID, documentID, versionID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	sendDownload(c, download)
}

// Supersede replaces the document with a new head carrying the same number
func (h *VersionHandler) Supersede(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	upload, file, ok := h.formFile(c)
	if !ok {
		return
	}
	defer file.Close()

	document, err := h.versionService.Supersede(c.Request.Context(), userCtx.UserID, documentID, upload, c.PostForm("change_summary"))
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondCreated(c, document)
}
