package handlers

import (
	"context"
	"net/http"

	"github.com/archivus/sitedocs/internal/domain/repositories"
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/internal/infrastructure/database/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles HTTP requests for document operations
type DocumentHandler struct {
	*BaseHandler
	documentService *services.DocumentService
	versionService  *services.VersionService
	lockService     *services.LockService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(base *BaseHandler, documentService *services.DocumentService, versionService *services.VersionService, lockService *services.LockService) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler:     base,
		documentService: documentService,
		versionService:  versionService,
		lockService:     lockService,
	}
}

// ListDocumentsQuery represents document list filters
type ListDocumentsQuery struct {
	Status         string `form:"status"`
	Category       string `form:"category"`
	DocumentNumber string `form:"document_number"`
	HeadsOnly      bool   `form:"heads_only"`
}

// UpdateFieldRequest carries a single field update
type UpdateFieldRequest struct {
	Value string `json:"value" binding:"required"`
}

// UpdateAssignmentRequest sets or clears the assignee
type UpdateAssignmentRequest struct {
	AssignedTo *uuid.UUID `json:"assigned_to"`
}

// ShareRequest represents a share grant
type ShareRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// RegisterRoutes registers all document routes
func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects/:id")
	{
		projects.GET("/documents", h.ListDocuments)
		projects.POST("/documents", h.UploadDocument)
		projects.GET("/lineage/:number", h.GetLineage)
	}

	docs := router.Group("/documents/:id")
	{
		docs.GET("", h.GetDocument)
		docs.DELETE("", h.DeleteDocument)
		docs.PATCH("/status", h.UpdateStatus)
		docs.PATCH("/category", h.UpdateCategory)
		docs.PATCH("/assignment", h.UpdateAssignment)
		docs.POST("/lock", h.ToggleLock)
		docs.GET("/download", h.DownloadDocument)
		docs.GET("/shares", h.ListShares)
		docs.POST("/shares", h.ShareDocument)
		docs.DELETE("/shares/:userId", h.UnshareDocument)
	}
}

// ListDocuments lists the documents the caller may see in a project
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var query ListDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.RespondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	filters := repositories.DocumentFilters{
		DocumentNumber: query.DocumentNumber,
		HeadsOnly:      query.HeadsOnly,
	}
	if query.Status != "" {
		status, err := models.ParseDocumentStatus(query.Status)
		if err != nil {
			h.RespondBadRequest(c, err.Error())
			return
		}
		filters.Status = &status
	}
	if query.Category != "" {
		category, err := models.ParseCategory(query.Category)
		if err != nil {
			h.RespondBadRequest(c, err.Error())
			return
		}
		filters.Category = &category
	}

	documents, err := h.documentService.ListDocuments(c.Request.Context(), userCtx.UserID, projectID, filters)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, gin.H{"documents": documents, "total": len(documents)})
}

// UploadDocument handles multipart document upload. A document number that
// matches a current head supersedes it.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	upload, file, ok := h.formFile(c)
	if !ok {
		return
	}
	defer file.Close()

	assignedTo, err := parseOptionalUUID(c.PostForm("assigned_to"))
	if err != nil {
		h.RespondBadRequest(c, "Invalid assigned_to format")
		return
	}

	document, err := h.documentService.UploadDocument(c.Request.Context(), services.UploadParams{
		Caller:         userCtx.UserID,
		ProjectID:      projectID,
		File:           upload,
		Title:          c.PostForm("title"),
		DocumentNumber: c.PostForm("document_number"),
		Category:       c.PostForm("category"),
		Status:         c.PostForm("status"),
		Visibility:     c.PostForm("visibility_scope"),
		Tags:           formList(c, "tags"),
		AssignedTo:     assignedTo,
		ChangeSummary:  c.PostForm("change_summary"),
	})
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondCreated(c, document)
}

// GetDocument returns a visible document
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	document, err := h.documentService.GetDocument(c.Request.Context(), userCtx.UserID, documentID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, document)
}

// DeleteDocument runs the delete cascade and reports every step
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	report, err := h.documentService.DeleteDocument(c.Request.Context(), userCtx.UserID, documentID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, report)
}

func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	h.updateField(c, h.documentService.UpdateStatus)
}

func (h *DocumentHandler) UpdateCategory(c *gin.Context) {
	h.updateField(c, h.documentService.UpdateCategory)
}

func (h *DocumentHandler) updateField(c *gin.Context, update func(ctx context.Context, caller, documentID uuid.UUID, value string) (*models.Document, error)) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	document, err := update(c.Request.Context(), userCtx.UserID, documentID, req.Value)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, document)
}

// UpdateAssignment sets the assignee; a null assigned_to clears it
func (h *DocumentHandler) UpdateAssignment(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	document, err := h.documentService.UpdateAssignment(c.Request.Context(), userCtx.UserID, documentID, req.AssignedTo)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, document)
}

// ToggleLock locks or unlocks a document
func (h *DocumentHandler) ToggleLock(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	document, err := h.lockService.ToggleLock(c.Request.Context(), userCtx.UserID, documentID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, document)
}

// DownloadDocument streams the current file
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	download, err := h.documentService.DownloadDocument(c.Request.Context(), userCtx.UserID, documentID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	sendDownload(c, download)
}

func (h *DocumentHandler) ListShares(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	shares, err := h.documentService.ListShares(c.Request.Context(), userCtx.UserID, documentID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, gin.H{"shares": shares})
}

func (h *DocumentHandler) ShareDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	share, err := h.documentService.ShareDocument(c.Request.Context(), userCtx.UserID, documentID, req.UserID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondCreated(c, share)
}

func (h *DocumentHandler) UnshareDocument(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := h.pathUUID(c, "userId")
	if !ok {
		return
	}

	if err := h.documentService.UnshareDocument(c.Request.Context(), userCtx.UserID, documentID, userID); err != nil {
		h.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetLineage returns the supersession chain of a document number
func (h *DocumentHandler) GetLineage(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	lineage, err := h.versionService.GetLineage(c.Request.Context(), userCtx.UserID, projectID, c.Param("number"))
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, lineage.View())
}
