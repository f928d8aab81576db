package handlers

import (
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ApprovalHandler handles approval requests and decisions
type ApprovalHandler struct {
	*BaseHandler
	approvalService *services.ApprovalService
}

func NewApprovalHandler(base *BaseHandler, approvalService *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		BaseHandler:     base,
		approvalService: approvalService,
	}
}

// RequestApprovalRequest names the approver
type RequestApprovalRequest struct {
	ApproverID uuid.UUID `json:"approver_id" binding:"required"`
}

// ResolveApprovalRequest records a decision; approved must be present
type ResolveApprovalRequest struct {
	DocumentID uuid.UUID `json:"document_id" binding:"required"`
	Approved   *bool     `json:"approved" binding:"required"`
	Comments   string    `json:"comments"`
}

// RegisterRoutes registers all approval routes
func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/documents/:id/approvals", h.RequestApproval)
	router.GET("/documents/:id/approvals", h.ListApprovals)
	router.POST("/approvals/:id/resolve", h.ResolveApproval)
}

func (h *ApprovalHandler) RequestApproval(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req RequestApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	approval, err := h.approvalService.RequestApproval(c.Request.Context(), userCtx.UserID, documentID, req.ApproverID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondCreated(c, approval)
}

func (h *ApprovalHandler) ListApprovals(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	documentID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	approvals, err := h.approvalService.ListApprovals(c.Request.Context(), userCtx.UserID, documentID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, gin.H{"approvals": approvals})
}

func (h *ApprovalHandler) ResolveApproval(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	approvalID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req ResolveApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	approval, err := h.approvalService.Approve(c.Request.Context(), userCtx.UserID, approvalID, req.DocumentID, *req.Approved, req.Comments)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, approval)
}
