package handlers

import (
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProjectHandler handles project and membership requests
type ProjectHandler struct {
	*BaseHandler
	projectService *services.ProjectService
}

func NewProjectHandler(base *BaseHandler, projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		BaseHandler:    base,
		projectService: projectService,
	}
}

// CreateProjectRequest represents the project creation request
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// AddMemberRequest represents the add member request
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Role   string    `json:"role"`
}

// RegisterRoutes registers all project routes
func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.POST("", h.CreateProject)
		projects.POST("/:id/members", h.AddMember)
		projects.GET("/:id/members", h.ListMembers)
	}
}

// CreateProject creates a project owned by the caller
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), userCtx.UserID, req.Name, req.Description)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondCreated(c, project)
}

// AddMember adds a user to the project
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondBadRequest(c, "Invalid request format", err.Error())
		return
	}

	member, err := h.projectService.AddMember(c.Request.Context(), userCtx.UserID, projectID, req.UserID, req.Role)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondCreated(c, member)
}

// ListMembers lists project members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	members, err := h.projectService.ListMembers(c.Request.Context(), userCtx.UserID, projectID)
	if err != nil {
		h.RespondServiceError(c, err)
		return
	}
	h.RespondSuccess(c, gin.H{"members": members})
}
