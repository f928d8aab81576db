package handlers

import (
	"io"
	"time"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/archivus/sitedocs/pkg/logger"
	"github.com/gin-gonic/gin"
)

// StreamHandler pushes a project's visible document list over server-sent
// events. Each connection owns one notifier session.
type StreamHandler struct {
	*BaseHandler
	notifier *services.ChangeNotifier
	logger   *logger.Logger
}

func NewStreamHandler(base *BaseHandler, notifier *services.ChangeNotifier, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		BaseHandler: base,
		notifier:    notifier,
		logger:      log,
	}
}

// RegisterRoutes registers the stream route
func (h *StreamHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/projects/:id/documents/stream", h.StreamDocuments)
}

// StreamDocuments sends a "documents" event with the full list on connect and
// after every change, plus a "ping" event while idle.
func (h *StreamHandler) StreamDocuments(c *gin.Context) {
	userCtx, ok := h.AuthenticateUser(c)
	if !ok {
		return
	}
	projectID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	session := h.notifier.NewSession(userCtx.UserID, projectID)
	if err := session.Start(ctx); err != nil {
		h.logger.Error("Failed to start notifier session", "project_id", projectID, "error", err)
		h.RespondInternalError(c, "Failed to subscribe to document changes", err.Error())
		return
	}
	defer session.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.config.StreamHeartbeat)
	defer heartbeat.Stop()

	updates := session.Updates()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case documents, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("documents", gin.H{"documents": documents, "total": len(documents)})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
