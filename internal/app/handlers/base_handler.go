package handlers

import (
	"errors"
	"net/http"

	"github.com/archivus/sitedocs/internal/app/middleware"
	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	config *HandlerConfig
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(config *HandlerConfig) *BaseHandler {
	return &BaseHandler{
		config: config,
	}
}

// AuthenticateUser extracts and validates user context
func (b *BaseHandler) AuthenticateUser(c *gin.Context) (*middleware.UserContext, bool) {
	userCtx := middleware.GetUserContext(c)
	if userCtx == nil {
		b.RespondUnauthorized(c, "User authentication required")
		return nil, false
	}
	return userCtx, true
}

// RespondError sends a standardized error response
func (b *BaseHandler) RespondError(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	response := ErrorResponse{
		Error:   errorCode,
		Message: message,
		Status:  statusCode,
	}

	// Include details based on environment
	if len(details) > 0 && b.config.EnableDebugErrors {
		response.Details = details[0]
	}

	c.JSON(statusCode, response)
}

// RespondServiceError maps a service failure onto its HTTP status.
// Partial failures always carry the step journal.
func (b *BaseHandler) RespondServiceError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	message := services.MessageOf(err)

	switch kind {
	case services.KindValidation:
		if errors.Is(err, services.ErrFileTooLarge) {
			b.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", message)
			return
		}
		b.RespondBadRequest(c, message, err.Error())
	case services.KindAuth:
		if errors.Is(err, services.ErrUnauthenticated) {
			b.RespondUnauthorized(c, message)
			return
		}
		b.RespondError(c, http.StatusForbidden, "forbidden", message)
	case services.KindNotFound:
		b.RespondNotFound(c, message)
	case services.KindConflict:
		b.RespondConflict(c, message)
	case services.KindStorage:
		b.RespondError(c, http.StatusBadGateway, "storage_error", message, err.Error())
	case services.KindPartialFailure:
		var serviceErr *services.Error
		errors.As(err, &serviceErr)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   string(kind),
			Message: message,
			Status:  http.StatusInternalServerError,
			Details: serviceErr.Steps,
		})
	default:
		b.RespondInternalError(c, message, err.Error())
	}
}

// RespondUnauthorized sends a standardized unauthorized response
func (b *BaseHandler) RespondUnauthorized(c *gin.Context, message string) {
	b.RespondError(c, http.StatusUnauthorized, "unauthorized", message)
}

// RespondBadRequest sends a standardized bad request response
func (b *BaseHandler) RespondBadRequest(c *gin.Context, message string, details ...string) {
	b.RespondError(c, http.StatusBadRequest, "invalid_request", message, details...)
}

// RespondNotFound sends a standardized not found response
func (b *BaseHandler) RespondNotFound(c *gin.Context, message string) {
	b.RespondError(c, http.StatusNotFound, "not_found", message)
}

// RespondConflict sends a standardized conflict response
func (b *BaseHandler) RespondConflict(c *gin.Context, message string) {
	b.RespondError(c, http.StatusConflict, "conflict", message)
}

// RespondInternalError sends a standardized internal server error response
func (b *BaseHandler) RespondInternalError(c *gin.Context, message string, details ...string) {
	b.RespondError(c, http.StatusInternalServerError, "internal_error", message, details...)
}

// RespondSuccess sends a standardized success response
func (b *BaseHandler) RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends a standardized created response
func (b *BaseHandler) RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// ValidateUUID validates UUID parameter and responds with error if invalid
func (b *BaseHandler) ValidateUUID(c *gin.Context, paramName, uuidStr string) (uuid.UUID, bool) {
	id, err := uuid.Parse(uuidStr)
	if err != nil {
		b.RespondBadRequest(c, "Invalid "+paramName+" format")
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID validates a UUID route parameter
func (b *BaseHandler) pathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	return b.ValidateUUID(c, param, c.Param(param))
}
