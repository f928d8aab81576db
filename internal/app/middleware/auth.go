package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/archivus/sitedocs/internal/domain/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserContext holds the authenticated caller
type UserContext struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// ChainVerifier tries each verifier in order and returns the first identity
type ChainVerifier []services.TokenVerifier

func (c ChainVerifier) VerifyToken(ctx context.Context, token string) (*services.Identity, error) {
	var errs []error
	for _, v := range c {
		identity, err := v.VerifyToken(ctx, token)
		if err == nil {
			return identity, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}

// AuthMiddleware requires a bearer token. EventSource clients cannot set
// headers, so GET requests may pass the token as access_token instead.
func AuthMiddleware(verifier services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_authorization",
				Message: "Authorization header must be in format: Bearer <token>",
			})
			c.Abort()
			return
		}

		identity, err := verifier.VerifyToken(c.Request.Context(), accessToken)
		if err != nil || identity == nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "invalid_token",
				Message: "Token validation failed",
			})
			c.Abort()
			return
		}

		userCtx := &UserContext{
			UserID: identity.UserID,
			Email:  identity.Email,
			Role:   identity.Role,
		}

		// Store user context in gin context
		c.Set("user", userCtx)
		c.Set("user_id", identity.UserID)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if c.Request.Method == http.MethodGet {
			if token := c.Query("access_token"); token != "" {
				return token, true
			}
		}
		return "", false
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
		return "", false
	}
	return tokenParts[1], true
}

// GetUserContext retrieves user context from gin context
func GetUserContext(c *gin.Context) *UserContext {
	if userCtx, exists := c.Get("user"); exists {
		if user, ok := userCtx.(*UserContext); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves user ID from gin context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}
