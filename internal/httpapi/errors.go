package httpapi

import (
	"errors"
	"net/http"

	"uikit-analytics/internal/tracking"
	"uikit-analytics/internal/users"
	"uikit-analytics/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError is the single place where internal errors become HTTP responses.
// Validation and auth failures surface their message; anything else is a 500
// with a generic body, details logged server-side only.
func writeError(c *gin.Context, err error) {
	var trackingVE *tracking.ValidationError
	if errors.As(err, &trackingVE) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": trackingVE.Error()})
		return
	}
	var usersVE *users.ValidationError
	if errors.As(err, &usersVE) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": usersVE.Error()})
		return
	}

	switch {
	case errors.Is(err, users.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	default:
		logger.FromGin(c).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// NotFound is the fallback for unmatched routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
