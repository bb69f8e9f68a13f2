package rbac

import (
	"net/http"

	"uikit-analytics/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole allows access if the authenticated principal has any of the
// provided roles. It assumes auth middleware already ran; a missing identity
// is a 401, a known identity with the wrong role is a 403.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}
