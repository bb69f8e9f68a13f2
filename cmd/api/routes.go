package main

import (
	"net/http"

	"uikit-analytics/internal/auth"
	"uikit-analytics/internal/config"
	"uikit-analytics/internal/httpapi"
	"uikit-analytics/internal/ratelimit"
	"uikit-analytics/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authManager *auth.Manager, rdb *redis.Client, rl config.RateLimitConfig) {
	r.NoRoute(httpapi.NotFound)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	global := ratelimit.PerMinute(rdb, "global", rl.GlobalPerMinute)

	// Ingestion is public (fire-and-forget from client SDKs) with its own,
	// more generous limit instead of the global one.
	r.POST("/events", ratelimit.PerMinute(rdb, "track", rl.TrackPerMinute), h.TrackEvent)

	// Stats are non-sensitive rollups; no auth by design.
	r.GET("/stats", global, h.GetStats)

	// Raw export requires an authenticated principal. Any known role passes;
	// the role gate exists so specific roles can be carved out later.
	export := r.Group("/export")
	export.Use(global, auth.RequireToken(authManager), rbac.RequireAnyRole(rbac.AllRoles()...))
	{
		export.GET("", h.ExportCSV)
		export.GET("/json", h.ExportJSON)
	}

	authGroup := r.Group("/auth")
	authGroup.Use(global)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}
