package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"uikit-analytics/pkg/logger"
	"uikit-analytics/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// PerMinute limits each client IP to limit requests per minute for the named
// scope, backed by a Redis fixed window.
//
// Failure policy: if Redis is unreachable the limiter fails open. Tracking
// traffic must never be dropped because the limiter store blinked; the event
// store is the system of record, not Redis.
func PerMinute(rdb *redis.Client, scope string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rl:%s:%s", scope, c.ClientIP())
		allowed, err := utils.AllowRate(c.Request.Context(), rdb, key, limit, time.Minute)
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable, failing open", "scope", scope, "err", err)
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
