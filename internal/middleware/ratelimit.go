package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/exit_slip_backend/internal/ratelimit"
)

// RateLimit caps requests per client IP and route. A nil limiter or a
// non-positive limit disables the check. Limiter failures let the request
// through.
func RateLimit(limiter ratelimit.Limiter, scope string, limit int, window time.Duration, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn("rate limit check failed", "scope", scope, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			log.Warn("rate limit exceeded", "scope", scope, "client_ip", c.ClientIP())
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many attempts, retry later",
				"type":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
