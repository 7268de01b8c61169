package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feedback-fusion/backend/internal/ratelimit"
)

// RateLimit rejects requests that exceed the limiter's window, keyed by
// client IP.
func RateLimit(l *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Too many requests, please try again later",
				},
			})
			return
		}
		c.Next()
	}
}
