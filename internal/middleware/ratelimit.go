package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// GlobalRateLimit is a process-wide QPS ceiling in front of the per-owner
// sliding-window gate. It protects the relay's single egress identity from
// aggregate bursts regardless of owner.
func GlobalRateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "relay is at capacity",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
