package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/GoPolymarket/polyrelay/internal/config"
	"github.com/gin-gonic/gin"
)

const HeaderRelayKey = "X-Relay-Key"

// RelayAuthMiddleware gates the trade surface behind the shared relay
// secret. The comparison is constant-time and applies to every presented
// value: a JWT-shaped bearer token gets no special treatment and must match
// the configured key like anything else.
func RelayAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.RelayKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "relay key not configured"})
			c.Abort()
			return
		}

		presented := c.GetHeader(HeaderRelayKey)
		if presented == "" {
			if bearer := c.GetHeader("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
				presented = strings.TrimPrefix(bearer, "Bearer ")
			}
		}
		if presented == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing relay key"})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.Auth.RelayKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid relay key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
