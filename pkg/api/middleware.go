package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// defaultOrigin is allowed when no origins are configured, so local
// dashboards work out of the box.
const defaultOrigin = "http://localhost:3000"

// corsMiddleware answers preflight requests and sets the allow headers
// for configured origins. An empty list falls back to the local dev
// origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	if len(allowed) == 0 {
		allowed = []string{defaultOrigin}
	}
	allowedSet := make(map[string]bool, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		allowedSet[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || allowedSet[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
