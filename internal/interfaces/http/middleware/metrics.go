package middleware

import (
	"time"

	"github.com/gamestore/storefront/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Metrics records the count and latency of every request.
// A nil m yields a no-op middleware.
func Metrics(m *telemetry.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, routePattern(c), c.Writer.Status(), time.Since(start))
	}
}

// routePattern returns the matched route instead of the path to keep
// label cardinality bounded
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
