package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopwalk/metrics"
)

// Observe logs every request and counts it by route and status. Unmatched
// paths are counted under "unmatched" to keep label cardinality bounded.
func Observe(logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.RecordHTTPRequest(route, status)

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}
