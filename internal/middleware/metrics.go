package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velora-app/velora-api/internal/service"
)

// Metrics records per-request duration and count. The route template is used
// as the path label so parameterised routes do not explode cardinality; the
// scrape endpoint itself is not measured.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
