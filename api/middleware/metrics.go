package middleware

import (
	"time"

	"github.com/friedchicken888/cab432-a2/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics 记录请求数与耗时，collector 为 nil 时不做任何事
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	if collector == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		collector.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
