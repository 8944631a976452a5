package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swasthwrap/healthvault/pkg/metrics"
)

type MetricsMiddleware struct {
	collector *metrics.MetricsCollector
}

func NewMetricsMiddleware(collector *metrics.MetricsCollector) *MetricsMiddleware {
	return &MetricsMiddleware{collector: collector}
}

// CollectRequest records a counter and latency sample per route. The route
// template is used rather than the raw path so path parameters don't blow
// up the label space.
func (mm *MetricsMiddleware) CollectRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		mm.collector.IncrementCounter("http_requests", map[string]string{
			"route": c.Request.Method + " " + route + " " + strconv.Itoa(c.Writer.Status()),
		})
		mm.collector.ObserveLatency("http_request", time.Since(start))
	}
}
