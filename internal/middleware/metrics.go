package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/inkhub/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics records request latency per route and counts requests refused with 401
// or 403 per API resource (works, chapters, groups, ...).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		status := c.Writer.Status()
		code := strconv.Itoa(status)
		metrics.APILatency.WithLabelValues(c.Request.Method, route, code).Observe(duration)

		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			metrics.RequestsRefused.WithLabelValues(resourceOf(route), code).Inc()
		}
	}
}

// resourceOf names the API resource a route template belongs to: the first
// segment after /api.
func resourceOf(route string) string {
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok || rest == "" {
		return "other"
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" || strings.HasPrefix(rest, ":") {
		return "other"
	}
	return rest
}
