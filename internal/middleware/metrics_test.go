package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountsRefusedRequestsPerResource(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/shelves/:id", func(c *gin.Context) {
		if c.Param("id") == "locked" {
			c.Status(http.StatusForbidden)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for _, path := range []string{"/api/shelves/open", "/api/shelves/locked", "/api/shelves/locked", "/api/unknown/route"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	require.Contains(t, body, `inkhub_api_requests_refused_total{resource="shelves",status="403"} 2`)
	require.Contains(t, body, `inkhub_api_latency_seconds_count{method="GET",path="/api/shelves/:id",status="200"} 1`)
	require.Contains(t, body, `path="unmatched",status="404"`)
	require.NotContains(t, body, "/api/unknown/route")
}

func TestResourceOf(t *testing.T) {
	cases := map[string]string{
		"/api/works/:id/chapters":       "works",
		"/api/chapters/:id":             "chapters",
		"/api/groups/:id/members/:user": "groups",
		"/api/me":                       "me",
		"/api/":                         "other",
		"/api/:id":                      "other",
		"/health":                       "other",
		unmatchedRoute:                  "other",
	}
	for route, want := range cases {
		require.Equal(t, want, resourceOf(route), route)
	}
}
