package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nordicstoday/nordics-today/infrastructure/metrics"
)

func TestMiddleware_LabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTP(reg, "nordics")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/article/:slug", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", metrics.Handler(reg))

	for _, slug := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/article/"+slug, http.NoBody))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", http.NoBody))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	body := w.Body.String()
	if !strings.Contains(body, `nordics_http_requests_total{method="GET",route="/article/:slug",status="200"} 3`) {
		t.Errorf("route counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched",status="404"`) {
		t.Error("unmatched route not recorded")
	}
	if got := testutil.CollectAndCount(reg, "nordics_http_request_duration_seconds"); got == 0 {
		t.Error("no duration series collected")
	}
}
