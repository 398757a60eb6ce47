package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordPush(t *testing.T) {
	m := New()
	m.RecordPush("todo", "applied")
	m.RecordPush("todo", "applied")
	m.RecordPush("todo", "discarded")
	m.RecordUsageSamples(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Pushes.WithLabelValues("todo", "applied")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Pushes.WithLabelValues("todo", "discarded")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.UsageSamples))

	var nilMetrics *Metrics
	nilMetrics.RecordPush("todo", "applied")
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `countdownsync_http_request_duration_seconds_count{method="GET",route="/ping",status="200"} 1`), body)
}
