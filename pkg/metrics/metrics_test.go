package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveGate("login_redirect")
	m.ObserveGate("login_redirect")
	m.ObserveGate("allow")
	m.ObserveRateLimited("login")
	m.ObserveUpstreamError("list_users")
	m.ObserveAuditDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GateOutcomes.WithLabelValues("login_redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateOutcomes.WithLabelValues("allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited.WithLabelValues("login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("list_users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropped))
}

func TestMiddlewareAndRoute(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	m.RegisterRoute(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveRequests))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `admin_dashboard_http_request_duration_seconds_count{method="GET",route="/ping",status="200"} 1`), body)
}
