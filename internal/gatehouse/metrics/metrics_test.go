package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ActorResolved("user")
		m.CredentialRefresh("success", time.Second)
		m.ProviderRequest(200, false)
		m.TokensPurged(3)
		m.ObserveHTTP("GET", "/livez", 200, time.Millisecond)
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	require.NotNil(t, m.Middleware("/x", h))
}

func TestRecorders(t *testing.T) {
	m := New()

	m.ActorResolved("module")
	m.ActorResolved("module")
	m.CredentialRefresh("provider_error", 0)
	m.ProviderRequest(401, true)
	m.TokensPurged(0)
	m.TokensPurged(4)

	require.Equal(t, 2.0, testutil.ToFloat64(m.ActorResolutionsTotal.WithLabelValues("module")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CredentialRefreshTotal.WithLabelValues("provider_error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("401", "true")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.ExpiredTokensPurgedTotal))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()

	h := m.Middleware("GET /v1/roles", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/roles", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /v1/roles", "418")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "gatehouse_http_requests_total"))
}
