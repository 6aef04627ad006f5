package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid; every recorder is a no-op on it so services and tests can skip
// wiring a registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Actor resolution outcomes, labelled by result ("user", "module" or
	// an auth error kind).
	ActorResolutionsTotal *prometheus.CounterVec

	// Credential refresh attempts, labelled by outcome.
	CredentialRefreshTotal    *prometheus.CounterVec
	CredentialRefreshDuration prometheus.Histogram

	// Provider calls, labelled by status code and whether it was the retry.
	ProviderRequestsTotal *prometheus.CounterVec

	ExpiredTokensPurgedTotal prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ActorResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_actor_resolutions_total",
				Help: "Bearer token resolutions by outcome",
			},
			[]string{"result"},
		),
		CredentialRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_credential_refresh_total",
				Help: "External credential refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		CredentialRefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gatehouse_credential_refresh_duration_seconds",
				Help:    "Duration of refresh-token exchanges",
				Buckets: prometheus.DefBuckets,
			},
		),
		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_provider_requests_total",
				Help: "Calls made to the external calendar API",
			},
			[]string{"status", "retry"},
		),
		ExpiredTokensPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_expired_tokens_purged_total",
				Help: "Access tokens removed by housekeeping",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ActorResolutionsTotal,
		m.CredentialRefreshTotal,
		m.CredentialRefreshDuration,
		m.ProviderRequestsTotal,
		m.ExpiredTokensPurgedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ActorResolved(result string) {
	if m == nil {
		return
	}
	m.ActorResolutionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) CredentialRefresh(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CredentialRefreshTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.CredentialRefreshDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ProviderRequest(status int, retry bool) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(strconv.Itoa(status), strconv.FormatBool(retry)).Inc()
}

func (m *Metrics) TokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredTokensPurgedTotal.Add(float64(n))
}

// Middleware records request count and latency. route should be the mux
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.ObserveHTTP(r.Method, route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
