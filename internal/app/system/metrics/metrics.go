// internal/app/system/metrics/metrics.go
//
// Package metrics exposes Prometheus collectors for the dashboard: inbound
// requests, outbound backend calls, list fetch outcomes, mutations, live
// connections and active boards.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loanadmin"

// Metrics owns a registry and the collectors registered on it. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	ListFetches     *prometheus.CounterVec
	ListDuration    *prometheus.HistogramVec
	Mutations       *prometheus.CounterVec
	ActiveBoards    prometheus.Gauge
	LiveConnections prometheus.Gauge
}

// New builds a Metrics with its own registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Dashboard requests by route pattern, method and status.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Dashboard request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		BackendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the backend API by method and status.",
		}, []string{"code", "method"}),
		BackendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API latency by method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
		ListFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_fetches_total",
			Help:      "List fetches by page and outcome.",
		}, []string{"list", "outcome"}),
		ListDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "list_fetch_duration_seconds",
			Help:      "List fetch latency by page.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"list"}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Entity mutations by action and status.",
		}, []string{"action", "status"}),
		ActiveBoards: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_boards",
			Help:      "Session boards currently held in memory.",
		}),
		LiveConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Open live-refresh websocket connections.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records every request under its chi route pattern, so ids in
// paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		m.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Transport instruments outbound backend calls.
func (m *Metrics) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if m == nil {
		return base
	}
	return promhttp.InstrumentRoundTripperCounter(m.BackendRequests,
		promhttp.InstrumentRoundTripperDuration(m.BackendDuration, base))
}

// ObserveFetch records one completed list fetch.
func (m *Metrics) ObserveFetch(list, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ListFetches.WithLabelValues(list, outcome).Inc()
	m.ListDuration.WithLabelValues(list).Observe(elapsed.Seconds())
}

// ObserveMutation records one mutation attempt.
func (m *Metrics) ObserveMutation(action, status string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(action, status).Inc()
}

// SetActiveBoards sets the board gauge.
func (m *Metrics) SetActiveBoards(n int) {
	if m == nil {
		return
	}
	m.ActiveBoards.Set(float64(n))
}

// LiveOpened and LiveClosed track websocket connections.
func (m *Metrics) LiveOpened() {
	if m != nil {
		m.LiveConnections.Inc()
	}
}

func (m *Metrics) LiveClosed() {
	if m != nil {
		m.LiveConnections.Dec()
	}
}
