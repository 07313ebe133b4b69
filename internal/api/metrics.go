package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private prometheus registry with the HTTP and domain
// counters of the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ordersCreated   prometheus.Counter
	degradedLines   prometheus.Counter
	manifestsBuilt  prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "horeca_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "horeca_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	orders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "horeca_orders_created_total",
		Help: "Orders persisted.",
	})
	degraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "horeca_degraded_lines_total",
		Help: "Order lines priced at zero because the product was missing or inactive.",
	})
	manifests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "horeca_load_sheets_built_total",
		Help: "Load sheets aggregated.",
	})
	registry.MustRegister(requests, duration, orders, degraded, manifests)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ordersCreated:   orders,
		degradedLines:   degraded,
		manifestsBuilt:  manifests,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for collectors owned by other packages.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func (m *Metrics) orderCreated(degradedLines int) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.degradedLines.Add(float64(degradedLines))
}

func (m *Metrics) manifestBuilt() {
	if m == nil {
		return
	}
	m.manifestsBuilt.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
