package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the request instrumentation of one server. Each server owns
// its registry so tests can run servers side by side.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	items    *prometheus.CounterVec
}

// NewMetrics creates and registers the API collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logistix",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "List requests by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "logistix",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "List request latency, including injected latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logistix",
			Subsystem: "api",
			Name:      "items_served_total",
			Help:      "Records returned by list endpoints.",
		}, []string{"resource"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.items,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument wraps h so every call is counted and timed under route.
func (m *Metrics) Instrument(route string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r, ps)
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
	}
}

// ItemsServed records n records returned for resource.
func (m *Metrics) ItemsServed(resource string, n int) {
	m.items.WithLabelValues(resource).Add(float64(n))
}
