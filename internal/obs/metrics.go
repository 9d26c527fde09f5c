package obs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry          *prometheus.Registry
	requests          *prometheus.CounterVec
	upstreamErrors    *prometheus.CounterVec
	cacheRequests     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	upstreamRoundTrip *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapergate_requests_total",
		Help: "Total handled requests",
	}, []string{"route", "status_class"})

	upstreamErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapergate_upstream_errors_total",
		Help: "Total vendor errors",
	}, []string{"region", "category"})

	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scrapergate_cache_requests_total",
		Help: "Total cache lookups",
	}, []string{"route", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scrapergate_request_duration_seconds",
		Help:    "Request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	upstreamRoundTrip := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scrapergate_upstream_roundtrip_seconds",
		Help:    "Vendor roundtrip duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"region"})

	registry.MustRegister(requests, upstreamErrors, cacheRequests, requestDuration, upstreamRoundTrip)

	return &Metrics{
		registry:          registry,
		requests:          requests,
		upstreamErrors:    upstreamErrors,
		cacheRequests:     cacheRequests,
		requestDuration:   requestDuration,
		upstreamRoundTrip: upstreamRoundTrip,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, statusClass(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (m *Metrics) RecordUpstreamError(region string, category string) {
	if m == nil {
		return
	}
	if category == "" {
		category = "unknown"
	}
	m.upstreamErrors.WithLabelValues(region, category).Inc()
}

func (m *Metrics) ObserveUpstreamRoundTrip(region string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRoundTrip.WithLabelValues(region).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheLookup(route string, status string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(route, status).Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", status/100)
}
