package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contactlink"

// Metrics holds all Prometheus collectors for the service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	IdentifyOutcomes *prometheus.CounterVec
	ContactsCreated  *prometheus.CounterVec
	ContactsDemoted  prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	HTTPInFlight     prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		IdentifyOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identify",
			Name:      "outcomes_total",
			Help:      "Identify requests by classifier outcome.",
		}, []string{"outcome"}),
		ContactsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contacts",
			Name:      "created_total",
			Help:      "Contacts created, by link precedence.",
		}, []string{"precedence"}),
		ContactsDemoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contacts",
			Name:      "demoted_total",
			Help:      "Primary contacts demoted to secondary during merges.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method", "path"}),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}

	reg.MustRegister(
		m.IdentifyOutcomes,
		m.ContactsCreated,
		m.ContactsDemoted,
		m.HTTPRequests,
		m.HTTPDuration,
		m.HTTPInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.IdentifyOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCreated(precedence string) {
	if m == nil {
		return
	}
	m.ContactsCreated.WithLabelValues(precedence).Inc()
}

func (m *Metrics) RecordDemoted(n int) {
	if m == nil {
		return
	}
	m.ContactsDemoted.Add(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) IncrementInFlight() {
	if m == nil {
		return
	}
	m.HTTPInFlight.Inc()
}

func (m *Metrics) DecrementInFlight() {
	if m == nil {
		return
	}
	m.HTTPInFlight.Dec()
}
