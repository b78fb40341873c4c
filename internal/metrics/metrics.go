// Package metrics holds the Prometheus collectors exported by the relay.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scenerelay"

// Metrics contains the relay collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	MessagesTotal    *prometheus.CounterVec
	AnnotationsTotal *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	TokensTotal      *prometheus.CounterVec
	FeedSubscribers  prometheus.Gauge
}

// New creates the collectors and registers them, along with the Go and
// process collectors, on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "total",
				Help:      "Chat messages handled, by outcome",
			},
			[]string{"status"},
		),

		AnnotationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "annotations_total",
				Help:      "Responses by confidence band",
			},
			[]string{"band"},
		),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "duration_seconds",
				Help:      "Latency of calls to external services",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),

		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tokens",
				Name:      "total",
				Help:      "Speech tokens vended, by service and outcome",
			},
			[]string{"service", "status"},
		),

		FeedSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "subscribers",
				Help:      "Connected websocket feed subscribers",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesTotal,
		m.AnnotationsTotal,
		m.UpstreamDuration,
		m.TokensTotal,
		m.FeedSubscribers,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Message records one /api/message outcome.
func (m *Metrics) Message(status string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(status).Inc()
}

// Annotation records the confidence band of one response.
func (m *Metrics) Annotation(band string) {
	if m == nil {
		return
	}
	m.AnnotationsTotal.WithLabelValues(band).Inc()
}

// Upstream records the latency of one external call started at start.
func (m *Metrics) Upstream(service string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// Token records one token request outcome.
func (m *Metrics) Token(service, status string) {
	if m == nil {
		return
	}
	m.TokensTotal.WithLabelValues(service, status).Inc()
}

// Subscribers adjusts the feed subscriber gauge by delta.
func (m *Metrics) Subscribers(delta float64) {
	if m == nil {
		return
	}
	m.FeedSubscribers.Add(delta)
}
