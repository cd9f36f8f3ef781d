// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wedding"

// Metrics groups every collector the service records.
type Metrics struct {
	BlobOps      *prometheus.CounterVec
	BlobDuration *prometheus.HistogramVec
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RSVPs        *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg skips
// registration, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlobOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "operations_total",
			Help:      "Blob store operations by operation and result.",
		}, []string{"op", "result"}),
		BlobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "operation_duration_seconds",
			Help:      "Blob store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status class.",
		}, []string{"method", "route", "class"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RSVPs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rsvps_submitted_total",
			Help:      "RSVP submissions by attendance and channel.",
		}, []string{"attendance", "channel"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_dropped_records_total",
			Help:      "Records skipped while listing because they could not be fetched or parsed.",
		}, []string{"collection"}),
	}

	if reg != nil {
		reg.MustRegister(m.BlobOps, m.BlobDuration, m.HTTPRequests, m.HTTPDuration, m.RSVPs, m.Dropped)
	}
	return m
}

// StatusClass buckets a status code as "2xx", "4xx", ...
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
