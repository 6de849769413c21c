package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the service.
type Metrics struct {
	ReportsSubmitted prometheus.Counter
	VotesCast        prometheus.Counter

	// Reverse geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_feed",
			Name:      "reports_submitted_total",
			Help:      "Total incident reports accepted.",
		}),
		VotesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_feed",
			Name:      "votes_cast_total",
			Help:      "Total votes recorded, including replacements.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_feed",
			Name:      "geocode_requests_total",
			Help:      "External reverse-geocode calls by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_feed",
			Name:      "geocode_cache_total",
			Help:      "Address resolutions served from the on-record cache vs. misses.",
		}, []string{"result"}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_feed",
			Name:      "geocode_duration_seconds",
			Help:      "External reverse-geocode call duration, including throttle wait.",
			Buckets:   []float64{0.05, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.ReportsSubmitted,
		m.VotesCast,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_feed", Name: "reports_submitted_total"}),
		VotesCast:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_feed", Name: "votes_cast_total"}),
		GeocodeRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_feed", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_feed", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_feed", Name: "geocode_duration_seconds"}),
	}
}
