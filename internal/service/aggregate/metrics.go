package aggregate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the aggregator.
type Metrics struct {
	Registry       *prometheus.Registry
	FetchesTotal   *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	PostsCollected prometheus.Counter
	PostsDropped   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_fetches_total",
			Help: "Total source fetch attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aggregator_fetch_duration_seconds",
			Help:    "Wall-clock duration of individual source fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	postsCollected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregator_posts_collected_total",
			Help: "Total posts accepted into the pipeline.",
		},
	)
	postsDropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_posts_dropped_total",
			Help: "Posts dropped during validation by source.",
		},
		[]string{"source"},
	)

	registry.MustRegister(fetches, fetchDuration, postsCollected, postsDropped)

	return &Metrics{
		Registry:       registry,
		FetchesTotal:   fetches,
		FetchDuration:  fetchDuration,
		PostsCollected: postsCollected,
		PostsDropped:   postsDropped,
	}
}

func (m *Metrics) observeFetch(source string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.FetchesTotal.WithLabelValues(source, outcome).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observePosts(accepted int, source string, dropped int) {
	if m == nil {
		return
	}
	m.PostsCollected.Add(float64(accepted))
	if dropped > 0 {
		m.PostsDropped.WithLabelValues(source).Add(float64(dropped))
	}
}
