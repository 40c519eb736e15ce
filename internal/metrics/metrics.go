// Package metrics exposes Prometheus collectors for snapshot computation and caching
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randytsao24/reachmap/internal/cache"
	"github.com/randytsao24/reachmap/internal/models"
)

var _ cache.Observer = (*Metrics)(nil)

// Metrics records cache decisions and computation outcomes
type Metrics struct {
	CacheRequestsTotal *prometheus.CounterVec
	ComputationsTotal  *prometheus.CounterVec
	ComputationSeconds *prometheus.HistogramVec
	SnapshotPoints     *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New registers the reachmap collectors, Go runtime and process collectors,
// and a build info gauge on a fresh registry.
func New(version string) *Metrics {
	m := &Metrics{
		CacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reachmap_cache_requests_total",
				Help: "Snapshot requests by cache decision",
			},
			[]string{"mode", "result"},
		),
		ComputationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reachmap_computations_total",
				Help: "Finished snapshot computations by outcome",
			},
			[]string{"mode", "outcome"},
		),
		ComputationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reachmap_computation_seconds",
				Help:    "Time spent computing a snapshot",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		SnapshotPoints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reachmap_snapshot_points",
				Help: "Points in the most recently installed snapshot",
			},
			[]string{"mode"},
		),
		registry: prometheus.NewRegistry(),
	}

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reachmap_build_info",
			Help: "Build metadata",
		},
		[]string{"version"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
		m.CacheRequestsTotal,
		m.ComputationsTotal,
		m.ComputationSeconds,
		m.SnapshotPoints,
	)
	buildInfo.WithLabelValues(version).Set(1)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(mode models.Mode, result string) {
	m.CacheRequestsTotal.WithLabelValues(string(mode), result).Inc()
}

func (m *Metrics) ObserveComputation(mode models.Mode, outcome string, elapsed time.Duration, points int) {
	m.ComputationsTotal.WithLabelValues(string(mode), outcome).Inc()
	m.ComputationSeconds.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	if outcome == cache.OutcomeInstalled {
		m.SnapshotPoints.WithLabelValues(string(mode)).Set(float64(points))
	}
}
