package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/hyperjoin/internal/decomp"
	"github.com/roach88/hyperjoin/internal/join"
)

const metricsNamespace = "hyperjoin"

// Metrics holds the Prometheus collectors an Engine reports to.
//
// A nil *Metrics records nothing.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	resultRows     *prometheus.HistogramVec
	resolutions    *prometheus.CounterVec
	intersections  *prometheus.CounterVec
	pruned         *prometheus.CounterVec
	bagEvaluations prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
}

// NewMetrics registers the engine collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them process-wide or a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Evaluations by mode and result",
		}, []string{"mode", "result"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Evaluation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
		}, []string{"mode"}),
		resultRows: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "result_rows",
			Help:      "Distinct result rows per evaluation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"mode"}),
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "candidate_resolutions_total",
			Help:      "Candidate sets computed while binding variables",
		}, []string{"mode"}),
		intersections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "intersections_total",
			Help:      "Pairwise candidate set intersections",
		}, []string{"mode"}),
		pruned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pruned_branches_total",
			Help:      "Binding steps that produced no candidates",
		}, []string{"mode"}),
		bagEvaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bag_evaluations_total",
			Help:      "Bag-local joins run by the decomposition walker",
		}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bag_cache_hits_total",
			Help:      "Subtree results served from the walker cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bag_cache_misses_total",
			Help:      "Subtree results computed by the walker",
		}),
	}
}

func (m *Metrics) observeRun(mode Mode, result string, d time.Duration, rows int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(mode), result).Inc()
	m.runDuration.WithLabelValues(string(mode)).Observe(d.Seconds())
	if result == "ok" {
		m.resultRows.WithLabelValues(string(mode)).Observe(float64(rows))
	}
}

func (m *Metrics) observeJoin(mode Mode, s join.StatsSnapshot) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(string(mode)).Add(float64(s.Resolutions))
	m.intersections.WithLabelValues(string(mode)).Add(float64(s.Intersections))
	m.pruned.WithLabelValues(string(mode)).Add(float64(s.Pruned))
}

func (m *Metrics) observeWalk(s decomp.StatsSnapshot) {
	if m == nil {
		return
	}
	m.bagEvaluations.Add(float64(s.BagEvaluations))
	m.cacheHits.Add(float64(s.CacheHits))
	m.cacheMisses.Add(float64(s.CacheMisses))
}
