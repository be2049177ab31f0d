package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emissions_globe"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Build metrics.
	BuildDuration     prometheus.Histogram
	RegionsNormalized prometheus.Gauge
	RegionsRejected   *prometheus.CounterVec // labels: reason={aggregate,no_metric,no_valid_points}
	MalformedPoints   prometheus.Counter
	TableReady        prometheus.Gauge

	// Cache and source metrics.
	CacheLookups  *prometheus.CounterVec   // labels: artifact, result={hit,miss,error}
	SourceFetches *prometheus.CounterVec   // labels: format={csv,json}, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: format={csv,json}

	// Serving metrics.
	FramesProjected    prometheus.Counter
	ProjectionDuration prometheus.Histogram

	// Publication metrics.
	SnapshotMessages *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.BuildDuration,
		m.RegionsNormalized,
		m.RegionsRejected,
		m.MalformedPoints,
		m.TableReady,
		m.CacheLookups,
		m.SourceFetches,
		m.FetchDuration,
		m.FramesProjected,
		m.ProjectionDuration,
		m.SnapshotMessages,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of the one-time dataset build.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RegionsNormalized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions_normalized",
			Help:      "Number of regions in the served table.",
		}),
		RegionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_rejected_total",
			Help:      "Raw regions left out of the table by reason.",
		}, []string{"reason"}),
		MalformedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_points_total",
			Help:      "Raw data points skipped because the year or value was unusable.",
		}),
		TableReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_ready",
			Help:      "1 once the table is built and serving, 0 before.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Artifact cache lookups by artifact and result.",
		}, []string{"artifact", "result"}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Raw dataset download attempts by format and outcome.",
		}, []string{"format", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Raw dataset download duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
		FramesProjected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_projected_total",
			Help:      "Render frames produced.",
		}),
		ProjectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "projection_duration_seconds",
			Help:      "Time to project one frame.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		SnapshotMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_messages_total",
			Help:      "Region records published to the snapshot topic by outcome.",
		}, []string{"outcome"}),
	}
}
