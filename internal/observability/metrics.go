package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec // labels: outcome={success,empty,failed,aborted}
	RunDuration        prometheus.Histogram
	PipelineRunning    prometheus.Gauge
	StationsDiscovered prometheus.Gauge

	// Per-station collection.
	StationFetches *prometheus.CounterVec // labels: outcome={ok,failed,dropped}
	ReadingsTotal  prometheus.Counter

	// Alert synthesis.
	AlertsTotal         *prometheus.CounterVec // labels: strategy={remote,fallback,none}
	EnrichmentFallbacks prometheus.Counter

	// Outbound calls and optional sinks.
	ProviderRequestDuration *prometheus.HistogramVec // labels: endpoint={bounds,feed}
	SinkErrors              *prometheus.CounterVec   // labels: sink={kafka,postgres}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.StationsDiscovered,
		m.StationFetches,
		m.ReadingsTotal,
		m.AlertsTotal,
		m.EnrichmentFallbacks,
		m.ProviderRequestDuration,
		m.SinkErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete discovery-to-artifact run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the polling loop is active, 0 when shut down.",
		}),
		StationsDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_discovered",
			Help:      "Stations inside the bounding box in the latest run.",
		}),
		StationFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_fetch_total",
			Help:      "Per-station feed fetches by outcome.",
		}, []string{"outcome"}),
		ReadingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Normalized readings written to snapshots.",
		}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts written by the strategy that produced them.",
		}, []string{"strategy"}),
		EnrichmentFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_fallbacks_total",
			Help:      "Runs where remote enrichment failed and local alerts were used.",
		}),
		ProviderRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Air-quality provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Optional sink failures by sink.",
		}, []string{"sink"}),
	}
}
