package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	DatasetLoads    *prometheus.CounterVec
	PipelineRuns    *prometheus.CounterVec
	PipelineErrors  *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	DatasetRowCount prometheus.Gauge
}

// NewMetrics registers the pipeline instruments on a fresh registry,
// alongside the standard Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepulse_dataset_loads_total",
			Help: "Dataset loads by source (upload, remote, sheets).",
		}, []string{"source"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepulse_pipeline_runs_total",
			Help: "Pipeline derivation runs by kind.",
		}, []string{"kind"}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradepulse_pipeline_errors_total",
			Help: "Pipeline failures by error class.",
		}, []string{"class"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradepulse_pipeline_run_duration_seconds",
			Help:    "Wall time of one filter-aggregate-derive run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradepulse_derivation_cache_hits_total",
			Help: "Derivation results served from the memoization cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradepulse_derivation_cache_misses_total",
			Help: "Derivation runs that had to compute.",
		}),
		DatasetRowCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradepulse_dataset_rows",
			Help: "Rows in the currently loaded dataset.",
		}),
	}
	reg.MustRegister(
		m.DatasetLoads, m.PipelineRuns, m.PipelineErrors, m.RunDuration,
		m.CacheHits, m.CacheMisses, m.DatasetRowCount,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
