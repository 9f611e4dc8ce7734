package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for extraction runs.
type Metrics struct {
	Registry         *prometheus.Registry
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	ErrorsTotal      *prometheus.CounterVec
	ImagesDownloaded prometheus.Counter
	ImagesFailed     prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_runs_total",
			Help: "Total extraction runs by outcome.",
		},
		[]string{"adapter", "outcome"},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_run_duration_seconds",
			Help:    "End-to-end extraction run latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_errors_total",
			Help: "Total extraction failures by type.",
		},
		[]string{"error_type"},
	)
	imagesDownloaded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_images_downloaded_total",
			Help: "Total product images downloaded to disk.",
		},
	)
	imagesFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_images_failed_total",
			Help: "Total per-image download failures (skipped, non-fatal).",
		},
	)

	registry.MustRegister(runs, runDuration, errorsTotal, imagesDownloaded, imagesFailed)

	return &Metrics{
		Registry:         registry,
		RunsTotal:        runs,
		RunDuration:      runDuration,
		ErrorsTotal:      errorsTotal,
		ImagesDownloaded: imagesDownloaded,
		ImagesFailed:     imagesFailed,
	}
}

func (m *Metrics) IncRun(adapter, outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(adapter, outcome).Inc()
}

func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) IncError(err error) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorTypeLabel(err)).Inc()
}

func (m *Metrics) IncImage() {
	if m == nil {
		return
	}
	m.ImagesDownloaded.Inc()
}

func (m *Metrics) IncImageFailure() {
	if m == nil {
		return
	}
	m.ImagesFailed.Inc()
}
