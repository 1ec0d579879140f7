package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trialingestor/internal/domain"
	"trialingestor/internal/ports"
)

// Registry exposes run counters for scraping. It implements
// ports.ProgressObserver: the orchestrator pushes statistics snapshots, the
// gauges track the latest snapshot.
type Registry struct {
	reg *prometheus.Registry

	Fetched     prometheus.Gauge
	Processed   prometheus.Gauge
	Failed      prometheus.Gauge
	Duplicates  prometheus.Gauge
	WithResults prometheus.Gauge
	DurationSec prometheus.Gauge
	SuccessRate prometheus.Gauge
}

var _ ports.ProgressObserver = (*Registry)(nil)

// NewRegistry builds and registers all run metrics.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	fetched := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_studies_fetched", Help: "Studies fetched from the registry in the current run."})
	processed := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_studies_processed", Help: "Studies successfully processed and saved."})
	failed := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_studies_failed", Help: "Studies that failed processing."})
	duplicates := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_studies_duplicate", Help: "Studies skipped as already ingested."})
	withResults := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_studies_with_results", Help: "Processed studies that have posted results."})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_run_duration_seconds", Help: "Wall-clock duration of the last run."})
	successRate := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ingest_run_success_rate", Help: "Successful share of fetched studies in the last run."})

	r.MustRegister(fetched, processed, failed, duplicates, withResults, duration, successRate)

	return &Registry{
		reg:         r,
		Fetched:     fetched,
		Processed:   processed,
		Failed:      failed,
		Duplicates:  duplicates,
		WithResults: withResults,
		DurationSec: duration,
		SuccessRate: successRate,
	}
}

// OnProgress mirrors the live counters.
func (r *Registry) OnProgress(stats domain.IngestionStats) {
	r.Fetched.Set(float64(stats.TotalFetched))
	r.Processed.Set(float64(stats.SuccessfullyProcessed))
	r.Failed.Set(float64(stats.FailedProcessing))
	r.Duplicates.Set(float64(stats.DuplicateStudies))
	r.WithResults.Set(float64(stats.StudiesWithResults))
}

// OnFinish records the final counters and run duration.
func (r *Registry) OnFinish(stats domain.IngestionStats) {
	r.OnProgress(stats)
	r.DurationSec.Set(stats.Duration().Seconds())
	r.SuccessRate.Set(stats.SuccessRate())
}

// Handler serves the registry for scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
