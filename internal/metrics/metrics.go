// Package metrics records the outcome of a load run and writes it in the
// Prometheus text format, suitable for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "msgload"

// Run summarizes one load run.
type Run struct {
	MessageRows       int
	CategoryRows      int
	JoinedRows        int
	SkippedRows       int
	DuplicatesRemoved int
	RelatedCorrected  int
	RowsWritten       int
	Duration          time.Duration
	Success           bool
	Finished          time.Time
}

// Recorder owns a private registry so that only run gauges are exported.
type Recorder struct {
	registry *prometheus.Registry

	inputRows         *prometheus.GaugeVec
	joinedRows        prometheus.Gauge
	skippedRows       prometheus.Gauge
	duplicatesRemoved prometheus.Gauge
	relatedCorrected  prometheus.Gauge
	rowsWritten       prometheus.Gauge
	duration          prometheus.Gauge
	success           prometheus.Gauge
	lastSuccess       prometheus.Gauge
}

func NewRecorder() *Recorder {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		inputRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_rows",
			Help:      "Data rows read from each input file.",
		}, []string{"file"}),
		joinedRows:        gauge("joined_rows", "Rows produced by the identifier join."),
		skippedRows:       gauge("skipped_rows", "Categories rows dropped for disagreeing with the category schema."),
		duplicatesRemoved: gauge("duplicates_removed", "Exact duplicate rows removed by the cleaner."),
		relatedCorrected:  gauge("related_corrected", "Related values rewritten from 2 to 0."),
		rowsWritten:       gauge("rows_written", "Rows written to the destination table."),
		duration:          gauge("run_duration_seconds", "Wall time of the last run."),
		success:           gauge("last_run_success", "1 if the last run succeeded, 0 otherwise."),
		lastSuccess:       gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
	}

	r.registry.MustRegister(
		r.inputRows, r.joinedRows, r.skippedRows, r.duplicatesRemoved,
		r.relatedCorrected, r.rowsWritten, r.duration, r.success, r.lastSuccess,
	)
	return r
}

// Observe sets every gauge from run. The last success timestamp is only
// updated for successful runs.
func (r *Recorder) Observe(run Run) {
	r.inputRows.WithLabelValues("messages").Set(float64(run.MessageRows))
	r.inputRows.WithLabelValues("categories").Set(float64(run.CategoryRows))
	r.joinedRows.Set(float64(run.JoinedRows))
	r.skippedRows.Set(float64(run.SkippedRows))
	r.duplicatesRemoved.Set(float64(run.DuplicatesRemoved))
	r.relatedCorrected.Set(float64(run.RelatedCorrected))
	r.rowsWritten.Set(float64(run.RowsWritten))
	r.duration.Set(run.Duration.Seconds())

	if run.Success {
		r.success.Set(1)
		r.lastSuccess.Set(float64(run.Finished.Unix()))
	} else {
		r.success.Set(0)
	}
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteFile atomically writes all gauges to path.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics file %s: %w", path, err)
	}
	return nil
}
