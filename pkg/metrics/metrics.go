// Package metrics records run statistics with Prometheus collectors.
//
// Runs are short-lived batch jobs, so each Recorder owns a private registry
// that can be dumped in text exposition format when the run ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects counters and latencies for one run.
type Recorder struct {
	registry *prometheus.Registry

	rowsRead     *prometheus.CounterVec
	rowsSkipped  *prometheus.CounterVec
	seriesTotal  *prometheus.CounterVec
	pointsScored prometheus.Counter
	anomalies    prometheus.Counter
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		rowsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbml_rows_read_total",
				Help: "Total number of valid input rows",
			},
			[]string{"mode"},
		),
		rowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbml_rows_skipped_total",
				Help: "Total number of malformed input rows skipped",
			},
			[]string{"mode"},
		),
		seriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smbml_series_total",
				Help: "Total number of series processed by outcome",
			},
			[]string{"status"},
		),
		pointsScored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "smbml_points_scored_total",
				Help: "Total number of points given an anomaly verdict",
			},
		),
		anomalies: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "smbml_anomalies_total",
				Help: "Total number of points flagged as anomalous",
			},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smbml_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRows records rows loaded and skipped for a mode.
func (r *Recorder) RecordRows(mode string, read, skipped int) {
	r.rowsRead.WithLabelValues(mode).Add(float64(read))
	r.rowsSkipped.WithLabelValues(mode).Add(float64(skipped))
}

// RecordSeries records the outcome of one forecast series.
func (r *Recorder) RecordSeries(ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	r.seriesTotal.WithLabelValues(status).Inc()
}

// RecordVerdict records one scored point.
func (r *Recorder) RecordVerdict(anomalous bool) {
	r.pointsScored.Inc()
	if anomalous {
		r.anomalies.Inc()
	}
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Registry returns the registry holding the run's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the collected metrics to path in text format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
