package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hed1ad/gosmbml/pkg/detectors/spectral"
	"github.com/hed1ad/gosmbml/pkg/forecast"
	"github.com/hed1ad/gosmbml/pkg/io/csv"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

// AnomalySummary describes a finished anomaly run.
type AnomalySummary struct {
	Rows    int
	Scored  int
	Flagged int
	Output  string
}

// RunAnomaly scores the amount input and writes one verdict per emitted
// point to the configured output. The output file is only created once the
// input has enough rows.
func (r *Runner) RunAnomaly(ctx context.Context) (AnomalySummary, error) {
	defer r.flushMetrics()

	acfg := r.cfg.Anomaly
	summary := AnomalySummary{Output: acfg.Output}

	obs, err := r.load("anomaly", acfg.Input, csv.LayoutAmounts)
	if err != nil {
		return summary, err
	}
	summary.Rows = len(obs)

	if len(obs) < acfg.MinRows {
		return summary, fmt.Errorf("%w: there are %d rows available, while %d are required",
			forecast.ErrInsufficientData, len(obs), acfg.MinRows)
	}

	series, err := timeseries.FromObservations("", obs)
	if err != nil {
		return summary, err
	}

	detector, err := spectral.New(spectral.WithConfig(acfg.DetectorConfig()))
	if err != nil {
		return summary, err
	}

	w, err := csv.NewWriter(acfg.Output)
	if err != nil {
		return summary, fmt.Errorf("create output: %w", err)
	}

	start := time.Now()
	for rec := range detector.Score(series) {
		if err := ctx.Err(); err != nil {
			w.Close()
			return summary, err
		}
		if err := w.Write(rec); err != nil {
			w.Close()
			return summary, fmt.Errorf("write %s: %w", acfg.Output, err)
		}
		summary.Scored++
		if rec.IsAnomaly {
			summary.Flagged++
		}
		r.metrics.RecordVerdict(rec.IsAnomaly)
	}
	r.metrics.RecordLatency("score", time.Since(start).Seconds())

	if err := w.Close(); err != nil {
		return summary, fmt.Errorf("write %s: %w", acfg.Output, err)
	}

	r.log.Info().
		Int("points", series.Len()).
		Int("scored", summary.Scored).
		Int("flagged", summary.Flagged).
		Str("output", acfg.Output).
		Msg("anomaly scoring done")

	return summary, nil
}
