// Package backtest scores forecast accuracy by refitting on a holdout prefix.
package backtest

import (
	"fmt"
	"math"

	"github.com/hed1ad/gosmbml/pkg/forecast"
	"github.com/hed1ad/gosmbml/pkg/forecast/ssa"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

// Metrics holds holdout accuracy.
type Metrics struct {
	// Horizon is the number of held-out steps h.
	Horizon int
	// MAE is the mean absolute error over h steps.
	MAE float64
	// MAPE is the mean absolute percentage error as a fraction, averaged
	// over the steps whose actual value is non-zero.
	MAPE float64
	// MAPECount is the number of steps that contributed to MAPE.
	MAPECount int
}

// Harness refits a dedicated SSA engine on the prefix of a series.
type Harness struct {
	engine *ssa.Engine
}

// New creates a Harness whose engine is built with opts.
func New(opts ...ssa.Option) *Harness {
	return &Harness{engine: ssa.New(opts...)}
}

// HoldoutSize returns h = min(horizon, max(1, n/10)).
func HoldoutSize(n, horizon int) int {
	return min(horizon, max(1, n/10))
}

// Evaluate holds out the last h points, fits the prefix with a train size of
// min(T, len(train)−1) clamped to at least 2, and compares the prediction
// with the held-out actuals.
func (h *Harness) Evaluate(series *timeseries.Series, cfg forecast.FitConfig) (Metrics, error) {
	if err := cfg.Validate(); err != nil {
		return Metrics{}, err
	}
	if series == nil || series.Len() < 2 {
		return Metrics{}, fmt.Errorf("%w: backtest needs at least 2 points", forecast.ErrInsufficientData)
	}

	n := series.Len()
	holdout := HoldoutSize(n, cfg.Horizon)
	train := series.Slice(0, n-holdout)
	test := series.Slice(n-holdout, n)

	fitCfg := cfg
	fitCfg.Horizon = holdout
	fitCfg.TrainSize = max(2, min(cfg.TrainSize, train.Len()-1))
	if fitCfg.SeriesLength > fitCfg.TrainSize {
		return Metrics{}, fmt.Errorf("%w: train split of %d points cannot hold series length %d",
			forecast.ErrInsufficientData, train.Len(), cfg.SeriesLength)
	}

	model, err := h.engine.Fit(train, fitCfg)
	if err != nil {
		return Metrics{}, fmt.Errorf("backtest fit: %w", err)
	}
	pred, err := model.Predict(holdout)
	if err != nil {
		return Metrics{}, fmt.Errorf("backtest predict: %w", err)
	}

	return Score(test.Values(), pred.Forecasted), nil
}

// Score computes MAE over all steps and MAPE over the steps with a non-zero
// actual. Zero actuals are excluded rather than treated as infinite error.
func Score(actual, predicted []float64) Metrics {
	m := Metrics{Horizon: min(len(actual), len(predicted))}
	if m.Horizon == 0 {
		return m
	}

	for i := 0; i < m.Horizon; i++ {
		diff := math.Abs(predicted[i] - actual[i])
		m.MAE += diff
		if actual[i] != 0 {
			m.MAPE += diff / math.Abs(actual[i])
			m.MAPECount++
		}
	}

	m.MAE /= float64(m.Horizon)
	if m.MAPECount > 0 {
		m.MAPE /= float64(m.MAPECount)
	}
	return m
}
