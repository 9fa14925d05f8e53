package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/gosmbml/pkg/forecast"
	"github.com/hed1ad/gosmbml/pkg/io/csv"
	"github.com/hed1ad/gosmbml/pkg/report"
	"github.com/hed1ad/gosmbml/pkg/staffing"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

// outcome is the result of forecasting one key.
type outcome struct {
	report report.Forecast
	err    error
}

// RunForecast forecasts each key in keys from the sales input and prints one
// report per key in the order given. Keys are processed concurrently on up
// to cfg.Workers goroutines. A failing key does not stop the others; the
// joined errors of all failed keys are returned after the reports print.
func (r *Runner) RunForecast(ctx context.Context, keys []string) error {
	defer r.flushMetrics()

	keys = normalizeKeys(keys)
	if len(keys) == 0 {
		return fmt.Errorf("%w: SKU not specified, use --sku <SKU> to specify the SKU", ErrMissingArgument)
	}

	obs, err := r.load("forecast", r.cfg.Forecast.Input, csv.LayoutSales)
	if err != nil {
		return err
	}

	outcomes := make([]outcome, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.Workers))
	for i, key := range keys {
		rows := timeseries.Filter(obs, key)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].report, outcomes[i].err = r.forecastKey(key, rows)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, o := range outcomes {
		r.metrics.RecordSeries(o.err == nil)
		if o.err != nil {
			r.log.Error().Err(o.err).Str("key", keys[i]).Msg("forecast failed")
			errs = append(errs, fmt.Errorf("sku %s: %w", keys[i], o.err))
			continue
		}
		if err := report.WriteForecast(r.stdout, o.report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return errors.Join(errs...)
}

// forecastKey fits, backtests and staffs one key.
func (r *Runner) forecastKey(key string, rows []timeseries.Observation) (report.Forecast, error) {
	log := r.log.With().Str("key", key).Logger()
	fcfg := r.cfg.Forecast

	if need := fcfg.RequiredRows(); len(rows) < need {
		return report.Forecast{}, fmt.Errorf("%w: there are %d sales available, while %d are required",
			forecast.ErrInsufficientData, len(rows), need)
	}

	series, err := timeseries.FromObservations(key, rows)
	if err != nil {
		return report.Forecast{}, err
	}

	fitCfg := fcfg.FitConfig()

	start := time.Now()
	result, err := r.engine.Forecast(series, fitCfg)
	r.metrics.RecordLatency("fit", time.Since(start).Seconds())
	if err != nil {
		return report.Forecast{}, fmt.Errorf("forecast: %w", err)
	}

	start = time.Now()
	bt, err := r.harness.Evaluate(series, fitCfg)
	r.metrics.RecordLatency("backtest", time.Since(start).Seconds())
	if err != nil {
		return report.Forecast{}, err
	}

	log.Debug().
		Int("points", series.Len()).
		Float64("mae", bt.MAE).
		Float64("mape", bt.MAPE).
		Msg("series forecast")

	return report.Forecast{
		Key:             key,
		Start:           series.Last().Time.AddDate(0, 0, 1),
		ConfidenceLevel: fitCfg.ConfidenceLevel,
		Result:          result,
		Backtest:        bt,
		Staff:           staffing.New(fcfg.StaffCapacityPerDay).Plan(result.Forecasted),
	}, nil
}

// normalizeKeys splits comma-separated entries, trims them and drops blanks
// and repeats, keeping first-seen order.
func normalizeKeys(keys []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range keys {
		for _, k := range strings.Split(entry, ",") {
			k = strings.TrimSpace(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
