// Package pipeline runs the forecast and anomaly workflows end to end.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hed1ad/gosmbml/pkg/config"
	"github.com/hed1ad/gosmbml/pkg/forecast/backtest"
	"github.com/hed1ad/gosmbml/pkg/forecast/ssa"
	"github.com/hed1ad/gosmbml/pkg/io/csv"
	"github.com/hed1ad/gosmbml/pkg/metrics"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

// ErrMissingArgument is returned when a required argument is absent.
var ErrMissingArgument = errors.New("missing required argument")

// Runner executes runs against one configuration.
type Runner struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Recorder
	engine  *ssa.Engine
	harness *backtest.Harness
	stdout  io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithStdout sets where reports are printed.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithEngineOptions configures the forecast and backtest engines.
func WithEngineOptions(opts ...ssa.Option) Option {
	return func(r *Runner) {
		r.engine = ssa.New(opts...)
		r.harness = backtest.New(opts...)
	}
}

// New creates a Runner for cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		log:     zerolog.Nop(),
		metrics: metrics.New(),
		engine:  ssa.New(),
		harness: backtest.New(),
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.log = r.log.With().Str("run_id", uuid.NewString()).Logger()
	return r
}

// Metrics returns the recorder collecting this runner's statistics.
func (r *Runner) Metrics() *metrics.Recorder {
	return r.metrics
}

// load reads every valid row of path with the given layout.
func (r *Runner) load(mode, path string, layout csv.Layout) ([]timeseries.Observation, error) {
	reader, err := csv.NewReader(path,
		csv.WithLayout(layout),
		csv.WithLogger(r.log.With().Str("input", path).Logger()))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	obs, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	r.metrics.RecordRows(mode, len(obs), reader.Skipped())
	r.log.Info().
		Str("input", path).
		Int("rows", len(obs)).
		Int("skipped", reader.Skipped()).
		Msg("input loaded")

	return obs, nil
}

// flushMetrics writes the metrics textfile when one is configured.
func (r *Runner) flushMetrics() {
	if r.cfg.MetricsFile == "" {
		return
	}
	if err := r.metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
		r.log.Warn().Err(err).Str("path", r.cfg.MetricsFile).Msg("could not write metrics")
	}
}
