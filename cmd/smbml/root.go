package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hed1ad/gosmbml/pkg/config"
	"github.com/hed1ad/gosmbml/pkg/logger"
	"github.com/hed1ad/gosmbml/pkg/pipeline"
)

// app carries state shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string
	workers     int

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	defaults := config.Default()

	root := &cobra.Command{
		Use:           "smbml",
		Short:         "Demand forecasting and anomaly detection for small businesses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&a.logLevel, "log-level", defaults.Log.Level, "log level: trace, debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", defaults.Log.Format, "log format: console or json")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics of the run to this file")
	pf.IntVar(&a.workers, "workers", defaults.Workers, "series forecast concurrently")

	root.AddCommand(newForecastCmd(a, defaults), newAnomalyCmd(a, defaults))
	return root
}

// setup loads the config file, applies the shared flags and per-command
// overrides, validates the result and builds the logger.
func (a *app) setup(cmd *cobra.Command, override func(*config.Config)) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = a.metricsFile
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	override(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewTo(a.stderr, logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.New(a.cfg,
		pipeline.WithLogger(a.log),
		pipeline.WithStdout(a.stdout))
}
