// Package config loads run configuration from YAML with tag defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hed1ad/gosmbml/pkg/detectors"
	"github.com/hed1ad/gosmbml/pkg/forecast"
)

var validate = validator.New()

// Config is the full run configuration.
type Config struct {
	Forecast Forecast `yaml:"forecast"`
	Anomaly  Anomaly  `yaml:"anomaly"`
	Log      Log      `yaml:"log"`

	// Workers bounds how many series are forecast concurrently.
	Workers int `yaml:"workers" default:"4" validate:"gte=1,lte=256"`
	// MetricsFile, when set, receives a Prometheus text dump of the run.
	MetricsFile string `yaml:"metrics_file"`
}

// Forecast configures demand forecasting.
type Forecast struct {
	Input               string  `yaml:"input" default:"Data/sales.csv" validate:"required"`
	WindowSize          int     `yaml:"window_size" default:"7" validate:"gte=1"`
	SeriesLength        int     `yaml:"series_length" default:"60" validate:"gte=1"`
	TrainSize           int     `yaml:"train_size" default:"90" validate:"gte=1"`
	Horizon             int     `yaml:"horizon" default:"14" validate:"gte=1"`
	ConfidenceLevel     float64 `yaml:"confidence_level" default:"0.95" validate:"gt=0,lt=1"`
	StaffCapacityPerDay float64 `yaml:"staff_capacity_per_day" default:"40" validate:"gt=0"`
	MinRows             int     `yaml:"min_rows" default:"30" validate:"gte=1"`
}

// Anomaly configures transaction anomaly detection.
type Anomaly struct {
	Input       string  `yaml:"input" default:"Data/input.csv" validate:"required"`
	Output      string  `yaml:"output" default:"Data/anomalies.csv" validate:"required"`
	Threshold   float64 `yaml:"threshold" default:"0.35"`
	BatchSize   int     `yaml:"batch_size" default:"64" validate:"gte=1"`
	Sensitivity float64 `yaml:"sensitivity" default:"95" validate:"gte=0,lte=100"`
	MinRows     int     `yaml:"min_rows" default:"30" validate:"gte=1"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

// Default returns the configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config: bad default tags: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. An empty path yields
// the defaults. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// Validate checks field ranges and the forecast window invariants.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s must satisfy %s %s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return err
	}
	return c.Forecast.FitConfig().Validate()
}

// FitConfig returns the forecasting window parameters.
func (f Forecast) FitConfig() forecast.FitConfig {
	return forecast.FitConfig{
		WindowSize:      f.WindowSize,
		SeriesLength:    f.SeriesLength,
		TrainSize:       f.TrainSize,
		Horizon:         f.Horizon,
		ConfidenceLevel: f.ConfidenceLevel,
	}
}

// RequiredRows is the number of rows a series must carry before fitting.
func (f Forecast) RequiredRows() int {
	return max(f.TrainSize, f.MinRows)
}

// DetectorConfig returns the anomaly scorer parameters.
func (a Anomaly) DetectorConfig() detectors.Config {
	return detectors.Config{
		Threshold:   a.Threshold,
		BatchSize:   a.BatchSize,
		Sensitivity: a.Sensitivity,
	}
}
