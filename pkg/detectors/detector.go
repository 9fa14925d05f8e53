// Package detectors provides unsupervised anomaly scoring for scalar series.
package detectors

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

// ErrInvalidConfig is returned when a scorer is configured outside its domain.
var ErrInvalidConfig = errors.New("invalid detector config")

// Scorer is the common interface for series anomaly scorers.
type Scorer interface {
	// Score returns a lazy, finite sequence of records for the series.
	// The sequence may be iterated more than once and yields the same
	// records each time.
	Score(series *timeseries.Series) iter.Seq[Record]
}

// Record represents the anomaly verdict for one point.
type Record struct {
	// Timestamp and Value identify the input point.
	Timestamp time.Time
	Value     float64
	// IsAnomaly indicates if either the absolute or the relative rule fired.
	IsAnomaly bool
	// RawScore is the unnormalised anomaly score.
	RawScore float64
	// Magnitude is the z-score of RawScore within its scoring chunk.
	Magnitude float64
}

// Config holds common configuration for scorers.
type Config struct {
	// Threshold is the absolute raw score above which a point is flagged.
	Threshold float64
	// BatchSize is the number of points scored per chunk.
	BatchSize int
	// Sensitivity in [0, 100]; higher values lower the relative bar.
	Sensitivity float64
}

// DefaultConfig returns sensible defaults for transaction amounts.
func DefaultConfig() Config {
	return Config{
		Threshold:   0.35,
		BatchSize:   64,
		Sensitivity: 95,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size %d must be at least 1", ErrInvalidConfig, c.BatchSize)
	case c.Sensitivity < 0 || c.Sensitivity > 100:
		return fmt.Errorf("%w: sensitivity %g must be within [0, 100]", ErrInvalidConfig, c.Sensitivity)
	}
	return nil
}
