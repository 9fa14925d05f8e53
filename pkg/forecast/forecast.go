// Package forecast holds the configuration, result type and errors shared by
// forecasting engines and the harnesses that drive them.
package forecast

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInsufficientData is returned when a series is shorter than the
	// configured training size.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDecomposition is returned when the numerical fit fails, for example
	// on a degenerate or ill-conditioned window.
	ErrDecomposition = errors.New("decomposition failed")
	// ErrInvalidConfig is returned when a FitConfig violates its invariants.
	ErrInvalidConfig = errors.New("invalid fit config")
)

var validate = validator.New()

// FitConfig holds the windowing parameters of a fit.
type FitConfig struct {
	// WindowSize is the embedding dimension L (length of each lagged vector).
	WindowSize int `validate:"gte=1,ltefield=SeriesLength"`
	// SeriesLength is the number N of most recent observations used to fit.
	SeriesLength int `validate:"ltefield=TrainSize"`
	// TrainSize is the minimum history T the series must carry.
	TrainSize int `validate:"gte=1"`
	// Horizon is the number of steps H to forecast.
	Horizon int `validate:"gte=1"`
	// ConfidenceLevel is the two-sided coverage c of the forecast bounds.
	ConfidenceLevel float64 `validate:"gt=0,lt=1"`
}

// DefaultFitConfig returns the daily-demand defaults.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		WindowSize:      7,
		SeriesLength:    60,
		TrainSize:       90,
		Horizon:         14,
		ConfidenceLevel: 0.95,
	}
}

// Validate checks the invariants 1 ≤ L ≤ N ≤ T, H ≥ 1 and 0 < c < 1.
func (c FitConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %s=%s", ErrInvalidConfig, fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Result is a forecast of Horizon steps with confidence bounds.
// Lower[i] ≤ Forecasted[i] ≤ Upper[i] for every i.
type Result struct {
	Forecasted []float64
	Lower      []float64
	Upper      []float64
}

// Len returns the forecast horizon.
func (r *Result) Len() int {
	return len(r.Forecasted)
}
