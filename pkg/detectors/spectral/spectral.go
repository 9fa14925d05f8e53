// Package spectral implements spectral-residual anomaly scoring.
//
// Each chunk's log-amplitude spectrum is compared with a smoothed copy of
// itself; the difference (the spectral residual) is transformed back to the
// time domain where it highlights points that break the series' regular
// structure.
package spectral

import (
	"fmt"
	"iter"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hed1ad/gosmbml/pkg/detectors"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

const (
	defaultAveragingWindow = 3
	defaultJudgementWindow = 21

	// Amplitudes below ampFloor·max are treated as empty bins.
	ampFloor = 1e-12
	// Raw scores are scale-free ratios; a spread below this is rounding noise.
	minScoreStdDev = 1e-9
)

var _ detectors.Scorer = (*Detector)(nil)

// Detector scores series with the spectral-residual method.
type Detector struct {
	cfg             detectors.Config
	averagingWindow int
	judgementWindow int
}

// Option configures a Detector.
type Option func(*Detector)

// WithConfig replaces threshold, batch size and sensitivity at once.
func WithConfig(cfg detectors.Config) Option {
	return func(d *Detector) {
		d.cfg = cfg
	}
}

// WithThreshold sets the absolute raw-score threshold.
func WithThreshold(t float64) Option {
	return func(d *Detector) {
		d.cfg.Threshold = t
	}
}

// WithBatchSize sets the number of points emitted per chunk.
func WithBatchSize(n int) Option {
	return func(d *Detector) {
		d.cfg.BatchSize = n
	}
}

// WithSensitivity sets the sensitivity percentile.
func WithSensitivity(s float64) Option {
	return func(d *Detector) {
		d.cfg.Sensitivity = s
	}
}

// WithAveragingWindow sets the width of the moving average that produces
// the expected log-amplitude spectrum.
func WithAveragingWindow(n int) Option {
	return func(d *Detector) {
		d.averagingWindow = n
	}
}

// WithJudgementWindow sets how many trailing saliency values a point is
// compared against.
func WithJudgementWindow(n int) Option {
	return func(d *Detector) {
		d.judgementWindow = n
	}
}

// New creates a new Detector with the given options.
func New(opts ...Option) (*Detector, error) {
	d := &Detector{
		cfg:             detectors.DefaultConfig(),
		averagingWindow: defaultAveragingWindow,
		judgementWindow: defaultJudgementWindow,
	}

	for _, opt := range opts {
		opt(d)
	}

	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	if d.averagingWindow < 1 || d.judgementWindow < 1 {
		return nil, fmt.Errorf("%w: averaging and judgement windows must be positive", detectors.ErrInvalidConfig)
	}

	return d, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() detectors.Config {
	return d.cfg
}

// Score returns one record per point from index B−1 on, where B is the batch
// size capped at the series length. Points are emitted in non-overlapping
// batches of B; each batch is scored together with up to B−1 preceding
// points so that chunk edges do not distort the spectrum.
func (d *Detector) Score(series *timeseries.Series) iter.Seq[detectors.Record] {
	return func(yield func(detectors.Record) bool) {
		if series == nil || series.Len() == 0 {
			return
		}

		values := series.Values()
		n := len(values)
		b := min(d.cfg.BatchSize, n)

		for start := b - 1; start < n; start += b {
			end := min(start+b, n)
			from := max(0, start-(b-1))

			raw, magnitude, flags := d.scoreChunk(values[from:end])

			for i := start; i < end; i++ {
				j := i - from
				rec := detectors.Record{
					Timestamp: series.Points[i].Time,
					Value:     values[i],
					IsAnomaly: flags[j],
					RawScore:  raw[j],
					Magnitude: magnitude[j],
				}
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// scoreChunk returns raw scores, their z-scores and the anomaly flags.
func (d *Detector) scoreChunk(x []float64) (raw, magnitude []float64, flags []bool) {
	w := len(x)
	raw = make([]float64, w)
	magnitude = make([]float64, w)
	flags = make([]bool, w)

	if isConstant(x) {
		return raw, magnitude, flags
	}

	raw = relativeToTrailing(saliency(x, d.averagingWindow), d.judgementWindow)

	mean, std := stat.MeanStdDev(raw, nil)
	if !(std > minScoreStdDev) {
		for i, r := range raw {
			flags[i] = r > d.cfg.Threshold
		}
		return raw, magnitude, flags
	}

	bar := sensitivityBar(d.cfg.Sensitivity, w)
	for i, r := range raw {
		magnitude[i] = (r - mean) / std
		flags[i] = magnitude[i] > bar || r > d.cfg.Threshold
	}
	return raw, magnitude, flags
}

// saliency returns the time-domain magnitude of the spectral residual.
// The chunk mean is removed first and the DC bin is left out of the spectrum.
func saliency(x []float64, window int) []float64 {
	w := len(x)
	mean := stat.Mean(x, nil)

	seq := make([]complex128, w)
	for i, v := range x {
		seq[i] = complex(v-mean, 0)
	}

	fft := fourier.NewCmplxFFT(w)
	coeff := fft.Coefficients(nil, seq)

	amp := make([]float64, w)
	maxAmp := 0.0
	for k := 1; k < w; k++ {
		amp[k] = cmplx.Abs(coeff[k])
		maxAmp = math.Max(maxAmp, amp[k])
	}

	out := make([]float64, w)
	if maxAmp == 0 {
		return out
	}
	floor := maxAmp * ampFloor

	logAmp := make([]float64, w-1)
	for k := 1; k < w; k++ {
		logAmp[k-1] = math.Log(math.Max(amp[k], floor))
	}
	expected := centredAverage(logAmp, window)

	spec := make([]complex128, w)
	for k := 1; k < w; k++ {
		if amp[k] <= floor {
			continue
		}
		residual := logAmp[k-1] - expected[k-1]
		spec[k] = coeff[k] / complex(amp[k], 0) * complex(math.Exp(residual), 0)
	}

	for i, c := range fft.Sequence(nil, spec) {
		out[i] = cmplx.Abs(c)
	}
	return out
}

// centredAverage smooths x with a moving average of the given width,
// truncating the window at both ends.
func centredAverage(x []float64, width int) []float64 {
	half := width / 2
	out := make([]float64, len(x))
	for i := range x {
		lo := max(0, i-half)
		hi := min(len(x), i+width-half)
		sum := 0.0
		for _, v := range x[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// relativeToTrailing scores each value against the mean of itself and up to
// window−1 preceding values: s/mean − 1.
func relativeToTrailing(s []float64, window int) []float64 {
	out := make([]float64, len(s))
	sum := 0.0
	for i, v := range s {
		sum += v
		if i >= window {
			sum -= s[i-window]
		}
		count := min(i+1, window)
		avg := sum / float64(count)
		if avg > 0 {
			out[i] = v/avg - 1
		}
	}
	return out
}

// sensitivityBar returns the magnitude a point must exceed under the relative
// rule. Sensitivity s is the percentage chance that a chunk of w Gaussian
// magnitudes raises at least one flag, so the per-point tail probability is
// 1 − (1 − s/100)^(1/w).
func sensitivityBar(s float64, w int) float64 {
	switch {
	case s <= 0:
		return math.Inf(1)
	case s >= 100:
		return math.Inf(-1)
	}
	alpha := 1 - math.Pow(1-s/100, 1/float64(w))
	return distuv.UnitNormal.Quantile(1 - alpha)
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
