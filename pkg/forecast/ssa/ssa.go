// Package ssa implements Singular Spectrum Analysis forecasting.
//
// A window of the series is embedded into a trajectory (Hankel) matrix whose
// leading singular subspace captures trend and seasonality. The subspace
// yields a linear recurrence that extrapolates the reconstructed series.
package ssa

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hed1ad/gosmbml/pkg/forecast"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

// SignRule fixes the sign of each eigenvector so repeated fits on identical
// input produce identical models.
type SignRule int

const (
	// SignLargestPositive makes the component with the largest absolute
	// value positive.
	SignLargestPositive SignRule = iota
	// SignFirstPositive makes the first non-zero component positive.
	SignFirstPositive
)

const (
	defaultRetention = 0.95
	// Singular values below rankTolerance*σ₁ are treated as zero.
	rankTolerance = 1e-10
	// Verticality above this leaves the recurrence ill-conditioned.
	maxVerticality = 1 - 1e-9
)

// Engine fits SSA models. It holds configuration only and is safe for
// concurrent use.
type Engine struct {
	retention float64
	signRule  SignRule
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetention sets the share of cumulative singular-value energy the
// retained subspace must exceed.
func WithRetention(r float64) Option {
	return func(e *Engine) {
		e.retention = r
	}
}

// WithSignRule sets the eigenvector sign canonicalisation.
func WithSignRule(rule SignRule) Option {
	return func(e *Engine) {
		e.signRule = rule
	}
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		retention: defaultRetention,
		signRule:  SignLargestPositive,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.retention <= 0 || e.retention > 1 {
		e.retention = defaultRetention
	}

	return e
}

// Model is a fitted SSA model. It is immutable; accessors return copies.
type Model struct {
	windowSize      int
	confidenceLevel float64

	basis            [][]float64
	singularValues   []float64
	coefficients     []float64
	reconstruction   []float64
	residualVariance float64
}

// Fit trains a model on the last cfg.SeriesLength observations of series.
func (e *Engine) Fit(series *timeseries.Series, cfg forecast.FitConfig) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := 0
	if series != nil {
		n = series.Len()
	}
	if n < cfg.TrainSize {
		return nil, fmt.Errorf("%w: have %d points, need %d", forecast.ErrInsufficientData, n, cfg.TrainSize)
	}

	return e.fit(series.Tail(cfg.SeriesLength).Values(), cfg)
}

func (e *Engine) fit(window []float64, cfg forecast.FitConfig) (*Model, error) {
	L := cfg.WindowSize
	N := len(window)

	if L < 2 {
		return nil, fmt.Errorf("%w: window size %d admits no recurrence", forecast.ErrDecomposition, L)
	}
	for i, v := range window {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value at offset %d", forecast.ErrDecomposition, i)
		}
	}

	// Column j is the lagged vector window[j : j+L].
	K := N - L + 1
	traj := mat.NewDense(L, K, nil)
	for j := 0; j < K; j++ {
		for i := 0; i < L; i++ {
			traj.Set(i, j, window[i+j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(traj, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD did not converge", forecast.ErrDecomposition)
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return nil, fmt.Errorf("%w: window carries no energy", forecast.ErrDecomposition)
	}

	var u mat.Dense
	svd.UTo(&u)

	k := e.selectRank(values, L)

	basis := make([][]float64, k)
	for i := 0; i < k; i++ {
		vec := mat.Col(nil, i, &u)
		canonicalize(vec, e.signRule)
		basis[i] = vec
	}

	coeffs, err := recurrence(basis, L)
	if err != nil {
		return nil, err
	}

	recon := reconstruct(traj, basis, L, K)

	residuals := make([]float64, N)
	for i := range window {
		residuals[i] = window[i] - recon[i]
	}

	return &Model{
		windowSize:       L,
		confidenceLevel:  cfg.ConfidenceLevel,
		basis:            basis,
		singularValues:   append([]float64(nil), values[:k]...),
		coefficients:     coeffs,
		reconstruction:   recon,
		residualVariance: stat.Variance(residuals, nil),
	}, nil
}

// selectRank returns the smallest k whose leading singular values exceed the
// retention share of their total, bounded by 1 ≤ k ≤ min(L−1, rank).
func (e *Engine) selectRank(values []float64, L int) int {
	rank := 0
	total := 0.0
	for _, v := range values {
		if v <= values[0]*rankTolerance {
			break
		}
		rank++
		total += v
	}

	k := rank
	cum := 0.0
	for i := 0; i < rank; i++ {
		cum += values[i]
		if cum >= e.retention*total {
			k = i + 1
			break
		}
	}

	if k > L-1 {
		k = L - 1
	}
	if k < 1 {
		k = 1
	}
	return k
}

// recurrence derives the minimum-norm linear recurrence satisfied by the
// subspace: y[t] = Σ a[j]·y[t−L+1+j], oldest lag first.
func recurrence(basis [][]float64, L int) ([]float64, error) {
	verticality := 0.0
	for _, vec := range basis {
		pi := vec[L-1]
		verticality += pi * pi
	}
	if verticality >= maxVerticality {
		return nil, fmt.Errorf("%w: verticality %.6f leaves no recurrence", forecast.ErrDecomposition, verticality)
	}

	coeffs := make([]float64, L-1)
	for _, vec := range basis {
		pi := vec[L-1]
		for j := 0; j < L-1; j++ {
			coeffs[j] += pi * vec[j]
		}
	}
	for j := range coeffs {
		coeffs[j] /= 1 - verticality
	}
	return coeffs, nil
}

// reconstruct projects the trajectory onto the subspace and averages its
// anti-diagonals back into a series of length L+K−1.
func reconstruct(traj *mat.Dense, basis [][]float64, L, K int) []float64 {
	proj := mat.NewDense(L, L, nil)
	for _, vec := range basis {
		u := mat.NewVecDense(L, vec)
		proj.RankOne(proj, 1, u, u)
	}

	var approx mat.Dense
	approx.Mul(proj, traj)

	N := L + K - 1
	sums := make([]float64, N)
	counts := make([]int, N)
	for i := 0; i < L; i++ {
		for j := 0; j < K; j++ {
			sums[i+j] += approx.At(i, j)
			counts[i+j]++
		}
	}
	for t := range sums {
		sums[t] /= float64(counts[t])
	}
	return sums
}

// canonicalize flips vec in place according to rule.
func canonicalize(vec []float64, rule SignRule) {
	pivot := 0
	switch rule {
	case SignFirstPositive:
		for i, v := range vec {
			if v != 0 {
				pivot = i
				break
			}
		}
	default:
		for i, v := range vec {
			if math.Abs(v) > math.Abs(vec[pivot]) {
				pivot = i
			}
		}
	}

	if vec[pivot] < 0 {
		for i := range vec {
			vec[i] = -vec[i]
		}
	}
}

// Predict extrapolates the model h steps forward.
func (e *Engine) Predict(model *Model, h int) (*forecast.Result, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", forecast.ErrInvalidConfig)
	}
	return model.Predict(h)
}

// Forecast fits the series and predicts cfg.Horizon steps.
func (e *Engine) Forecast(series *timeseries.Series, cfg forecast.FitConfig) (*forecast.Result, error) {
	model, err := e.Fit(series, cfg)
	if err != nil {
		return nil, err
	}
	return model.Predict(cfg.Horizon)
}

// Predict applies the recurrence h times, seeded with the last L−1
// reconstructed values. The bound half-width at step i is z(c)·√(σ²·i).
func (m *Model) Predict(h int) (*forecast.Result, error) {
	if h < 1 {
		return nil, fmt.Errorf("%w: horizon %d", forecast.ErrInvalidConfig, h)
	}

	lags := m.windowSize - 1
	buf := make([]float64, 0, lags+h)
	buf = append(buf, m.reconstruction[len(m.reconstruction)-lags:]...)

	z := distuv.UnitNormal.Quantile((1 + m.confidenceLevel) / 2)

	res := &forecast.Result{
		Forecasted: make([]float64, h),
		Lower:      make([]float64, h),
		Upper:      make([]float64, h),
	}

	for i := 0; i < h; i++ {
		history := buf[len(buf)-lags:]
		next := 0.0
		for j, a := range m.coefficients {
			next += a * history[j]
		}
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return nil, fmt.Errorf("%w: recurrence diverged at step %d", forecast.ErrDecomposition, i+1)
		}
		buf = append(buf, next)

		half := z * math.Sqrt(m.residualVariance*float64(i+1))
		res.Forecasted[i] = next
		res.Lower[i] = next - half
		res.Upper[i] = next + half
	}

	return res, nil
}

// WindowSize returns the embedding dimension L.
func (m *Model) WindowSize() int {
	return m.windowSize
}

// Rank returns the number of retained components.
func (m *Model) Rank() int {
	return len(m.basis)
}

// Basis returns the retained eigenvectors, each of length L.
func (m *Model) Basis() [][]float64 {
	out := make([][]float64, len(m.basis))
	for i, vec := range m.basis {
		out[i] = append([]float64(nil), vec...)
	}
	return out
}

// SingularValues returns the singular values of the retained components.
func (m *Model) SingularValues() []float64 {
	return append([]float64(nil), m.singularValues...)
}

// Coefficients returns the recurrence coefficients, oldest lag first.
func (m *Model) Coefficients() []float64 {
	return append([]float64(nil), m.coefficients...)
}

// Reconstruction returns the fitted window projected onto the subspace.
func (m *Model) Reconstruction() []float64 {
	return append([]float64(nil), m.reconstruction...)
}

// ResidualVariance returns the in-sample residual variance.
func (m *Model) ResidualVariance() float64 {
	return m.residualVariance
}
