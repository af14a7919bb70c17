package mgd

import (
	"fmt"
	"math"

	"gridwatch/domain/core"
	"gridwatch/domain/features"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Options tunes model behavior beyond the plain empirical-covariance fit.
type Options struct {
	// Ridge, when > 0, is added to the covariance diagonal before inversion.
	// This is the documented opt-in escape hatch for collinear features or
	// D > N batches; the default 0 preserves fail-fast behavior on a
	// singular covariance.
	Ridge float64

	// Workers bounds row-level parallelism in ScoreSamples. Values <= 1
	// score sequentially. Each row's Mahalanobis distance is independent,
	// so output order is preserved regardless.
	Workers int
}

// Model fits a multivariate Gaussian over standardized features and scores
// rows by Mahalanobis distance from the fitted center.
//
// Lifecycle: zero value is unfitted; a successful Fit makes the state
// immutable and safe for concurrent ScoreSamples/FeatureImportance calls.
// Concurrent Fit calls on the same instance are not safe; callers hold the
// single-writer role.
type Model struct {
	opts Options

	columns     []string
	imputeMeans []float64 // fit-time per-column means, reused at score time
	scaler      StandardScaler
	mean        []float64 // center in standardized space
	covDiag     []float64
	precision   *mat.Dense
	fitted      bool
}

// New creates an unfitted model with default options.
func New() *Model {
	return &Model{}
}

// NewWithOptions creates an unfitted model with explicit options.
func NewWithOptions(opts Options) *Model {
	return &Model{opts: opts}
}

// Fitted reports whether a successful Fit has completed.
func (m *Model) Fitted() bool {
	return m.fitted
}

// Columns returns the fit-time feature order, nil when unfitted.
func (m *Model) Columns() []string {
	return m.columns
}

// Fit learns standardization parameters, the empirical covariance of the
// standardized data and its inverse. A failed fit leaves the model unfitted.
func (m *Model) Fit(x *features.Matrix) error {
	m.fitted = false

	if x == nil || x.NumRows() == 0 {
		return fmt.Errorf("%w: cannot fit on empty feature matrix", core.ErrInsufficientData)
	}

	imputeMeans, err := x.ColumnMeans()
	if err != nil {
		return err
	}
	filled, err := x.Impute(imputeMeans)
	if err != nil {
		return err
	}

	n := filled.NumRows()
	d := filled.NumCols()

	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = filled.Row(i)
	}

	scaled := m.scaler.FitTransform(rows, d)

	// Center in standardized space. Analytically zero after standardization,
	// but stored from the data so scoring uses exactly what was fitted.
	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += scaled[i][j]
		}
		mean[j] = sum / float64(n)
	}

	// Empirical covariance (1/N normalization) of the centered data.
	centered := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			centered.Set(i, j, scaled[i][j]-mean[j])
		}
	}
	cov := mat.NewDense(d, d, nil)
	cov.Mul(centered.T(), centered)
	cov.Scale(1/float64(n), cov)

	if m.opts.Ridge > 0 {
		for j := 0; j < d; j++ {
			cov.Set(j, j, cov.At(j, j)+m.opts.Ridge)
		}
	}

	covDiag := make([]float64, d)
	for j := 0; j < d; j++ {
		covDiag[j] = cov.At(j, j)
	}

	precision := mat.NewDense(d, d, nil)
	if err := precision.Inverse(cov); err != nil {
		return fmt.Errorf("%w: %v (collinear features or more features than rows; set Ridge to regularize)",
			core.ErrSingularCovariance, err)
	}

	m.columns = append([]string(nil), x.Columns()...)
	m.imputeMeans = imputeMeans
	m.mean = mean
	m.covDiag = covDiag
	m.precision = precision
	m.fitted = true
	return nil
}

// ScoreSamples computes one Mahalanobis distance per input row, in input
// order. Missing cells are imputed with the fit-time column means, and the
// stored scaler is applied unchanged. Column count and order must match fit
// time exactly.
func (m *Model) ScoreSamples(x *features.Matrix) ([]float64, error) {
	if !m.fitted {
		return nil, core.ErrNotFitted
	}
	if x.NumCols() != len(m.columns) {
		return nil, core.NewDimensionMismatchError(len(m.columns), x.NumCols())
	}
	for j, name := range x.Columns() {
		if name != m.columns[j] {
			return nil, fmt.Errorf("%w: column %d is %q, fitted with %q",
				core.ErrDimensionMismatch, j, name, m.columns[j])
		}
	}

	filled, err := x.Impute(m.imputeMeans)
	if err != nil {
		return nil, err
	}

	n := filled.NumRows()
	d := filled.NumCols()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = filled.Row(i)
	}
	scaled, err := m.scaler.Transform(rows, d)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, n)
	if m.opts.Workers > 1 && n > 1 {
		var g errgroup.Group
		g.SetLimit(m.opts.Workers)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				scores[i] = m.mahalanobis(scaled[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return scores, nil
	}

	for i := 0; i < n; i++ {
		scores[i] = m.mahalanobis(scaled[i])
	}
	return scores, nil
}

// mahalanobis computes sqrt((x-mu)^T * Sigma^-1 * (x-mu)) for one
// standardized row. Tiny negative quadratic forms from floating error are
// clamped to zero.
func (m *Model) mahalanobis(row []float64) float64 {
	d := len(m.mean)
	delta := mat.NewVecDense(d, nil)
	for j := 0; j < d; j++ {
		delta.SetVec(j, row[j]-m.mean[j])
	}

	tmp := mat.NewVecDense(d, nil)
	tmp.MulVec(m.precision, delta)
	quad := mat.Dot(delta, tmp)
	if quad < 0 {
		quad = 0
	}
	return math.Sqrt(quad)
}

// Predict scores the rows and flags those strictly above the threshold.
// Scores are returned alongside the decision so callers keep the continuous
// ranking.
func (m *Model) Predict(x *features.Matrix, threshold float64) ([]bool, []float64, error) {
	scores, err := m.ScoreSamples(x)
	if err != nil {
		return nil, nil, err
	}
	mask := make([]bool, len(scores))
	for i, s := range scores {
		mask[i] = s > threshold
	}
	return mask, scores, nil
}

// FeatureImportance returns the diagonal of the fitted covariance, one value
// per feature in fit-time order. This is spread in standardized space, not
// causal contribution: cross-feature covariance is ignored entirely.
func (m *Model) FeatureImportance() ([]float64, error) {
	if !m.fitted {
		return nil, core.ErrNotFitted
	}
	out := make([]float64, len(m.covDiag))
	copy(out, m.covDiag)
	return out, nil
}
