package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// Lasso は L1 正則化付き線形回帰。座標降下法で
// (1/(2n)) * ||y - Xw||² + alpha * ||w||₁ を最小化する。
type Lasso struct {
	model.BaseEstimator
	Weights   *mat.VecDense
	Intercept float64
	NFeatures int
	NIter     int // 実際に回したスイープ数

	cfg config
}

// NewLasso creates a Lasso regressor. Defaults: alpha 1.0, 1000 sweeps,
// tolerance 1e-4.
func NewLasso(opts ...Option) *Lasso {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Lasso{cfg: cfg}
}

// Fit runs cyclic coordinate descent until the largest coefficient update
// in a sweep falls below tol times the largest coefficient. Hitting the
// sweep limit emits a ConvergenceWarning and keeps the last iterate.
func (l *Lasso) Fit(X, y mat.Matrix) error {
	if l.cfg.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", l.cfg.alpha)
	}
	if l.cfg.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be positive", l.cfg.maxIter)
	}
	d, err := prepare("Lasso.Fit", X, y, l.cfg.fitIntercept)
	if err != nil {
		return err
	}
	n, c := d.X.Dims()
	nf := float64(n)

	// 列ごとの二乗ノルム
	colSq := make([]float64, c)
	for j := 0; j < c; j++ {
		col := d.X.ColView(j)
		colSq[j] = mat.Dot(col, col)
	}

	w := make([]float64, c)
	residual := mat.VecDenseCopyOf(d.y) // y - Xw (w = 0)
	threshold := l.cfg.alpha * nf

	converged := false
	iter := 0
	for iter < l.cfg.maxIter {
		iter++
		var maxDelta, maxW float64
		for j := 0; j < c; j++ {
			if colSq[j] == 0 {
				continue
			}
			col := d.X.ColView(j)
			old := w[j]
			// rho = x_j · (r + x_j * w_j)
			rho := mat.Dot(col, residual) + colSq[j]*old
			w[j] = softThreshold(rho, threshold) / colSq[j]

			if delta := w[j] - old; delta != 0 {
				residual.AddScaledVec(residual, -delta, col)
				maxDelta = math.Max(maxDelta, math.Abs(delta))
			}
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if err := errors.CheckNumericalStability("Lasso.Fit", w, iter); err != nil {
			return err
		}
		if maxW == 0 || maxDelta/maxW < l.cfg.tol {
			converged = true
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("Lasso", iter,
			"coordinate descent did not converge; consider increasing max_iter"))
	}

	l.NFeatures = c
	l.NIter = iter
	l.Weights = mat.NewVecDense(c, w)
	l.Intercept = d.intercept(l.Weights)
	l.SetFitted()
	return nil
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// Predict returns X·w + b as an n×1 matrix.
func (l *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := l.CheckFitted("Lasso", "Predict"); err != nil {
		return nil, err
	}
	return predictLinear("Lasso.Predict", X, l.Weights, l.Intercept)
}

// Coefficients returns the learned weights.
func (l *Lasso) Coefficients() []float64 {
	return vecToSlice(l.Weights)
}

// InterceptValue returns the learned intercept.
func (l *Lasso) InterceptValue() float64 {
	return l.Intercept
}

// Score returns R² on (X, y).
func (l *Lasso) Score(X, y mat.Matrix) (float64, error) {
	return score(l, X, y)
}
