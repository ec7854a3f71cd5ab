package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// Ridge は L2 正則化付き線形回帰。
// 目的関数は ||y - Xw||² + alpha * ||w||²（切片は正則化しない）。
type Ridge struct {
	model.BaseEstimator
	Weights   *mat.VecDense
	Intercept float64
	NFeatures int

	cfg config
}

// NewRidge creates a Ridge regressor. The default alpha is 1.0.
func NewRidge(opts ...Option) *Ridge {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Ridge{cfg: cfg}
}

// Fit は閉形式解 (X^T X + alpha I) w = X^T y で学習する
func (r *Ridge) Fit(X, y mat.Matrix) error {
	if r.cfg.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.cfg.alpha)
	}
	d, err := prepare("Ridge.Fit", X, y, r.cfg.fitIntercept)
	if err != nil {
		return err
	}
	_, c := d.X.Dims()

	var A mat.Dense
	A.Mul(d.X.T(), d.X)
	for j := 0; j < c; j++ {
		A.Set(j, j, A.At(j, j)+r.cfg.alpha)
	}
	var XTy mat.VecDense
	XTy.MulVec(d.X.T(), d.y)

	w, err := solve("Ridge.Fit", &A, &XTy)
	if err != nil {
		return err
	}

	r.NFeatures = c
	r.Weights = w
	r.Intercept = d.intercept(r.Weights)
	r.SetFitted()
	return nil
}

// Predict returns X·w + b as an n×1 matrix.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.CheckFitted("Ridge", "Predict"); err != nil {
		return nil, err
	}
	return predictLinear("Ridge.Predict", X, r.Weights, r.Intercept)
}

// Coefficients returns the learned weights.
func (r *Ridge) Coefficients() []float64 {
	return vecToSlice(r.Weights)
}

// InterceptValue returns the learned intercept.
func (r *Ridge) InterceptValue() float64 {
	return r.Intercept
}

// Score returns R² on (X, y).
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) {
	return score(r, X, y)
}
