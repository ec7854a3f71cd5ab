// Package linear は最小二乗法ベースの線形回帰モデル
// （LinearRegression、Ridge、Lasso）を提供する。
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/metrics"
)

// LinearRegression は通常の最小二乗法による線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator
	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
	NFeatures int           // 特徴量の数

	cfg config
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LinearRegression{cfg: cfg}
}

// Fit はモデルを訓練データで学習させる。
// 正規方程式 (X^T X) w = X^T y を LU 分解で解く。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	d, err := prepare("LinearRegression.Fit", X, y, lr.cfg.fitIntercept)
	if err != nil {
		return err
	}
	_, c := d.X.Dims()

	var XTX mat.Dense
	XTX.Mul(d.X.T(), d.X)
	var XTy mat.VecDense
	XTy.MulVec(d.X.T(), d.y)

	w, err := solve("LinearRegression.Fit", &XTX, &XTy)
	if err != nil {
		return err
	}

	lr.NFeatures = c
	lr.Weights = w
	lr.Intercept = d.intercept(lr.Weights)
	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.CheckFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	return predictLinear("LinearRegression.Predict", X, lr.Weights, lr.Intercept)
}

// Coefficients は学習された重み（係数）を返す
func (lr *LinearRegression) Coefficients() []float64 {
	return vecToSlice(lr.Weights)
}

// InterceptValue は学習された切片を返す
func (lr *LinearRegression) InterceptValue() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return score(lr, X, y)
}

func score(p model.Predictor, X, y mat.Matrix) (float64, error) {
	yPred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(metrics.Column(y), metrics.Column(yPred))
}
