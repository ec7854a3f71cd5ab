// Package naive_bayes はガウシアン・ナイーブベイズ分類器を提供する。
package naive_bayes

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// GaussianNB は特徴量がクラスごとに独立な正規分布に従うと仮定する分類器。
// 分散には varSmoothing × (全特徴量の分散の最大値) を加えて安定化する。
type GaussianNB struct {
	model.BaseEstimator

	varSmoothing float64

	classes       []float64
	classLogPrior []float64
	theta         [][]float64 // クラスごとの平均 (nClasses x nFeatures)
	variance      [][]float64 // クラスごとの分散
	epsilon       float64
	nFeatures     int
	classCount    []float64
}

// Option configures a GaussianNB.
type Option func(*GaussianNB)

// WithVarSmoothing sets the fraction of the largest feature variance
// added to every variance.
func WithVarSmoothing(v float64) Option {
	return func(nb *GaussianNB) {
		nb.varSmoothing = v
	}
}

// NewGaussianNB は新しい GaussianNB を作成する。varSmoothing の既定値は 1e-9
func NewGaussianNB(opts ...Option) *GaussianNB {
	nb := &GaussianNB{varSmoothing: 1e-9}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit はクラスごとの平均と分散を推定する
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if nb.varSmoothing < 0 {
		return errors.NewValidationError("var_smoothing", "must be non-negative", nb.varSmoothing)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("GaussianNB.Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return errors.NewValueError("GaussianNB.Fit", "y is required")
	}
	if ry, _ := y.Dims(); ry != rows {
		return errors.NewDimensionError("GaussianNB.Fit", rows, ry, 0)
	}

	labels := make([]float64, rows)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	classes := uniqueSorted(labels)
	index := make(map[float64]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}

	// 全体の分散の最大値から平滑化項を決める
	col := make([]float64, rows)
	maxVar := 0.0
	for j := 0; j < cols; j++ {
		mat.Col(col, j, X)
		_, v := stat.PopMeanVariance(col, nil)
		maxVar = math.Max(maxVar, v)
	}
	nb.epsilon = nb.varSmoothing * maxVar

	nClasses := len(classes)
	nb.theta = make([][]float64, nClasses)
	nb.variance = make([][]float64, nClasses)
	nb.classCount = make([]float64, nClasses)
	nb.classLogPrior = make([]float64, nClasses)

	members := make([][]int, nClasses)
	for i, l := range labels {
		k := index[l]
		members[k] = append(members[k], i)
	}

	values := make([]float64, 0, rows)
	for k := range classes {
		nb.theta[k] = make([]float64, cols)
		nb.variance[k] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			values = values[:0]
			for _, i := range members[k] {
				values = append(values, X.At(i, j))
			}
			mean, v := stat.PopMeanVariance(values, nil)
			nb.theta[k][j] = mean
			nb.variance[k][j] = v + nb.epsilon
		}
		nb.classCount[k] = float64(len(members[k]))
		nb.classLogPrior[k] = math.Log(nb.classCount[k] / float64(rows))
	}

	nb.classes = classes
	nb.nFeatures = cols
	nb.SetFitted()
	return nil
}

// jointLogLikelihood は log P(c) + Σ log N(x_j | θ_cj, σ²_cj) を返す
func (nb *GaussianNB) jointLogLikelihood(x []float64, dst []float64) {
	for k := range nb.classes {
		ll := nb.classLogPrior[k]
		for j, v := range x {
			variance := nb.variance[k][j]
			if variance <= 0 {
				// 定数特徴量かつ平滑化なし
				if v == nb.theta[k][j] {
					continue
				}
				ll = math.Inf(-1)
				break
			}
			d := v - nb.theta[k][j]
			ll -= 0.5 * (math.Log(2*math.Pi*variance) + d*d/variance)
		}
		dst[k] = ll
	}
}

// PredictLogProba は正規化したクラス対数事後確率を返す
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (*mat.Dense, error) {
	if err := nb.CheckFitted("GaussianNB", "PredictLogProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != nb.nFeatures {
		return nil, errors.NewDimensionError("GaussianNB.PredictLogProba", nb.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, len(nb.classes), nil)
	row := make([]float64, cols)
	jll := make([]float64, len(nb.classes))
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		nb.jointLogLikelihood(row, jll)
		norm := errors.LogSumExp(jll)
		for k, v := range jll {
			out.Set(i, k, v-norm)
		}
	}
	return out, nil
}

// PredictProba はクラス事後確率を n×nClasses 行列で返す。列は Classes() の順
func (nb *GaussianNB) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	logProba.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, logProba)
	return logProba, nil
}

// Predict は事後確率が最大のクラスラベルを n×1 行列で返す
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.CheckFitted("GaussianNB", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != nb.nFeatures {
		return nil, errors.NewDimensionError("GaussianNB.Predict", nb.nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	jll := make([]float64, len(nb.classes))
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		nb.jointLogLikelihood(row, jll)
		best := 0
		for k := 1; k < len(jll); k++ {
			if jll[k] > jll[best] {
				best = k
			}
		}
		out.Set(i, 0, nb.classes[best])
	}
	return out, nil
}

// Classes returns the sorted distinct labels seen during Fit.
func (nb *GaussianNB) Classes() []float64 {
	return append([]float64(nil), nb.classes...)
}

// ClassCount returns the number of training samples per class.
func (nb *GaussianNB) ClassCount() []float64 {
	return append([]float64(nil), nb.classCount...)
}

// Theta returns the per-class feature means.
func (nb *GaussianNB) Theta() [][]float64 {
	out := make([][]float64, len(nb.theta))
	for k, t := range nb.theta {
		out[k] = append([]float64(nil), t...)
	}
	return out
}

// Epsilon returns the absolute variance smoothing applied in the last Fit.
func (nb *GaussianNB) Epsilon() float64 {
	return nb.epsilon
}

func uniqueSorted(v []float64) []float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	out := make([]float64, 0, len(s))
	for _, x := range s {
		if len(out) == 0 || x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
