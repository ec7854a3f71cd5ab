package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/parallel"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// 並列処理の閾値（この値以下の行数では逐次処理を使用）
const parallelThreshold = 1000

// design は学習用に前処理した入力
type design struct {
	X     *mat.Dense // fitIntercept のとき列ごとに中心化済み
	y     *mat.VecDense
	xMean []float64
	yMean float64
}

// prepare は入力を検証し、必要なら X と y を中心化する。
// 中心化しておけば切片は yMean - xMean·w で復元できる。
func prepare(op string, X, y mat.Matrix, fitIntercept bool) (*design, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return nil, errors.NewValueError(op, "y is required")
	}
	ry, cy := y.Dims()
	if ry != r {
		return nil, errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector")
	}

	d := &design{
		X:     mat.DenseCopyOf(X),
		y:     mat.NewVecDense(r, nil),
		xMean: make([]float64, c),
	}
	for i := 0; i < r; i++ {
		d.y.SetVec(i, y.At(i, 0))
	}
	if !fitIntercept {
		return d, nil
	}

	for j := 0; j < c; j++ {
		d.xMean[j] = mat.Sum(d.X.ColView(j)) / float64(r)
	}
	d.yMean = mat.Sum(d.y) / float64(r)

	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := d.X.RawRowView(i)
			for j := range row {
				row[j] -= d.xMean[j]
			}
			d.y.SetVec(i, d.y.AtVec(i)-d.yMean)
		}
	})
	return d, nil
}

// intercept は中心化前の座標系での切片を返す
func (d *design) intercept(w *mat.VecDense) float64 {
	b := d.yMean
	for j, m := range d.xMean {
		b -= m * w.AtVec(j)
	}
	return b
}

// predictLinear は y = X * w + b を n×1 行列で返す
func predictLinear(op string, X mat.Matrix, w *mat.VecDense, b float64) (mat.Matrix, error) {
	r, c := X.Dims()
	if c != w.Len() {
		return nil, errors.NewDimensionError(op, w.Len(), c, 1)
	}

	var out mat.VecDense
	out.MulVec(X, w)
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, out.AtVec(i)+b)
	}
	return predictions, nil
}

func vecToSlice(v *mat.VecDense) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// solve は A w = b を解く。悪条件（mat.Condition）は有限であれば許容し、
// 特異な場合は ErrSingularMatrix を返す。
func solve(op string, A mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	var w mat.VecDense
	if err := w.SolveVec(A, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) || math.IsNaN(float64(cond)) {
			return nil, errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
		}
	}
	if err := errors.CheckNumericalStability(op, w.RawVector().Data, 0); err != nil {
		return nil, errors.NewModelError(op, "singular matrix", errors.ErrSingularMatrix)
	}
	return &w, nil
}
