package selection

import (
	"math"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// DefaultElbowThreshold is the share of the first improvement below which
// further improvement counts as negligible.
const DefaultElbowThreshold = 0.1

// CurvePoint is the clustering error measured with K clusters.
type CurvePoint struct {
	K     int     `json:"k"`
	Error float64 `json:"error"`
}

// ErrorCurve is a sequence of points in strictly ascending K.
type ErrorCurve []CurvePoint

// Errors returns the error values in curve order.
func (c ErrorCurve) Errors() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Error
	}
	return out
}

// Elbow is the point chosen on an ErrorCurve.
type Elbow struct {
	K     int     `json:"k"`
	Error float64 `json:"error"`
	// Index is the position of the point in the curve.
	Index int `json:"index"`
	// Fallback is set when no negligible improvement was found and the last
	// point was returned.
	Fallback bool `json:"fallback"`
}

// SelectK はエルボー法でクラスタ数を選ぶ。
//
// 最初の改善量 baseDelta = |e[1] - e[0]| に relativeThreshold を掛けた値を閾値とし、
// k の昇順に走査して |e[i] - e[i-1]| が閾値以下となる最初の i について、
// それ以上 k を増やしても改善が小さい点 i-1 を返す。
// 見つからなければ最後の点を Fallback として返す。
// baseDelta が 0 の場合は閾値も 0 となり、完全な平坦区間でのみ打ち切る。
//
// 例: [100, 80, 75, 74, 73.9] と 0.1 では閾値 2 となり、インデックス 2（誤差 75）を返す。
func SelectK(curve ErrorCurve, relativeThreshold float64) (Elbow, error) {
	return selectK("", curve, relativeThreshold)
}

// selectK は name を警告に付けて SelectK を実行する
func selectK(name string, curve ErrorCurve, relativeThreshold float64) (Elbow, error) {
	if len(curve) < 2 {
		return Elbow{}, errors.NewInsufficientDataError("SelectK", 2, len(curve))
	}
	if math.IsNaN(relativeThreshold) || math.IsInf(relativeThreshold, 0) || relativeThreshold < 0 {
		return Elbow{}, errors.NewValidationError("elbow_threshold", "must be a finite non-negative number", relativeThreshold)
	}
	values := curve.Errors()
	if err := errors.CheckNumericalStability("SelectK", values, 0); err != nil {
		return Elbow{}, err
	}
	for i := 1; i < len(curve); i++ {
		if curve[i].K <= curve[i-1].K {
			return Elbow{}, errors.NewValidationError("curve", "k must be strictly ascending", curve[i].K)
		}
	}

	if name == "" {
		name = "clustering"
	}
	for i := 1; i < len(values); i++ {
		if values[i] > values[i-1] {
			errors.Warn(errors.NewNonMonotonicCurveWarning(name, curve[i].K, values[i-1], values[i]))
		}
	}

	threshold := relativeThreshold * math.Abs(values[1]-values[0])
	for i := 1; i < len(values); i++ {
		if math.Abs(values[i]-values[i-1]) <= threshold {
			return Elbow{K: curve[i-1].K, Error: values[i-1], Index: i - 1}, nil
		}
	}

	last := len(curve) - 1
	return Elbow{K: curve[last].K, Error: values[last], Index: last, Fallback: true}, nil
}
