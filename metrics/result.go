// Package metrics は予測結果の評価指標を提供する。
// 分類は正解率、回帰は RMSE、クラスタリングは歪み（クラスタ内二乗和）で評価する。
package metrics

import (
	"gonum.org/v1/gonum/mat"
)

// Result は 1 モデルの評価結果。Accuracy は分類のときだけ設定される。
// Error は小さいほど良い値で、分類では 1 - Accuracy。
type Result struct {
	Metric   string   `json:"metric"`
	Accuracy *float64 `json:"accuracy,omitempty"`
	Error    float64  `json:"error"`
}

// HasAccuracy reports whether the result carries an accuracy value.
func (r Result) HasAccuracy() bool {
	return r.Accuracy != nil
}

// AccuracyValue returns the accuracy, or 0 when absent.
func (r Result) AccuracyValue() float64 {
	if r.Accuracy == nil {
		return 0
	}
	return *r.Accuracy
}

// Column は行列の先頭列をスライスとして取り出す。予測結果（n×1）の変換用
func Column(m mat.Matrix) []float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}
