package metrics

import (
	"fmt"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/core/parallel"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// MetricDistortion はクラスタリングの評価指標名
const MetricDistortion = "distortion"

// parallelThreshold 未満の行数では逐次計算する
const parallelThreshold = 1000

// EvaluateClustering は学習済みクラスタモデルの歪みを評価する
func EvaluateClustering(m model.Clusterer, X mat.Matrix) (Result, error) {
	d, err := Distortion(m, X)
	if err != nil {
		return Result{}, errors.Wrap(err, "EvaluateClustering")
	}
	return Result{Metric: MetricDistortion, Error: d}, nil
}

// Distortion は各点と割り当てられたクラスタ中心との二乗距離の総和を返す。
// 行ごとの項は並列に計算し、行の順に加算するため結果は決定的。
func Distortion(m model.Clusterer, X mat.Matrix) (float64, error) {
	if X == nil {
		return 0, errors.NewEmptyEvaluationError("Distortion")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return 0, errors.NewEmptyEvaluationError("Distortion")
	}

	pred, err := m.Predict(X)
	if err != nil {
		return 0, errors.Wrap(err, "Distortion: predict")
	}
	assign := Column(pred)
	if len(assign) != rows {
		return 0, errors.NewLengthMismatchError("Distortion", rows, len(assign))
	}

	centers := m.ClusterCenters()
	for i, c := range assign {
		idx := int(c)
		if float64(idx) != c || idx < 0 || idx >= len(centers) {
			return 0, errors.NewValueError("Distortion",
				fmt.Sprintf("cluster index %v out of range at row %d", c, i))
		}
		if len(centers[idx]) != cols {
			return 0, errors.NewDimensionError("Distortion", cols, len(centers[idx]), 1)
		}
	}

	workers := runtime.NumCPU()
	if rows < parallelThreshold {
		workers = 1
	}
	terms := parallel.Map(rows, workers, func(i int) float64 {
		row := mat.Row(nil, i, X)
		return squaredDistance(row, centers[int(assign[i])])
	})

	var total float64
	for _, t := range terms {
		total += t
	}
	if err := errors.CheckScalar("Distortion", total, 0); err != nil {
		return 0, err
	}
	return total, nil
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
