package metrics

import (
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// MetricAccuracy は分類の評価指標名
const MetricAccuracy = "accuracy"

// EvaluateClassification は分類モデルの予測を評価する。
// Accuracy は完全一致の割合、Error は 1 - Accuracy。
func EvaluateClassification(yTrue, yPred []float64) (Result, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return Result{}, errors.Wrap(err, "EvaluateClassification")
	}
	return Result{Metric: MetricAccuracy, Accuracy: &acc, Error: 1 - acc}, nil
}

// Accuracy は予測ラベルが正解ラベルと一致する割合を返す
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}
