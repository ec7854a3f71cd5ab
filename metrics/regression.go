package metrics

import (
	"math"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// MetricRMSE は回帰の評価指標名
const MetricRMSE = "rmse"

// EvaluateRegression は回帰モデルの予測を RMSE で評価する
func EvaluateRegression(yTrue, yPred []float64) (Result, error) {
	rmse, err := RMSE(yTrue, yPred)
	if err != nil {
		return Result{}, errors.Wrap(err, "EvaluateRegression")
	}
	return Result{Metric: MetricRMSE, Error: rmse}, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}

	mse := sum / float64(len(yTrue))
	if err := errors.CheckScalar("MSE", mse, 0); err != nil {
		return 0, err
	}
	return mse, nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}

	var sum float64
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	var yMean float64
	for _, v := range yTrue {
		yMean += v
	}
	yMean /= float64(len(yTrue))

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := range yTrue {
		tss += (yTrue[i] - yMean) * (yTrue[i] - yMean)
		rss += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}

	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

func checkPair(op string, yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return errors.NewLengthMismatchError(op, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return errors.NewEmptyEvaluationError(op)
	}
	return nil
}
