package selection

import (
	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/metrics"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
)

// FinalModel is the winner of a selection run retrained on the whole dataset.
type FinalModel struct {
	Algorithm AlgorithmID `json:"algorithm"`
	// K is the cluster count used for clustering winners.
	K     int             `json:"k,omitempty"`
	Model model.Predictor `json:"-"`
	// TrainingResult は学習に使ったデータ自身での評価
	TrainingResult metrics.Result `json:"training_result"`
}

// FitFinal は out の勝者を ds 全体で学習し直し、学習データでの評価を添えて返す。
// クラスタリングでは選ばれた k を使う。
func FitFinal(registry *Registry, out *Outcome, ds *dataset.Dataset, logger log.Logger) (*FinalModel, error) {
	if out == nil || !out.Winner.Valid() {
		return nil, errors.NewValidationError("outcome", "no winner to fit", nil)
	}
	if ds.Len() == 0 {
		return nil, errors.NewEmptyDatasetError("FitFinal")
	}
	if logger == nil {
		logger = log.GetLoggerWithName("selection")
	}
	c := NewComparator(registry, WithComparatorLogger(logger))
	id := out.Winner
	name := id.String()
	final := &FinalModel{Algorithm: id}

	switch out.Kind {
	case Classification, Regression:
		if !ds.Labeled() {
			return nil, errors.NewValidationError("dataset", "labels are required for "+out.Kind.String(), ds.LabelName())
		}
		fitted, err := c.trainSupervised(id, ds)
		if err != nil {
			return nil, err
		}
		evaluate := metrics.EvaluateRegression
		if out.Kind == Classification {
			evaluate = metrics.EvaluateClassification
		}
		res, err := scoreSupervised(name, fitted, ds, evaluate)
		if err != nil {
			return nil, err
		}
		final.Model, final.TrainingResult = fitted, res
	case Clustering:
		trainer, ok := registry.ClusterTrainer(id)
		if !ok {
			return nil, errors.NewValidationError("algorithm", "no cluster trainer registered", name)
		}
		if out.K < 1 || out.K > ds.Len() {
			return nil, errors.NewInsufficientDataError("FitFinal", out.K, ds.Len())
		}
		fitted, err := trainClusters(name, trainer, ds, out.K, registry.Params(id))
		if err != nil {
			return nil, err
		}
		res, err := scoreClusters(name, fitted, ds, out.K)
		if err != nil {
			return nil, err
		}
		final.Model, final.K, final.TrainingResult = fitted, out.K, res
	default:
		return nil, errors.NewUnsupportedTaskKindError(out.Kind.String())
	}

	fields := []any{
		log.ModelNameKey, name,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, ds.Len(),
		log.MetricKey, final.TrainingResult.Metric,
		log.ErrorKey, final.TrainingResult.Error,
	}
	if final.TrainingResult.HasAccuracy() {
		fields = append(fields, log.AccuracyKey, final.TrainingResult.AccuracyValue())
	}
	if final.K > 0 {
		fields = append(fields, log.KKey, final.K)
	}
	logger.Info("Final model trained", fields...)
	return final, nil
}
