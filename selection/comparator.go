package selection

import (
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/metrics"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
)

// CandidateResult is the held-out evaluation of one candidate.
type CandidateResult struct {
	Algorithm AlgorithmID    `json:"algorithm"`
	Result    metrics.Result `json:"result"`
	// K is the selected cluster count (clustering only).
	K int `json:"k,omitempty"`
}

// Comparison is the outcome of one comparison step.
type Comparison struct {
	Kind   TaskKind
	Winner AlgorithmID
	// Results holds one entry per candidate in candidate order.
	Results []CandidateResult
	// Dominant is set when the classification winner strictly beat every
	// other candidate on both accuracy and error, or when a regression or
	// clustering winner had no tie.
	Dominant bool
}

// Comparator trains every candidate family on a training set, evaluates it
// on a held-out set and picks the winner.
type Comparator struct {
	registry    *Registry
	classifiers []AlgorithmID
	regressors  []AlgorithmID
	parallel    bool
	logger      log.Logger
}

// ComparatorOption configures a Comparator.
type ComparatorOption func(*Comparator)

// WithClassifiers sets the classification candidates in priority order.
func WithClassifiers(ids ...AlgorithmID) ComparatorOption {
	return func(c *Comparator) {
		c.classifiers = append([]AlgorithmID(nil), ids...)
	}
}

// WithRegressors sets the regression candidates in priority order.
func WithRegressors(ids ...AlgorithmID) ComparatorOption {
	return func(c *Comparator) {
		c.regressors = append([]AlgorithmID(nil), ids...)
	}
}

// WithParallel evaluates candidates (and curve points) concurrently.
func WithParallel(parallel bool) ComparatorOption {
	return func(c *Comparator) {
		c.parallel = parallel
	}
}

// WithComparatorLogger sets the logger.
func WithComparatorLogger(logger log.Logger) ComparatorOption {
	return func(c *Comparator) {
		c.logger = logger
	}
}

// NewComparator creates a comparator over the trainers in registry.
func NewComparator(registry *Registry, opts ...ComparatorOption) *Comparator {
	c := &Comparator{
		registry:    registry,
		classifiers: DefaultCandidates(Classification),
		regressors:  DefaultCandidates(Regression),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("selection")
	}
	return c
}

// CompareClassifiers は分類候補を train で学習し test の正解率で比較する。
//
// 他の全候補より正解率が厳密に高く、かつ誤差が厳密に低い候補があればそれが勝者。
// そのような候補がない場合は、正解率が最大、次に誤差が最小、最後に候補順で決める。
func (c *Comparator) CompareClassifiers(train, test *dataset.Dataset) (*Comparison, error) {
	results, err := c.run(c.classifiers, func(id AlgorithmID) (metrics.Result, error) {
		return c.evaluateSupervised(id, train, test, metrics.EvaluateClassification)
	})
	if err != nil {
		return nil, err
	}
	winner, dominant := pickClassifier(results)
	c.logWinner(Classification, results[winner])
	return &Comparison{
		Kind:     Classification,
		Winner:   results[winner].Algorithm,
		Results:  results,
		Dominant: dominant,
	}, nil
}

// CompareRegressors は回帰候補を test の RMSE で比較する。
// RMSE が同じ場合は候補順（既定では Lasso > LinearRegression > Ridge）で決める
func (c *Comparator) CompareRegressors(train, test *dataset.Dataset) (*Comparison, error) {
	results, err := c.run(c.regressors, func(id AlgorithmID) (metrics.Result, error) {
		return c.evaluateSupervised(id, train, test, metrics.EvaluateRegression)
	})
	if err != nil {
		return nil, err
	}
	winner, unique := pickLowestError(results)
	c.logWinner(Regression, results[winner])
	return &Comparison{
		Kind:     Regression,
		Winner:   results[winner].Algorithm,
		Results:  results,
		Dominant: unique,
	}, nil
}

// ErrorCurve trains the clustering family id on data for every k in
// [kMin, kMax] and returns the distortion per k in ascending k.
func (c *Comparator) ErrorCurve(id AlgorithmID, data *dataset.Dataset, kMin, kMax int) (ErrorCurve, error) {
	if kMin < 1 {
		return nil, errors.NewValidationError("k_min", "must be at least 1", kMin)
	}
	if kMax < kMin {
		return nil, errors.NewValidationError("k_max", "must not be below k_min", kMax)
	}
	if n := data.Len(); n < kMax {
		return nil, errors.NewInsufficientDataError("ErrorCurve", kMax, n)
	}
	trainer, ok := c.registry.ClusterTrainer(id)
	if !ok {
		return nil, errors.NewValidationError("algorithm", "no clustering trainer registered", id.String())
	}
	params := c.registry.Params(id)

	curve := make(ErrorCurve, kMax-kMin+1)
	err := c.forEach(len(curve), func(i int) error {
		k := kMin + i
		res, err := c.evaluateClusters(id, trainer, data, k, params)
		if err != nil {
			return err
		}
		curve[i] = CurvePoint{K: k, Error: res.Error}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return curve, nil
}

// run は候補ごとに fn を実行し、結果を候補順の固定スロットに格納する
func (c *Comparator) run(ids []AlgorithmID, fn func(AlgorithmID) (metrics.Result, error)) ([]CandidateResult, error) {
	if len(ids) == 0 {
		return nil, errors.NewValidationError("candidates", "at least one candidate is required", 0)
	}
	results := make([]CandidateResult, len(ids))
	err := c.forEach(len(ids), func(i int) error {
		res, err := fn(ids[i])
		results[i] = CandidateResult{Algorithm: ids[i], Result: res}
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// forEach は fn(0..n-1) を実行する。並列実行でも完了順に依存しないよう、
// エラーはスロットに集めてインデックス順で最初のものを返す。
// 逐次実行では最初のエラーで打ち切る
func (c *Comparator) forEach(n int, fn func(i int) error) error {
	errs := make([]error, n)
	if c.parallel {
		var g errgroup.Group
		for i := range n {
			g.Go(func() error {
				errs[i] = fn(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range n {
			if errs[i] = fn(i); errs[i] != nil {
				break
			}
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type evalFunc func(yTrue, yPred []float64) (metrics.Result, error)

func (c *Comparator) evaluateSupervised(id AlgorithmID, train, test *dataset.Dataset, evaluate evalFunc) (metrics.Result, error) {
	name := id.String()
	fitted, err := c.trainSupervised(id, train)
	if err != nil {
		return metrics.Result{}, err
	}
	res, err := scoreSupervised(name, fitted, test, evaluate)
	if err != nil {
		return metrics.Result{}, err
	}
	c.logger.Debug("Candidate evaluated",
		log.ModelNameKey, name,
		log.OperationKey, log.OperationEvaluate,
		log.TrainSamplesKey, train.Len(),
		log.TestSamplesKey, test.Len(),
		log.MetricKey, res.Metric,
		log.ErrorKey, res.Error,
	)
	return res, nil
}

// trainSupervised は登録済みの trainer で id を学習する。panic も TrainerError になる
func (c *Comparator) trainSupervised(id AlgorithmID, train *dataset.Dataset) (model.Predictor, error) {
	trainer, ok := c.registry.Trainer(id)
	if !ok {
		return nil, errors.NewValidationError("algorithm", "no trainer registered", id.String())
	}
	params := c.registry.Params(id)
	name := id.String()

	var fitted model.Predictor
	err := errors.SafeExecute("train "+name, func() error {
		var err error
		fitted, err = trainer.Train(train, params)
		return err
	})
	if err == nil && fitted == nil {
		err = errors.New("trainer returned no model")
	}
	if err != nil {
		return nil, errors.NewTrainerError(name, log.OperationFit, err)
	}
	return fitted, nil
}

func scoreSupervised(name string, fitted model.Predictor, test *dataset.Dataset, evaluate evalFunc) (metrics.Result, error) {
	var pred []float64
	err := errors.SafeExecute("predict "+name, func() error {
		out, err := fitted.Predict(test.X())
		pred = metrics.Column(out)
		return err
	})
	if err != nil {
		return metrics.Result{}, errors.NewTrainerError(name, log.OperationPredict, err)
	}

	res, err := evaluate(test.Labels(), pred)
	if err != nil {
		return metrics.Result{}, errors.Wrapf(err, "evaluate %s", name)
	}
	return res, nil
}

func (c *Comparator) evaluateClusters(id AlgorithmID, trainer ClusterTrainer, data *dataset.Dataset, k int, params model.Params) (metrics.Result, error) {
	name := id.String()
	fitted, err := trainClusters(name, trainer, data, k, params)
	if err != nil {
		return metrics.Result{}, err
	}
	res, err := scoreClusters(name, fitted, data, k)
	if err != nil {
		return metrics.Result{}, err
	}
	c.logger.Debug("Curve point evaluated",
		log.ModelNameKey, name,
		log.KKey, k,
		log.ErrorKey, res.Error,
	)
	return res, nil
}

func trainClusters(name string, trainer ClusterTrainer, data *dataset.Dataset, k int, params model.Params) (model.Clusterer, error) {
	var fitted model.Clusterer
	err := errors.SafeExecute("train "+name, func() error {
		var err error
		fitted, err = trainer.TrainClusters(data, k, params)
		return err
	})
	if err == nil && fitted == nil {
		err = errors.New("trainer returned no model")
	}
	if err != nil {
		return nil, errors.NewTrainerError(name, log.OperationFit, errors.Wrapf(err, "k=%d", k))
	}
	return fitted, nil
}

func scoreClusters(name string, fitted model.Clusterer, data *dataset.Dataset, k int) (metrics.Result, error) {
	var res metrics.Result
	err := errors.SafeExecute("evaluate "+name, func() error {
		var err error
		res, err = metrics.EvaluateClustering(fitted, data.X())
		return err
	})
	if err != nil {
		return metrics.Result{}, errors.NewTrainerError(name, log.OperationEvaluate, errors.Wrapf(err, "k=%d", k))
	}
	return res, nil
}

func (c *Comparator) logWinner(kind TaskKind, r CandidateResult) {
	fields := []any{
		log.TaskKindKey, kind.String(),
		log.WinnerKey, r.Algorithm.String(),
		log.ErrorKey, r.Result.Error,
	}
	if r.Result.HasAccuracy() {
		fields = append(fields, log.AccuracyKey, r.Result.AccuracyValue())
	}
	c.logger.Info("Comparison finished", fields...)
}

// pickClassifier は勝者のインデックスと、それが両軸で厳密に支配したかを返す
func pickClassifier(results []CandidateResult) (int, bool) {
	for i, a := range results {
		dominant := true
		for j, b := range results {
			if i == j {
				continue
			}
			if !(a.Result.AccuracyValue() > b.Result.AccuracyValue() && a.Result.Error < b.Result.Error) {
				dominant = false
				break
			}
		}
		if dominant {
			return i, true
		}
	}

	best := 0
	for i := 1; i < len(results); i++ {
		a, b := results[i].Result, results[best].Result
		switch {
		case a.AccuracyValue() > b.AccuracyValue():
			best = i
		case a.AccuracyValue() == b.AccuracyValue() && a.Error < b.Error:
			best = i
		}
	}
	return best, false
}

// pickLowestError は誤差最小のインデックスと、それが唯一の最小値かを返す。
// 同点は先の候補を優先する
func pickLowestError(results []CandidateResult) (int, bool) {
	best, unique := 0, true
	for i := 1; i < len(results); i++ {
		switch e := results[i].Result.Error; {
		case e < results[best].Result.Error:
			best, unique = i, true
		case e == results[best].Result.Error:
			unique = false
		}
	}
	return best, unique
}
