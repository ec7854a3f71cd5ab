package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/metrics"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/pkg/log"
)

func quietComparator(reg *Registry, opts ...ComparatorOption) *Comparator {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewComparator(reg, append([]ComparatorOption{WithComparatorLogger(logger)}, opts...)...)
}

func classificationSets(t *testing.T) (*dataset.Dataset, *dataset.Dataset) {
	t.Helper()
	train := labeledDataset(t, [][]float64{{0}, {1}}, []float64{0, 1})
	test := labeledDataset(t, [][]float64{{1}, {0}, {1}, {1}}, []float64{1, 0, 1, 1})
	return train, test
}

func TestCompareClassifiers(t *testing.T) {
	train, test := classificationSets(t)

	tests := []struct {
		name         string
		nb, rf       []float64
		wantWinner   AlgorithmID
		wantDominant bool
	}{
		{"random forest dominates", []float64{1, 0, 0, 1}, []float64{1, 0, 1, 1}, RandomForest, true},
		{"naive bayes dominates", []float64{1, 0, 1, 1}, []float64{0, 0, 0, 1}, NaiveBayes, true},
		{"tie falls back to candidate order", []float64{1, 0, 0, 1}, []float64{0, 0, 1, 1}, NaiveBayes, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.Register(NaiveBayes, fixedTrainer(tt.nb...)))
			require.NoError(t, reg.Register(RandomForest, fixedTrainer(tt.rf...)))

			cmp, err := quietComparator(reg).CompareClassifiers(train, test)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWinner, cmp.Winner)
			assert.Equal(t, tt.wantDominant, cmp.Dominant)
			require.Len(t, cmp.Results, 2)
			assert.Equal(t, NaiveBayes, cmp.Results[0].Algorithm)
			assert.Equal(t, RandomForest, cmp.Results[1].Algorithm)
		})
	}
}

func TestCompareClassifiersReportsAccuracy(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NaiveBayes, fixedTrainer(1, 0, 0, 1)))
	require.NoError(t, reg.Register(RandomForest, fixedTrainer(1, 0, 1, 1)))

	cmp, err := quietComparator(reg).CompareClassifiers(train, test)
	require.NoError(t, err)
	nb := cmp.Results[0].Result
	require.True(t, nb.HasAccuracy())
	assert.InDelta(t, 0.75, nb.AccuracyValue(), 1e-12)
	assert.InDelta(t, 0.25, nb.Error, 1e-12)
}

func TestCompareClassifiersWinnerIndependentOfOrder(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NaiveBayes, fixedTrainer(0, 0, 0, 0)))
	require.NoError(t, reg.Register(RandomForest, fixedTrainer(1, 0, 1, 0)))

	cmp, err := quietComparator(reg,
		WithClassifiers(NaiveBayes, RandomForest),
	).CompareClassifiers(train, test)
	require.NoError(t, err)
	assert.Equal(t, RandomForest, cmp.Winner)

	cmp, err = quietComparator(reg,
		WithClassifiers(RandomForest, NaiveBayes),
	).CompareClassifiers(train, test)
	require.NoError(t, err)
	assert.Equal(t, RandomForest, cmp.Winner)
	assert.Equal(t, RandomForest, cmp.Results[0].Algorithm)
}

func TestPickClassifierFallback(t *testing.T) {
	acc := func(v float64) *float64 { return &v }
	result := func(id AlgorithmID, a, e float64) CandidateResult {
		return CandidateResult{Algorithm: id, Result: metrics.Result{Metric: metrics.MetricAccuracy, Accuracy: acc(a), Error: e}}
	}

	tests := []struct {
		name         string
		results      []CandidateResult
		want         int
		wantDominant bool
	}{
		{"single candidate", []CandidateResult{result(NaiveBayes, 0.5, 0.5)}, 0, true},
		{"higher accuracy but higher error", []CandidateResult{result(NaiveBayes, 0.8, 0.1), result(RandomForest, 0.9, 0.2)}, 1, false},
		{"accuracy tie broken by error", []CandidateResult{result(NaiveBayes, 0.9, 0.2), result(RandomForest, 0.9, 0.1)}, 1, false},
		{"full tie keeps candidate order", []CandidateResult{result(NaiveBayes, 0.9, 0.1), result(RandomForest, 0.9, 0.1)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dominant := pickClassifier(tt.results)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDominant, dominant)
		})
	}
}

func TestCompareRegressors(t *testing.T) {
	train := labeledDataset(t, [][]float64{{0}, {1}}, []float64{0, 1})
	test := labeledDataset(t, [][]float64{{1}, {2}, {3}}, []float64{1, 2, 3})

	tests := []struct {
		name              string
		lasso, lin, ridge []float64
		want              AlgorithmID
		wantUnique        bool
	}{
		{"lowest rmse wins", []float64{1, 2, 5}, []float64{1, 2, 4}, []float64{1, 2, 3}, Ridge, true},
		{"linear beats ridge on tie", []float64{1, 2, 5}, []float64{1, 2, 3}, []float64{1, 2, 3}, LinearRegression, false},
		{"lasso beats all on tie", []float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 2, 3}, Lasso, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.Register(Lasso, fixedTrainer(tt.lasso...)))
			require.NoError(t, reg.Register(LinearRegression, fixedTrainer(tt.lin...)))
			require.NoError(t, reg.Register(Ridge, fixedTrainer(tt.ridge...)))

			cmp, err := quietComparator(reg).CompareRegressors(train, test)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmp.Winner)
			assert.Equal(t, tt.wantUnique, cmp.Dominant)
			assert.Equal(t, []AlgorithmID{Lasso, LinearRegression, Ridge},
				[]AlgorithmID{cmp.Results[0].Algorithm, cmp.Results[1].Algorithm, cmp.Results[2].Algorithm})
		})
	}
}

func TestCompareRegressorsRMSE(t *testing.T) {
	train := labeledDataset(t, [][]float64{{0}}, []float64{0})
	test := labeledDataset(t, [][]float64{{1}, {2}, {3}}, []float64{1, 2, 3})
	reg := NewRegistry()
	require.NoError(t, reg.Register(Lasso, fixedTrainer(1, 2, 5)))

	cmp, err := quietComparator(reg, WithRegressors(Lasso)).CompareRegressors(train, test)
	require.NoError(t, err)
	assert.Equal(t, Lasso, cmp.Winner)
	assert.InDelta(t, 1.1547005383792515, cmp.Results[0].Result.Error, 1e-9)
	assert.False(t, cmp.Results[0].Result.HasAccuracy())
}

func TestCompareIsDeterministic(t *testing.T) {
	ds := parityDataset(t, 40)
	split, err := dataset.NewSplitter(dataset.WithSeed(5)).Split(ds, 0.8)
	require.NoError(t, err)

	reg := NewRegistry()
	require.NoError(t, reg.Register(Lasso, ruleTrainer(func(x []float64) float64 { return x[0] + 0.5 })))
	require.NoError(t, reg.Register(LinearRegression, ruleTrainer(func(x []float64) float64 { return x[0] })))
	require.NoError(t, reg.Register(Ridge, ruleTrainer(func(x []float64) float64 { return 0.5 })))

	first, err := quietComparator(reg).CompareRegressors(split.Train, split.Test)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := quietComparator(reg).CompareRegressors(split.Train, split.Test)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, LinearRegression, first.Winner)
}

func TestCompareParallelMatchesSequential(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NaiveBayes, fixedTrainer(1, 0, 0, 1)))
	require.NoError(t, reg.Register(RandomForest, fixedTrainer(1, 0, 0, 1)))

	seq, err := quietComparator(reg).CompareClassifiers(train, test)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		par, err := quietComparator(reg, WithParallel(true)).CompareClassifiers(train, test)
		require.NoError(t, err)
		assert.Equal(t, seq, par)
	}
}

func TestCompareTrainerFailure(t *testing.T) {
	train, test := classificationSets(t)
	boom := errors.New("boom")

	for _, parallel := range []bool{false, true} {
		reg := NewRegistry()
		require.NoError(t, reg.Register(NaiveBayes, fixedTrainer(1, 0, 1, 1)))
		require.NoError(t, reg.Register(RandomForest, failingTrainer(boom)))

		_, err := quietComparator(reg, WithParallel(parallel)).CompareClassifiers(train, test)
		require.Error(t, err)
		var tErr *errors.TrainerError
		require.True(t, errors.As(err, &tErr), "parallel=%v", parallel)
		assert.Equal(t, "RandomForest", tErr.Algorithm)
		assert.Equal(t, log.OperationFit, tErr.Op)
		assert.True(t, errors.Is(err, boom))
	}
}

func TestCompareParallelReportsFirstFailureInCandidateOrder(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NaiveBayes, failingTrainer(errors.New("nb"))))
	require.NoError(t, reg.Register(RandomForest, failingTrainer(errors.New("rf"))))

	for i := 0; i < 10; i++ {
		_, err := quietComparator(reg, WithParallel(true)).CompareClassifiers(train, test)
		var tErr *errors.TrainerError
		require.True(t, errors.As(err, &tErr))
		assert.Equal(t, "NaiveBayes", tErr.Algorithm)
	}
}

func TestCompareRecoversTrainerPanic(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NaiveBayes, TrainerFunc(func(*dataset.Dataset, model.Params) (model.Predictor, error) {
		panic("index out of range")
	})))
	require.NoError(t, reg.Register(RandomForest, fixedTrainer(1, 0, 1, 1)))

	_, err := quietComparator(reg).CompareClassifiers(train, test)
	var tErr *errors.TrainerError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "NaiveBayes", tErr.Algorithm)
	var pErr *errors.PanicError
	assert.True(t, errors.As(err, &pErr))
}

func TestComparePredictFailure(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NaiveBayes, ruleTrainer(func([]float64) float64 { return 1 })))
	// 予測の長さがテストセットと一致しない
	require.NoError(t, reg.Register(RandomForest, fixedTrainer(1, 0, 1)))

	_, err := quietComparator(reg).CompareClassifiers(train, test)
	var tErr *errors.TrainerError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "RandomForest", tErr.Algorithm)
	assert.Equal(t, log.OperationPredict, tErr.Op)
}

func TestCompareMissingTrainer(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	require.NoError(t, reg.Register(NaiveBayes, fixedTrainer(1, 0, 1, 1)))

	_, err := quietComparator(reg).CompareClassifiers(train, test)
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = quietComparator(reg, WithClassifiers()).CompareClassifiers(train, test)
	assert.True(t, errors.As(err, &vErr))
}

func TestCompareReceivesRegisteredParams(t *testing.T) {
	train, test := classificationSets(t)
	reg := NewRegistry()
	var got model.Params
	require.NoError(t, reg.Register(NaiveBayes, TrainerFunc(func(_ *dataset.Dataset, p model.Params) (model.Predictor, error) {
		got = p
		return fixedPredictor{1, 0, 1, 1}, nil
	})))
	reg.SetParams(NaiveBayes, model.Params{"var_smoothing": 1e-6})

	_, err := quietComparator(reg, WithClassifiers(NaiveBayes)).CompareClassifiers(train, test)
	require.NoError(t, err)
	assert.Equal(t, 1e-6, got.Float("var_smoothing", 0))
}

func TestErrorCurve(t *testing.T) {
	data := zeroDataset(t, 10)
	values := curveOf(2, 100, 80, 75, 74, 73.9)

	for _, parallel := range []bool{false, true} {
		reg := NewRegistry()
		require.NoError(t, reg.RegisterClusterer(KMeans, curveTrainer(values)))

		got, err := quietComparator(reg, WithParallel(parallel)).ErrorCurve(KMeans, data, 2, 6)
		require.NoError(t, err)
		require.Len(t, got, 5)
		for i, p := range got {
			assert.Equal(t, 2+i, p.K)
			assert.InDelta(t, values[p.K], p.Error, 1e-9)
		}
	}
}

func TestErrorCurveErrors(t *testing.T) {
	data := zeroDataset(t, 4)
	reg := NewRegistry()
	require.NoError(t, reg.RegisterClusterer(KMeans, curveTrainer(curveOf(2, 10, 5))))
	c := quietComparator(reg)

	var vErr *errors.ValidationError
	_, err := c.ErrorCurve(KMeans, data, 0, 3)
	assert.True(t, errors.As(err, &vErr))
	_, err = c.ErrorCurve(KMeans, data, 3, 2)
	assert.True(t, errors.As(err, &vErr))
	_, err = c.ErrorCurve(GaussianMixture, data, 2, 3)
	assert.True(t, errors.As(err, &vErr))

	var insufficient *errors.InsufficientDataError
	_, err = c.ErrorCurve(KMeans, data, 2, 5)
	assert.True(t, errors.As(err, &insufficient))

	// k=4 に値がないのでトレーナーが失敗する
	_, err = c.ErrorCurve(KMeans, data, 2, 4)
	var tErr *errors.TrainerError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "KMeans", tErr.Algorithm)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	var vErr *errors.ValidationError
	assert.True(t, errors.As(reg.Register(KMeans, fixedTrainer()), &vErr))
	assert.True(t, errors.As(reg.Register(Lasso, nil), &vErr))
	assert.True(t, errors.As(reg.RegisterClusterer(Lasso, curveTrainer(nil)), &vErr))

	require.NoError(t, reg.Register(Lasso, fixedTrainer()))
	require.NoError(t, reg.RegisterClusterer(GaussianMixture, curveTrainer(nil)))
	assert.Equal(t, []AlgorithmID{Lasso, GaussianMixture}, reg.Registered())

	_, ok := reg.Trainer(Ridge)
	assert.False(t, ok)
	_, ok = reg.ClusterTrainer(GaussianMixture)
	assert.True(t, ok)

	params := model.Params{"alpha": 0.5}
	reg.SetParams(Lasso, params)
	params["alpha"] = 2.0
	assert.Equal(t, 0.5, reg.Params(Lasso).Float("alpha", 0))
	assert.NotNil(t, reg.Params(Ridge))
}
