// Package ensemble は決定木のアンサンブル（ランダムフォレスト）を提供する。
package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/sklearn/tree"
)

// 特徴量サブセット戦略
const (
	FeatureSubsetAuto     = "auto"
	FeatureSubsetAll      = "all"
	FeatureSubsetSqrt     = "sqrt"
	FeatureSubsetLog2     = "log2"
	FeatureSubsetOneThird = "onethird"
)

// RandomForestClassifier はブートストラップ標本で学習した決定木の
// クラス確率を平均して予測する分類器
type RandomForestClassifier struct {
	model.BaseEstimator

	numTrees              int
	maxDepth              int
	maxBins               int
	criterion             string
	featureSubsetStrategy string
	bootstrap             bool
	randomState           int64
	nJobs                 int

	trees     []*tree.DecisionTreeClassifier
	classes   []float64
	nFeatures int
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNumTrees sets the number of trees.
func WithNumTrees(n int) Option {
	return func(rf *RandomForestClassifier) { rf.numTrees = n }
}

// WithMaxDepth sets the depth limit of every tree. 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = d }
}

// WithMaxBins sets the per-feature split candidate limit of every tree.
func WithMaxBins(b int) Option {
	return func(rf *RandomForestClassifier) { rf.maxBins = b }
}

// WithCriterion sets the impurity measure ("gini" or "entropy").
func WithCriterion(c string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = c }
}

// WithFeatureSubsetStrategy sets how many features each split considers:
// "auto", "all", "sqrt", "log2" or "onethird".
func WithFeatureSubsetStrategy(s string) Option {
	return func(rf *RandomForestClassifier) { rf.featureSubsetStrategy = s }
}

// WithBootstrap toggles bootstrap sampling of the training rows.
func WithBootstrap(b bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = b }
}

// WithRandomState sets the base seed. Tree i uses seed+i.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs limits how many trees are grown concurrently. 0 means no limit.
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// NewRandomForestClassifier は新しいランダムフォレスト分類器を作成する。
// 既定値は 10 本、深さ 4、maxBins 32、gini、"auto"。
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		numTrees:              10,
		maxDepth:              4,
		maxBins:               32,
		criterion:             tree.CriterionGini,
		featureSubsetStrategy: FeatureSubsetAuto,
		bootstrap:             true,
		randomState:           42,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// maxFeatures は戦略から各分割で見る特徴量数を決める。
// "auto" は木が 1 本なら全特徴量、複数なら sqrt。
func (rf *RandomForestClassifier) maxFeatures(nFeatures int) (int, error) {
	n := float64(nFeatures)
	var k int
	switch rf.featureSubsetStrategy {
	case FeatureSubsetAll:
		k = nFeatures
	case FeatureSubsetAuto:
		if rf.numTrees == 1 {
			k = nFeatures
		} else {
			k = int(math.Ceil(math.Sqrt(n)))
		}
	case FeatureSubsetSqrt:
		k = int(math.Ceil(math.Sqrt(n)))
	case FeatureSubsetLog2:
		k = int(math.Ceil(math.Log2(n)))
	case FeatureSubsetOneThird:
		k = int(math.Ceil(n / 3))
	default:
		return 0, errors.NewValidationError("feature_subset_strategy", "unknown strategy", rf.featureSubsetStrategy)
	}
	return min(max(k, 1), nFeatures), nil
}

// Fit は各木を独立したシードで並列に学習する。結果は木の順序で保持される
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if rf.numTrees < 1 {
		return errors.NewValidationError("num_trees", "must be positive", rf.numTrees)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return errors.NewValueError("RandomForestClassifier.Fit", "y is required")
	}
	if ry, _ := y.Dims(); ry != rows {
		return errors.NewDimensionError("RandomForestClassifier.Fit", rows, ry, 0)
	}
	k, err := rf.maxFeatures(cols)
	if err != nil {
		return err
	}

	Xd := mat.DenseCopyOf(X)
	labels := make([]float64, rows)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.numTrees)
	var g errgroup.Group
	if rf.nJobs > 0 {
		g.SetLimit(rf.nJobs)
	}
	for t := range trees {
		g.Go(func() error {
			seed := rf.randomState + int64(t)
			Xt, yt := Xd, mat.NewDense(rows, 1, labels)
			if rf.bootstrap {
				Xt, yt = bootstrapSample(Xd, labels, seed)
			}
			dt := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.criterion),
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMaxBins(rf.maxBins),
				tree.WithMaxFeatures(k),
				tree.WithRandomState(seed),
			)
			if err := dt.Fit(Xt, yt); err != nil {
				return errors.Wrapf(err, "tree %d", t)
			}
			trees[t] = dt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.trees = trees
	rf.classes = uniqueSorted(labels)
	rf.nFeatures = cols
	rf.SetFitted()
	return nil
}

func bootstrapSample(X *mat.Dense, labels []float64, seed int64) (*mat.Dense, *mat.Dense) {
	rows, cols := X.Dims()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	Xs := mat.NewDense(rows, cols, nil)
	ys := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		idx := rng.IntN(rows)
		Xs.SetRow(i, X.RawRowView(idx))
		ys.Set(i, 0, labels[idx])
	}
	return Xs, ys
}

// PredictProba は全ての木のクラス確率の平均を返す。列は Classes() の順
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := rf.CheckFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures, cols, 1)
	}

	index := make(map[float64]int, len(rf.classes))
	for k, c := range rf.classes {
		index[c] = k
	}

	out := mat.NewDense(rows, len(rf.classes), nil)
	for _, dt := range rf.trees {
		proba, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		// ブートストラップ標本に現れなかったクラスがあるので列を対応づける
		for j, c := range dt.Classes() {
			k := index[c]
			for i := 0; i < rows; i++ {
				out.Set(i, k, out.At(i, k)+proba.At(i, j))
			}
		}
	}
	out.Scale(1/float64(len(rf.trees)), out)
	return out, nil
}

// Predict は平均確率が最大のクラスを n×1 行列で返す。同点なら小さいラベル
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		row := proba.RawRowView(i)
		best := 0
		for k := 1; k < len(row); k++ {
			if row[k] > row[best] {
				best = k
			}
		}
		out.Set(i, 0, rf.classes[best])
	}
	return out, nil
}

// Classes returns the sorted distinct labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes...)
}

// NumTrees returns the number of fitted trees.
func (rf *RandomForestClassifier) NumTrees() int {
	return len(rf.trees)
}

// FeatureImportances は木ごとの重要度の平均を返す
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	out := make([]float64, rf.nFeatures)
	if len(rf.trees) == 0 {
		return out
	}
	for _, dt := range rf.trees {
		for j, v := range dt.GetFeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rf.trees))
	}
	return out
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
