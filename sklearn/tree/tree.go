// Package tree は CART 方式の決定木分類器を提供する。
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// 不純度の指標
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// DecisionTreeClassifier は二分木による分類器。
// maxBins > 0 のとき、各特徴量の分割候補は学習データの分位点
// （最大 maxBins-1 個）に限定される。
type DecisionTreeClassifier struct {
	model.BaseEstimator

	criterion       string
	maxDepth        int // 0 は無制限
	minSamplesSplit int
	minSamplesLeaf  int
	maxBins         int // 0 は全ての境界を候補にする
	maxFeatures     int // 0 は全特徴量
	randomState     int64

	root               *node
	classes            []float64
	nFeatures          int
	featureImportances []float64
	depth              int
	nLeaves            int
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	proba     []float64 // 葉のときのクラス確率
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity measure ("gini" or "entropy").
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the tree depth. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxBins limits split candidates per feature to maxBins-1 quantiles.
func WithMaxBins(bins int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxBins = bins
	}
}

// WithMaxFeatures sets how many randomly chosen features each node
// considers. 0 means all features.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState sets the seed for feature subsampling.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// NewDecisionTreeClassifier は新しい決定木分類器を作成する
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_bins":          dt.maxBins,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams updates hyperparameters. Unknown keys are ignored.
func (dt *DecisionTreeClassifier) SetParams(params model.Params) error {
	dt.criterion = params.String("criterion", dt.criterion)
	dt.maxDepth = params.Int("max_depth", dt.maxDepth)
	dt.minSamplesSplit = params.Int("min_samples_split", dt.minSamplesSplit)
	dt.minSamplesLeaf = params.Int("min_samples_leaf", dt.minSamplesLeaf)
	dt.maxBins = params.Int("max_bins", dt.maxBins)
	dt.maxFeatures = params.Int("max_features", dt.maxFeatures)
	dt.randomState = int64(params.Int("random_state", int(dt.randomState)))
	return dt.validate()
}

func (dt *DecisionTreeClassifier) validate() error {
	switch {
	case dt.criterion != CriterionGini && dt.criterion != CriterionEntropy:
		return errors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	case dt.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	case dt.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	case dt.maxBins < 0 || dt.maxBins == 1:
		return errors.NewValidationError("max_bins", "must be 0 or at least 2", dt.maxBins)
	case dt.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be non-negative", dt.maxFeatures)
	}
	return nil
}

// Fit はモデルを訓練データで学習させる
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := dt.validate(); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if y == nil {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "y is required")
	}
	if ry, _ := y.Dims(); ry != r {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", r, ry, 0)
	}

	classes, yIdx := encodeClasses(y)
	b := &builder{
		dt:          dt,
		X:           mat.DenseCopyOf(X),
		y:           yIdx,
		nClasses:    len(classes),
		nTotal:      r,
		importances: make([]float64, c),
		rng:         rand.New(rand.NewPCG(uint64(dt.randomState), uint64(dt.randomState)+1)),
	}
	if dt.maxBins > 0 {
		b.candidates = quantileThresholds(b.X, dt.maxBins)
	}

	indices := make([]int, r)
	for i := range indices {
		indices[i] = i
	}

	dt.depth, dt.nLeaves = 0, 0
	dt.root = b.grow(indices, 0)
	dt.classes = classes
	dt.nFeatures = c

	var total float64
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for i := range b.importances {
			b.importances[i] /= total
		}
	}
	dt.featureImportances = b.importances
	dt.SetFitted()
	return nil
}

// Predict は各サンプルの最尤クラスを n×1 行列で返す
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, dt.classes[argmax(proba.RawRowView(i))])
	}
	return out, nil
}

// PredictProba はクラス確率を n×nClasses 行列で返す。列は Classes() の順
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := dt.CheckFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != dt.nFeatures {
		return nil, errors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.nFeatures, c, 1)
	}
	out := mat.NewDense(r, len(dt.classes), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, dt.leaf(row).proba)
	}
	return out, nil
}

func (dt *DecisionTreeClassifier) leaf(row []float64) *node {
	n := dt.root
	for !n.isLeaf() {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// Score は正解率を返す
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	if pr, _ := pred.Dims(); pr != r || r == 0 {
		return 0, errors.NewLengthMismatchError("DecisionTreeClassifier.Score", r, pr)
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// Classes returns the sorted distinct labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes...)
}

// GetFeatureImportances は不純度減少量に基づく正規化済み重要度を返す
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances...)
}

// GetDepth returns the depth of the fitted tree (root only = 0).
func (dt *DecisionTreeClassifier) GetDepth() int {
	return dt.depth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return dt.nLeaves
}

// builder は 1 回の Fit の作業状態
type builder struct {
	dt          *DecisionTreeClassifier
	X           *mat.Dense
	y           []int
	nClasses    int
	nTotal      int
	candidates  [][]float64 // 特徴量ごとの分割候補（昇順）。nil は全境界
	importances []float64
	rng         *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	nLeft     int
}

func (b *builder) grow(indices []int, depth int) *node {
	counts := b.classCounts(indices)
	impurity := b.impurity(counts, len(indices))

	if depth > b.dt.depth {
		b.dt.depth = depth
	}

	stop := impurity == 0 ||
		len(indices) < b.dt.minSamplesSplit ||
		len(indices) < 2*b.dt.minSamplesLeaf ||
		(b.dt.maxDepth > 0 && depth >= b.dt.maxDepth)

	var best *split
	if !stop {
		best = b.bestSplit(indices, impurity)
	}
	if best == nil {
		b.dt.nLeaves++
		proba := make([]float64, b.nClasses)
		for k, c := range counts {
			proba[k] = float64(c) / float64(len(indices))
		}
		return &node{proba: proba}
	}

	b.importances[best.feature] += float64(len(indices)) / float64(b.nTotal) * best.gain

	left := make([]int, 0, best.nLeft)
	right := make([]int, 0, len(indices)-best.nLeft)
	for _, i := range indices {
		if b.X.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   best.feature,
		threshold: best.threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

func (b *builder) features() []int {
	_, c := b.X.Dims()
	if b.dt.maxFeatures == 0 || b.dt.maxFeatures >= c {
		all := make([]int, c)
		for i := range all {
			all[i] = i
		}
		return all
	}
	chosen := b.rng.Perm(c)[:b.dt.maxFeatures]
	sort.Ints(chosen)
	return chosen
}

// bestSplit は各特徴量をソートして走査し、不純度減少が最大の分割を返す。
// 同点のときは特徴量番号、閾値の小さい方を採る。
func (b *builder) bestSplit(indices []int, parentImpurity float64) *split {
	n := len(indices)
	minLeaf := b.dt.minSamplesLeaf
	var best *split

	sorted := make([]int, n)
	leftCounts := make([]int, b.nClasses)
	rightCounts := make([]int, b.nClasses)

	for _, f := range b.features() {
		copy(sorted, indices)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X.At(sorted[i], f) < b.X.At(sorted[j], f)
		})

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = 0
		}
		for _, i := range sorted {
			rightCounts[b.y[i]]++
		}

		var cands []float64
		if b.candidates != nil {
			cands = b.candidates[f]
		}
		ci := 0

		for pos := 1; pos < n; pos++ {
			moved := b.y[sorted[pos-1]]
			leftCounts[moved]++
			rightCounts[moved]--

			prev := b.X.At(sorted[pos-1], f)
			next := b.X.At(sorted[pos], f)
			if prev == next || pos < minLeaf || n-pos < minLeaf {
				continue
			}

			threshold := (prev + next) / 2
			if b.candidates != nil {
				for ci < len(cands) && cands[ci] < prev {
					ci++
				}
				if ci == len(cands) || cands[ci] >= next {
					continue
				}
				threshold = cands[ci]
			}

			impL := b.impurity(leftCounts, pos)
			impR := b.impurity(rightCounts, n-pos)
			gain := parentImpurity - (float64(pos)*impL+float64(n-pos)*impR)/float64(n)
			if best == nil || gain > best.gain+1e-12 {
				best = &split{feature: f, threshold: threshold, gain: gain, nLeft: pos}
			}
		}
	}
	return best
}

func (b *builder) classCounts(indices []int) []int {
	counts := make([]int, b.nClasses)
	for _, i := range indices {
		counts[b.y[i]]++
	}
	return counts
}

func (b *builder) impurity(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	nf := float64(n)
	var v float64
	switch b.dt.criterion {
	case CriterionEntropy:
		for _, c := range counts {
			if c > 0 {
				p := float64(c) / nf
				v -= p * math.Log2(p)
			}
		}
	default:
		v = 1
		for _, c := range counts {
			p := float64(c) / nf
			v -= p * p
		}
	}
	return v
}

// quantileThresholds は特徴量ごとに最大 bins-1 個の分割候補を返す
func quantileThresholds(X *mat.Dense, bins int) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		uniq := uniqueSorted(col)
		if len(uniq) <= bins {
			cands := make([]float64, 0, len(uniq))
			for i := 1; i < len(uniq); i++ {
				cands = append(cands, (uniq[i-1]+uniq[i])/2)
			}
			out[j] = cands
			continue
		}
		cands := make([]float64, 0, bins-1)
		for q := 1; q < bins; q++ {
			v := uniq[q*len(uniq)/bins]
			if len(cands) == 0 || cands[len(cands)-1] < v {
				cands = append(cands, v)
			}
		}
		out[j] = cands
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

func encodeClasses(y mat.Matrix) ([]float64, []int) {
	r, _ := y.Dims()
	raw := make([]float64, r)
	for i := range raw {
		raw[i] = y.At(i, 0)
	}
	classes := uniqueSorted(raw)
	index := make(map[float64]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	enc := make([]int, r)
	for i, v := range raw {
		enc[i] = index[v]
	}
	return classes, enc
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
