// Package cluster は k-means クラスタリングを提供する。
package cluster

import (
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
)

// 初期化方法
const (
	InitKMeansPlusPlus = "k-means++"
	InitRandom         = "random"
)

// KMeans は Lloyd 法による k-means クラスタリング
type KMeans struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nClusters   int     // クラスタ数
	init        string  // 初期化方法: "k-means++", "random"
	maxIter     int     // 1 回の実行での最大イテレーション数
	tol         float64 // 中心の移動量（二乗和）の収束閾値
	nInit       int     // 異なる初期化での実行回数
	randomState int64   // 乱数シード

	// 学習パラメータ
	clusterCenters [][]float64 // クラスタ中心（nClusters x nFeatures）
	labels         []int       // 各サンプルのクラスタラベル
	inertia        float64     // クラスタ内平方和誤差
	nIter          int         // 最良の実行でのイテレーション数

	mu        sync.RWMutex
	rng       *rand.Rand
	nFeatures int
}

// KMeansOption は KMeans の設定オプション
type KMeansOption func(*KMeans)

// WithNClusters はクラスタ数を設定
func WithNClusters(n int) KMeansOption {
	return func(km *KMeans) {
		km.nClusters = n
	}
}

// WithInit は初期化方法を設定
func WithInit(init string) KMeansOption {
	return func(km *KMeans) {
		km.init = init
	}
}

// WithMaxIter は最大イテレーション数を設定
func WithMaxIter(maxIter int) KMeansOption {
	return func(km *KMeans) {
		km.maxIter = maxIter
	}
}

// WithTol は収束判定の許容誤差を設定
func WithTol(tol float64) KMeansOption {
	return func(km *KMeans) {
		km.tol = tol
	}
}

// WithNInit は初期化の試行回数を設定
func WithNInit(n int) KMeansOption {
	return func(km *KMeans) {
		km.nInit = n
	}
}

// WithRandomState は乱数シードを設定
func WithRandomState(seed int64) KMeansOption {
	return func(km *KMeans) {
		km.randomState = seed
	}
}

// NewKMeans は新しい KMeans を作成
func NewKMeans(options ...KMeansOption) *KMeans {
	km := &KMeans{
		nClusters:   8,
		init:        InitKMeansPlusPlus,
		maxIter:     300,
		tol:         1e-4,
		nInit:       3,
		randomState: 42,
	}
	for _, opt := range options {
		opt(km)
	}
	return km
}

// Fit は nInit 回の実行から慣性が最小の結果を採用する。y は無視される
func (km *KMeans) Fit(X, _ mat.Matrix) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.nClusters < 1 {
		return errors.NewValidationError("n_clusters", "must be positive", km.nClusters)
	}
	if km.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be positive", km.maxIter)
	}
	if km.nInit < 1 {
		return errors.NewValidationError("n_init", "must be positive", km.nInit)
	}
	rows, cols := X.Dims()
	if rows < km.nClusters {
		return errors.NewInsufficientDataError("KMeans.Fit", km.nClusters, rows)
	}

	data := mat.DenseCopyOf(X)
	km.nFeatures = cols
	km.rng = rand.New(rand.NewPCG(uint64(km.randomState), uint64(km.randomState)))

	bestInertia := math.Inf(1)
	var (
		bestCenters [][]float64
		bestLabels  []int
		bestNIter   int
	)
	for run := 0; run < km.nInit; run++ {
		centers, labels, inertia, nIter := km.fitSingleRun(data)
		if inertia < bestInertia {
			bestInertia = inertia
			bestCenters = centers
			bestLabels = labels
			bestNIter = nIter
		}
	}
	if err := errors.CheckScalar("KMeans.Fit", bestInertia, bestNIter); err != nil {
		return err
	}

	km.clusterCenters = bestCenters
	km.labels = bestLabels
	km.inertia = bestInertia
	km.nIter = bestNIter
	km.SetFitted()
	return nil
}

// fitSingleRun は単一回の学習を実行
func (km *KMeans) fitSingleRun(X *mat.Dense) ([][]float64, []int, float64, int) {
	rows, _ := X.Dims()
	centers := km.initializeCenters(X)
	labels := make([]int, rows)

	iter := 0
	for iter < km.maxIter {
		iter++

		// 割り当て
		for i := 0; i < rows; i++ {
			labels[i], _ = nearest(X.RawRowView(i), centers)
		}

		// 中心の更新
		shift := recenter(X, centers, labels)

		if shift <= km.tol {
			break
		}
	}

	inertia := 0.0
	for i := 0; i < rows; i++ {
		var d float64
		labels[i], d = nearest(X.RawRowView(i), centers)
		inertia += d
	}
	return centers, labels, inertia, iter
}

// Predict は入力データに対するクラスタ予測を行う
func (km *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	if err := km.CheckFitted("KMeans", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != km.nFeatures {
		return nil, errors.NewDimensionError("KMeans.Predict", km.nFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	sample := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(sample, i, X)
		c, _ := nearest(sample, km.clusterCenters)
		predictions.Set(i, 0, float64(c))
	}
	return predictions, nil
}

// FitPredict は学習と予測を同時に行う
func (km *KMeans) FitPredict(X mat.Matrix) (mat.Matrix, error) {
	if err := km.Fit(X, nil); err != nil {
		return nil, err
	}
	return km.Predict(X)
}

// ClusterCenters は学習されたクラスタ中心のコピーを返す
func (km *KMeans) ClusterCenters() [][]float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return copyCenters(km.clusterCenters)
}

// Labels は学習データのクラスタラベルを返す
func (km *KMeans) Labels() []int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return append([]int(nil), km.labels...)
}

// Inertia は慣性（クラスタ内平方和誤差）を返す
func (km *KMeans) Inertia() float64 {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.inertia
}

// NIterations は採用された実行のイテレーション数を返す
func (km *KMeans) NIterations() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.nIter
}

// initializeCenters はクラスタ中心を初期化
func (km *KMeans) initializeCenters(X *mat.Dense) [][]float64 {
	if km.init == InitRandom {
		rows, _ := X.Dims()
		centers := make([][]float64, km.nClusters)
		for c, idx := range km.rng.Perm(rows)[:km.nClusters] {
			centers[c] = append([]float64(nil), X.RawRowView(idx)...)
		}
		return centers
	}
	return km.initKMeansPlusPlus(X)
}

// initKMeansPlusPlus はk-means++初期化を実行
func (km *KMeans) initKMeansPlusPlus(X *mat.Dense) [][]float64 {
	rows, _ := X.Dims()
	centers := make([][]float64, 0, km.nClusters)
	centers = append(centers, append([]float64(nil), X.RawRowView(km.rng.IntN(rows))...))

	distances := make([]float64, rows)
	for len(centers) < km.nClusters {
		total := 0.0
		for i := 0; i < rows; i++ {
			_, distances[i] = nearest(X.RawRowView(i), centers)
			total += distances[i]
		}

		// 距離の二乗に比例する確率で次の中心を選ぶ
		selected := km.rng.IntN(rows)
		if total > 0 {
			target := km.rng.Float64() * total
			cum := 0.0
			for i, d := range distances {
				cum += d
				if cum >= target && d > 0 {
					selected = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), X.RawRowView(selected)...))
	}
	return centers
}

// recenter は labels に従って centers を更新し、中心移動量の二乗和を返す。
// 空クラスタには最も遠い点を移し、その点は元のクラスタの平均から除く
func recenter(X *mat.Dense, centers [][]float64, labels []int) float64 {
	rows, cols := X.Dims()
	sums := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for c := range sums {
		sums[c] = make([]float64, cols)
	}
	for i := 0; i < rows; i++ {
		c := labels[i]
		counts[c]++
		for j, v := range X.RawRowView(i) {
			sums[c][j] += v
		}
	}

	for c := range centers {
		if counts[c] > 0 {
			continue
		}
		idx := farthestPoint(X, centers, labels, counts)
		if idx < 0 {
			continue
		}
		row := X.RawRowView(idx)
		prev := labels[idx]
		counts[prev]--
		for j, v := range row {
			sums[prev][j] -= v
		}
		copy(sums[c], row)
		counts[c] = 1
		labels[idx] = c
	}

	shift := 0.0
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		for j := range sums[c] {
			v := sums[c][j] / float64(counts[c])
			d := v - centers[c][j]
			shift += d * d
			centers[c][j] = v
		}
	}
	return shift
}

// farthestPoint は自クラスタ中心から最も遠い点を返す。移すと元のクラスタが
// 空になる点は対象外。候補がなければ -1
func farthestPoint(X *mat.Dense, centers [][]float64, labels []int, counts []int) int {
	rows, _ := X.Dims()
	best, bestD := -1, -1.0
	for i := 0; i < rows; i++ {
		if counts[labels[i]] < 2 {
			continue
		}
		d := squaredDistance(X.RawRowView(i), centers[labels[i]])
		if d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// nearest は最近傍クラスタ番号と二乗距離を返す。同距離なら番号の小さい方
func nearest(sample []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := squaredDistance(sample, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func copyCenters(centers [][]float64) [][]float64 {
	out := make([][]float64, len(centers))
	for i, c := range centers {
		out[i] = append([]float64(nil), c...)
	}
	return out
}
