// Package mixture は対角共分散のガウス混合モデルを提供する。
package mixture

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/sklearn/cluster"
)

// GaussianMixture は EM 法で学習する対角共分散ガウス混合モデル。
// 初期値は k-means の結果から作る。
type GaussianMixture struct {
	model.BaseEstimator

	nComponents int
	maxIter     int
	tol         float64 // 平均対数尤度の改善量の収束閾値
	regCovar    float64 // 分散に加える正則化項
	randomState int64

	weights    []float64   // 混合比
	means      [][]float64 // nComponents x nFeatures
	variances  [][]float64 // 対角成分
	nFeatures  int
	nIter      int
	converged  bool
	lowerBound float64 // 最終的な平均対数尤度
}

// Option configures a GaussianMixture.
type Option func(*GaussianMixture)

// WithNComponents sets the number of mixture components.
func WithNComponents(n int) Option {
	return func(g *GaussianMixture) {
		g.nComponents = n
	}
}

// WithMaxIter sets the maximum number of EM iterations.
func WithMaxIter(n int) Option {
	return func(g *GaussianMixture) {
		g.maxIter = n
	}
}

// WithTol sets the convergence threshold on the mean log-likelihood gain.
func WithTol(tol float64) Option {
	return func(g *GaussianMixture) {
		g.tol = tol
	}
}

// WithRegCovar sets the non-negative regularization added to variances.
func WithRegCovar(reg float64) Option {
	return func(g *GaussianMixture) {
		g.regCovar = reg
	}
}

// WithRandomState sets the seed of the k-means initialization.
func WithRandomState(seed int64) Option {
	return func(g *GaussianMixture) {
		g.randomState = seed
	}
}

// NewGaussianMixture は新しいガウス混合モデルを作成する
func NewGaussianMixture(opts ...Option) *GaussianMixture {
	g := &GaussianMixture{
		nComponents: 1,
		maxIter:     100,
		tol:         1e-3,
		regCovar:    1e-6,
		randomState: 42,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fit はモデルを学習する。y は無視される。
// maxIter 回で収束しなければ ConvergenceWarning を出して最後の推定値を残す。
func (g *GaussianMixture) Fit(X, _ mat.Matrix) error {
	switch {
	case g.nComponents < 1:
		return errors.NewValidationError("n_components", "must be positive", g.nComponents)
	case g.maxIter < 1:
		return errors.NewValidationError("max_iter", "must be positive", g.maxIter)
	case g.regCovar < 0:
		return errors.NewValidationError("reg_covar", "must be non-negative", g.regCovar)
	}
	rows, cols := X.Dims()
	if rows < g.nComponents {
		return errors.NewInsufficientDataError("GaussianMixture.Fit", g.nComponents, rows)
	}
	data := mat.DenseCopyOf(X)

	if err := g.initialize(data); err != nil {
		return err
	}
	g.nFeatures = cols

	resp := mat.NewDense(rows, g.nComponents, nil)
	prev := math.Inf(-1)
	g.converged = false
	for g.nIter = 1; g.nIter <= g.maxIter; g.nIter++ {
		ll := g.eStep(data, resp)
		if err := errors.CheckScalar("GaussianMixture.Fit", ll, g.nIter); err != nil {
			return err
		}
		g.mStep(data, resp)
		g.lowerBound = ll
		if math.Abs(ll-prev) < g.tol {
			g.converged = true
			break
		}
		prev = ll
	}
	if !g.converged {
		g.nIter = g.maxIter
		errors.Warn(errors.NewConvergenceWarning("GaussianMixture", g.maxIter,
			"EM did not converge; consider increasing max_iter or tol"))
	}

	g.SetFitted()
	return nil
}

func (g *GaussianMixture) initialize(X *mat.Dense) error {
	rows, cols := X.Dims()
	km := cluster.NewKMeans(
		cluster.WithNClusters(g.nComponents),
		cluster.WithNInit(1),
		cluster.WithRandomState(g.randomState),
	)
	if err := km.Fit(X, nil); err != nil {
		return errors.Wrap(err, "GaussianMixture: k-means initialization")
	}

	resp := mat.NewDense(rows, g.nComponents, nil)
	for i, l := range km.Labels() {
		resp.Set(i, l, 1)
	}
	g.weights = make([]float64, g.nComponents)
	g.means = make([][]float64, g.nComponents)
	g.variances = make([][]float64, g.nComponents)
	for k := range g.means {
		g.means[k] = make([]float64, cols)
		g.variances[k] = make([]float64, cols)
	}
	g.mStep(X, resp)
	return nil
}

// eStep は責務（事後確率）を resp に書き込み、平均対数尤度を返す
func (g *GaussianMixture) eStep(X *mat.Dense, resp *mat.Dense) float64 {
	rows, _ := X.Dims()
	logProb := make([]float64, g.nComponents)
	total := 0.0
	for i := 0; i < rows; i++ {
		g.weightedLogProb(X.RawRowView(i), logProb)
		norm := errors.LogSumExp(logProb)
		total += norm
		for k, lp := range logProb {
			resp.Set(i, k, math.Exp(lp-norm))
		}
	}
	return total / float64(rows)
}

// mStep は責務からパラメータを更新する
func (g *GaussianMixture) mStep(X *mat.Dense, resp *mat.Dense) {
	rows, cols := X.Dims()
	for k := 0; k < g.nComponents; k++ {
		nk := 10 * math.SmallestNonzeroFloat64
		for i := 0; i < rows; i++ {
			nk += resp.At(i, k)
		}
		g.weights[k] = nk / float64(rows)

		mean := g.means[k]
		for j := range mean {
			mean[j] = 0
		}
		for i := 0; i < rows; i++ {
			r := resp.At(i, k)
			if r == 0 {
				continue
			}
			for j, v := range X.RawRowView(i) {
				mean[j] += r * v
			}
		}
		for j := range mean {
			mean[j] /= nk
		}

		variance := g.variances[k]
		for j := 0; j < cols; j++ {
			variance[j] = 0
		}
		for i := 0; i < rows; i++ {
			r := resp.At(i, k)
			if r == 0 {
				continue
			}
			for j, v := range X.RawRowView(i) {
				d := v - mean[j]
				variance[j] += r * d * d
			}
		}
		for j := range variance {
			variance[j] = variance[j]/nk + g.regCovar
		}
	}
}

// weightedLogProb は log(π_k) + log N(x | μ_k, diag σ²_k) を dst に書き込む
func (g *GaussianMixture) weightedLogProb(x []float64, dst []float64) {
	const log2Pi = 1.8378770664093453
	for k := range dst {
		lp := math.Log(g.weights[k])
		for j, v := range x {
			variance := g.variances[k][j]
			d := v - g.means[k][j]
			lp -= 0.5 * (log2Pi + math.Log(variance) + d*d/variance)
		}
		dst[k] = lp
	}
}

// PredictProba は各成分の事後確率を n×nComponents 行列で返す
func (g *GaussianMixture) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if err := g.CheckFitted("GaussianMixture", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != g.nFeatures {
		return nil, errors.NewDimensionError("GaussianMixture.PredictProba", g.nFeatures, cols, 1)
	}
	resp := mat.NewDense(rows, g.nComponents, nil)
	g.eStep(mat.DenseCopyOf(X), resp)
	return resp, nil
}

// Predict は事後確率が最大の成分番号を n×1 行列で返す
func (g *GaussianMixture) Predict(X mat.Matrix) (mat.Matrix, error) {
	resp, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := resp.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		row := resp.RawRowView(i)
		best := 0
		for k := 1; k < len(row); k++ {
			if row[k] > row[best] {
				best = k
			}
		}
		out.Set(i, 0, float64(best))
	}
	return out, nil
}

// Score は平均対数尤度を返す
func (g *GaussianMixture) Score(X mat.Matrix) (float64, error) {
	if err := g.CheckFitted("GaussianMixture", "Score"); err != nil {
		return 0, err
	}
	rows, cols := X.Dims()
	if cols != g.nFeatures {
		return 0, errors.NewDimensionError("GaussianMixture.Score", g.nFeatures, cols, 1)
	}
	resp := mat.NewDense(rows, g.nComponents, nil)
	return g.eStep(mat.DenseCopyOf(X), resp), nil
}

// BIC はベイズ情報量規準を返す。小さいほど良い
func (g *GaussianMixture) BIC(X mat.Matrix) (float64, error) {
	ll, err := g.Score(X)
	if err != nil {
		return 0, err
	}
	rows, _ := X.Dims()
	nParams := float64(g.nComponents*2*g.nFeatures + g.nComponents - 1)
	return -2*ll*float64(rows) + nParams*math.Log(float64(rows)), nil
}

// ClusterCenters は各成分の平均を返す
func (g *GaussianMixture) ClusterCenters() [][]float64 {
	out := make([][]float64, len(g.means))
	for k, m := range g.means {
		out[k] = append([]float64(nil), m...)
	}
	return out
}

// Weights returns the mixture weights.
func (g *GaussianMixture) Weights() []float64 {
	return append([]float64(nil), g.weights...)
}

// Variances returns the per-component diagonal variances.
func (g *GaussianMixture) Variances() [][]float64 {
	out := make([][]float64, len(g.variances))
	for k, v := range g.variances {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// Converged reports whether the last Fit converged.
func (g *GaussianMixture) Converged() bool {
	return g.converged
}

// NIterations returns the number of EM iterations of the last Fit.
func (g *GaussianMixture) NIterations() int {
	return g.nIter
}
