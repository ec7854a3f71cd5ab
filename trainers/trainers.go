// Package trainers は selection の候補として使う学習アルゴリズムのアダプタを提供する。
//
// 各アダプタは dataset.Dataset と model.Params を受け取り、対応する推定器を学習して返す。
// 乱数を使うアダプタは Seed を持ち、同じシードなら同じモデルを返す。
package trainers

import (
	"github.com/YuminosukeSato/modelselect/core/model"
	"github.com/YuminosukeSato/modelselect/dataset"
	"github.com/YuminosukeSato/modelselect/linear"
	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/selection"
	"github.com/YuminosukeSato/modelselect/sklearn/cluster"
	"github.com/YuminosukeSato/modelselect/sklearn/ensemble"
	"github.com/YuminosukeSato/modelselect/sklearn/mixture"
	naivebayes "github.com/YuminosukeSato/modelselect/sklearn/naive_bayes"
)

// ハイパーパラメータのキー
const (
	ParamVarSmoothing          = "var_smoothing"
	ParamNumTrees              = "num_trees"
	ParamMaxDepth              = "max_depth"
	ParamMaxBins               = "max_bins"
	ParamImpurity              = "impurity"
	ParamFeatureSubsetStrategy = "feature_subset_strategy"
	ParamAlpha                 = "alpha"
	ParamIterations            = "iterations"
	ParamTol                   = "tol"
	ParamFitIntercept          = "fit_intercept"
	ParamMaxIter               = "max_iter"
	ParamNInit                 = "n_init"
	ParamRegCovar              = "reg_covar"
)

// Lasso / Ridge の正則化の既定値
const defaultAlpha = 0.01

var paramKeys = map[selection.AlgorithmID][]string{
	selection.NaiveBayes:       {ParamVarSmoothing},
	selection.RandomForest:     {ParamNumTrees, ParamMaxDepth, ParamMaxBins, ParamImpurity, ParamFeatureSubsetStrategy},
	selection.Lasso:            {ParamAlpha, ParamIterations, ParamTol, ParamFitIntercept},
	selection.Ridge:            {ParamAlpha, ParamFitIntercept},
	selection.LinearRegression: {ParamFitIntercept},
	selection.KMeans:           {ParamMaxIter, ParamNInit, ParamTol},
	selection.GaussianMixture:  {ParamMaxIter, ParamTol, ParamRegCovar},
}

// ParamKeys returns the hyperparameter keys the trainer of id understands.
func ParamKeys(id selection.AlgorithmID) []string {
	return append([]string(nil), paramKeys[id]...)
}

// CheckParams は未知のキーを ValidationError として報告する
func CheckParams(id selection.AlgorithmID, params model.Params) error {
	known := make(map[string]bool, len(paramKeys[id]))
	for _, k := range paramKeys[id] {
		known[k] = true
	}
	for k := range params {
		if !known[k] {
			return errors.NewValidationError(id.String()+"."+k, "unknown hyperparameter", params[k])
		}
	}
	return nil
}

// DefaultRegistry returns a registry holding every reference trainer.
// seed drives the randomized ones.
func DefaultRegistry(seed int64) *selection.Registry {
	reg := selection.NewRegistry()
	for id, t := range map[selection.AlgorithmID]selection.Trainer{
		selection.NaiveBayes:       GaussianNB{},
		selection.RandomForest:     RandomForest{Seed: seed},
		selection.Lasso:            Lasso{},
		selection.Ridge:            Ridge{},
		selection.LinearRegression: LinearRegression{},
	} {
		mustRegister(reg.Register(id, t))
	}
	mustRegister(reg.RegisterClusterer(selection.KMeans, KMeans{Seed: seed}))
	mustRegister(reg.RegisterClusterer(selection.GaussianMixture, GaussianMixture{Seed: seed}))
	return reg
}

func mustRegister(err error) {
	if err != nil {
		panic(err)
	}
}

// fitSupervised は ds の特徴量とラベルで m を学習する
func fitSupervised(name string, m model.Fitter, ds *dataset.Dataset) error {
	if !ds.Labeled() {
		return errors.NewValidationError("dataset", name+" requires labels", ds.LabelName())
	}
	if ds.Len() == 0 {
		return errors.NewEmptyDatasetError(name + ".Train")
	}
	return m.Fit(ds.X(), ds.Y())
}

// GaussianNB trains a Gaussian naive Bayes classifier.
type GaussianNB struct{}

// Train implements selection.Trainer.
func (GaussianNB) Train(ds *dataset.Dataset, params model.Params) (model.Predictor, error) {
	nb := naivebayes.NewGaussianNB(
		naivebayes.WithVarSmoothing(params.Float(ParamVarSmoothing, 1e-9)),
	)
	if err := fitSupervised("GaussianNB", nb, ds); err != nil {
		return nil, err
	}
	return nb, nil
}

// RandomForest trains a random forest classifier. Defaults: 10 trees,
// depth 4, 32 bins, gini, "auto" feature subsets.
type RandomForest struct {
	Seed int64
}

// Train implements selection.Trainer.
func (t RandomForest) Train(ds *dataset.Dataset, params model.Params) (model.Predictor, error) {
	rf := ensemble.NewRandomForestClassifier(
		ensemble.WithNumTrees(params.Int(ParamNumTrees, 10)),
		ensemble.WithMaxDepth(params.Int(ParamMaxDepth, 4)),
		ensemble.WithMaxBins(params.Int(ParamMaxBins, 32)),
		ensemble.WithCriterion(params.String(ParamImpurity, "gini")),
		ensemble.WithFeatureSubsetStrategy(params.String(ParamFeatureSubsetStrategy, ensemble.FeatureSubsetAuto)),
		ensemble.WithRandomState(t.Seed),
	)
	if err := fitSupervised("RandomForest", rf, ds); err != nil {
		return nil, err
	}
	return rf, nil
}

// Lasso trains an L1-regularized linear regression.
type Lasso struct{}

// Train implements selection.Trainer.
func (Lasso) Train(ds *dataset.Dataset, params model.Params) (model.Predictor, error) {
	m := linear.NewLasso(
		linear.WithAlpha(params.Float(ParamAlpha, defaultAlpha)),
		linear.WithMaxIter(params.Int(ParamIterations, 1000)),
		linear.WithTol(params.Float(ParamTol, 1e-4)),
		linear.WithFitIntercept(params.Bool(ParamFitIntercept, true)),
	)
	if err := fitSupervised("Lasso", m, ds); err != nil {
		return nil, err
	}
	return m, nil
}

// Ridge trains an L2-regularized linear regression.
type Ridge struct{}

// Train implements selection.Trainer.
func (Ridge) Train(ds *dataset.Dataset, params model.Params) (model.Predictor, error) {
	m := linear.NewRidge(
		linear.WithAlpha(params.Float(ParamAlpha, defaultAlpha)),
		linear.WithFitIntercept(params.Bool(ParamFitIntercept, true)),
	)
	if err := fitSupervised("Ridge", m, ds); err != nil {
		return nil, err
	}
	return m, nil
}

// LinearRegression trains an ordinary least squares regression.
type LinearRegression struct{}

// Train implements selection.Trainer.
func (LinearRegression) Train(ds *dataset.Dataset, params model.Params) (model.Predictor, error) {
	m := linear.NewLinearRegression(
		linear.WithFitIntercept(params.Bool(ParamFitIntercept, true)),
	)
	if err := fitSupervised("LinearRegression", m, ds); err != nil {
		return nil, err
	}
	return m, nil
}

// KMeans trains k-means with k-means++ initialization.
type KMeans struct {
	Seed int64
}

// TrainClusters implements selection.ClusterTrainer.
func (t KMeans) TrainClusters(ds *dataset.Dataset, k int, params model.Params) (model.Clusterer, error) {
	km := cluster.NewKMeans(
		cluster.WithNClusters(k),
		cluster.WithMaxIter(params.Int(ParamMaxIter, 300)),
		cluster.WithNInit(params.Int(ParamNInit, 3)),
		cluster.WithTol(params.Float(ParamTol, 1e-4)),
		cluster.WithRandomState(t.Seed),
	)
	if ds.Len() == 0 {
		return nil, errors.NewEmptyDatasetError("KMeans.TrainClusters")
	}
	if err := km.Fit(ds.X(), nil); err != nil {
		return nil, err
	}
	return km, nil
}

// GaussianMixture trains a diagonal Gaussian mixture with k components.
type GaussianMixture struct {
	Seed int64
}

// TrainClusters implements selection.ClusterTrainer.
func (t GaussianMixture) TrainClusters(ds *dataset.Dataset, k int, params model.Params) (model.Clusterer, error) {
	gm := mixture.NewGaussianMixture(
		mixture.WithNComponents(k),
		mixture.WithMaxIter(params.Int(ParamMaxIter, 100)),
		mixture.WithTol(params.Float(ParamTol, 1e-3)),
		mixture.WithRegCovar(params.Float(ParamRegCovar, 1e-6)),
		mixture.WithRandomState(t.Seed),
	)
	if ds.Len() == 0 {
		return nil, errors.NewEmptyDatasetError("GaussianMixture.TrainClusters")
	}
	if err := gm.Fit(ds.X(), nil); err != nil {
		return nil, err
	}
	return gm, nil
}
