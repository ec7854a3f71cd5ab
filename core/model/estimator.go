package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。教師なしモデルでは y は nil
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 行列で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Model は教師あり学習モデルの基本インターフェース
type Model interface {
	Fitter
	Predictor
}

// Classifier は学習時に見たクラスラベルを公開する分類器
type Classifier interface {
	Model
	Classes() []float64
}

// Clusterer はクラスタリングモデルのインターフェース。
// Predict はクラスタ番号（ClusterCenters のインデックス）を返す
type Clusterer interface {
	Predictor
	ClusterCenters() [][]float64
}

// LinearModel は線形モデルのインターフェース
type LinearModel interface {
	// Coefficients は学習された重み（係数）を返す
	Coefficients() []float64
	// InterceptValue は学習された切片を返す
	InterceptValue() float64
}
