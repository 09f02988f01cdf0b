// Package model は推定器の共通インターフェースと学習状態の管理を提供します。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 の列ベクトルで返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は交差検証とグリッド探索で扱う教師あり学習モデル
type Estimator interface {
	Fitter
	Predictor
}

// Transformer はデータ変換のインターフェース（主成分変換、標準化）
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// LinearModel は元の特徴量空間での係数を公開する回帰モデル
type LinearModel interface {
	// Coefficients は学習された係数（切片を除く）を返す
	Coefficients() []float64
	// Intercept は学習された切片を返す
	Intercept() float64
}

// Classifier は二値分類器。Classes は学習時に観測したラベルを昇順で返す
type Classifier interface {
	Estimator
	Classes() []float64
}

// ParameterGetter はハイパーパラメータを公開するモデル
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
