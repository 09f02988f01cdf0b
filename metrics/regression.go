// Package metrics は回帰と二値分類の評価指標を提供する。
//
// すべての関数は予測値と正解値を同じ長さの []float64 で受け取る。
// 交差検証のスコア関数 (Scorer) としてそのまま渡せる。
package metrics

import (
	"math"

	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scorer は交差検証で使うスコア関数。値が大きいほど良い
type Scorer func(yTrue, yPred []float64) (float64, error)

func checkPair(op string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty vector")
	}
	if len(yPred) != len(yTrue) {
		return errors.NewDimensionMismatchError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	// MSE = (1/n) * Σ(yTrue - yPred)²
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する。R² = 1 - RSS/TSS
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	yMean := stat.Mean(yTrue, nil)
	var tss, rss float64
	for i, v := range yTrue {
		tss += (v - yMean) * (v - yMean)
		rss += (v - yPred[i]) * (v - yPred[i])
	}

	// 全変動が0の場合（すべてのyTrueが同じ値）
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// Residuals は yTrue - yPred を返す
func Residuals(yTrue, yPred []float64) ([]float64, error) {
	if err := checkPair("Residuals", yTrue, yPred); err != nil {
		return nil, err
	}
	res := make([]float64, len(yTrue))
	floats.SubTo(res, yTrue, yPred)
	return res, nil
}

// FiveNumber は最小値・第1四分位・中央値・第3四分位・最大値
type FiveNumber struct {
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Summarize は values の五数要約を返す。四分位は Hyndman-Fan の type 7
func Summarize(values []float64) (FiveNumber, error) {
	if len(values) == 0 {
		return FiveNumber{}, errors.NewValueError("Summarize", "empty vector")
	}
	return FiveNumber{
		Min:    floats.Min(values),
		Q1:     dataset.Quantile(0.25, values),
		Median: dataset.Quantile(0.5, values),
		Q3:     dataset.Quantile(0.75, values),
		Max:    floats.Max(values),
	}, nil
}
