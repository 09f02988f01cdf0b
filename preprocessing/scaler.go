// Package preprocessing は特徴量の標準化を提供する。
package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StandardScaler はデータを平均0、標準偏差1に変換する
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（WithStd=false のときは 1）
	Scale []float64

	withMean bool
	withStd  bool
	ddof     int  // 分散の自由度補正。0: 母分散 (n)、1: 不偏分散 (n-1)
	strict   bool // 定数列をエラーにするかどうか
}

var (
	_ model.Transformer     = (*StandardScaler)(nil)
	_ model.ParameterGetter = (*StandardScaler)(nil)
)

// ScalerOption は StandardScaler の関数オプション
type ScalerOption func(*StandardScaler)

// WithMean は平均を引くかどうかを設定する (デフォルト: true)
func WithMean(center bool) ScalerOption {
	return func(s *StandardScaler) { s.withMean = center }
}

// WithStd は標準偏差で割るかどうかを設定する (デフォルト: true)
func WithStd(scale bool) ScalerOption {
	return func(s *StandardScaler) { s.withStd = scale }
}

// WithDDOF は標準偏差の自由度補正を設定する。
// 標本標準偏差（不偏分散）で割る場合は 1 を指定する。
func WithDDOF(ddof int) ScalerOption {
	return func(s *StandardScaler) { s.ddof = ddof }
}

// WithStrict を true にすると、分散が0の列を 1 で割る代わりにエラーにする
func WithStrict(strict bool) ScalerOption {
	return func(s *StandardScaler) { s.strict = strict }
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(preprocessing.WithDDOF(1))
//	XScaled, err := scaler.FitTransform(XTrain)
//	XTestScaled, err := scaler.Transform(XTest)
func NewStandardScaler(opts ...ScalerOption) *StandardScaler {
	s := &StandardScaler{
		state:    model.NewStateManager(),
		withMean: true,
		withStd:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if s.withStd && r-s.ddof <= 0 {
		return errors.NewValueError("StandardScaler.Fit", fmt.Sprintf("need more than %d rows to estimate the scale", s.ddof))
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	for j := 0; j < c; j++ {
		if s.withMean {
			sum := 0.0
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}

		if !s.withStd {
			s.Scale[j] = 1.0
			continue
		}

		// 中心化しない場合も標準偏差は平均まわりで計算する
		mean := s.Mean[j]
		if !s.withMean {
			for i := 0; i < r; i++ {
				mean += X.At(i, j)
			}
			mean /= float64(r)
		}
		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - mean
			sumSquares += diff * diff
		}
		s.Scale[j] = math.Sqrt(sumSquares / float64(r-s.ddof))

		// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
		if s.Scale[j] < 1e-8*math.Max(1, math.Abs(mean)) {
			if s.strict {
				return errors.NewValidationError("X", "cannot rescale a constant column to unit variance", j)
			}
			s.Scale[j] = 1.0
		}
	}

	s.state.SetFitted(r, c)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}
	if err := s.state.CheckFeatures("StandardScaler.Transform", X); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}
	if err := s.state.CheckFeatures("StandardScaler.InverseTransform", X); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.withMean,
		"with_std":  s.withStd,
		"ddof":      s.ddof,
	}
}
