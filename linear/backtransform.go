package linear

import (
	"math"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// BackTransform は主成分空間の回帰係数を元の特徴量空間に戻す。
//
// rotation は d×k の回転行列、gamma は k 個の成分係数、intercept は成分回帰の切片、
// center と scale は PCA が特徴量に適用した中心とスケール。
//
//	β_scaled = R·γ
//	β_j      = β_scaled_j / s_j
//	b0       = γ0 − Σ_j β_j c_j
//
// 戻り値の β と b0 で ŷ = b0 + Xβ が元の特徴量から直接計算できる
func BackTransform(rotation mat.Matrix, gamma []float64, intercept float64, center, scale []float64) (beta []float64, b0 float64, err error) {
	d, k := rotation.Dims()
	if k != len(gamma) {
		return nil, 0, errors.NewDimensionMismatchError("BackTransform", k, len(gamma), 1)
	}
	if d != len(center) {
		return nil, 0, errors.NewDimensionMismatchError("BackTransform", d, len(center), 0)
	}
	if d != len(scale) {
		return nil, 0, errors.NewDimensionMismatchError("BackTransform", d, len(scale), 0)
	}
	for j, s := range scale {
		if s == 0 || math.IsNaN(s) {
			return nil, 0, errors.NewValidationError("scale", "must be non-zero", j)
		}
	}

	scaled := mat.NewVecDense(d, nil)
	scaled.MulVec(rotation, mat.NewVecDense(k, append([]float64(nil), gamma...)))

	beta = make([]float64, d)
	b0 = intercept
	for j := 0; j < d; j++ {
		beta[j] = scaled.AtVec(j) / scale[j]
		b0 -= beta[j] * center[j]
	}
	return beta, b0, nil
}
