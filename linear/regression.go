// Package linear は最小二乗法による線形回帰と主成分回帰を提供する。
package linear

import (
	"math"
	"strconv"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/core/parallel"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression は線形回帰モデル。
// QR 分解による最小二乗解を求め、係数の推測統計量も保持する
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool
	tol          float64
	featureNames []string

	coef      []float64 // 重み（係数）
	intercept float64   // 切片
	summary   *Summary
}

var (
	_ model.Estimator       = (*LinearRegression)(nil)
	_ model.LinearModel     = (*LinearRegression)(nil)
	_ model.ParameterGetter = (*LinearRegression)(nil)
)

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
		tol:          1e-10,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// designMatrix は切片項のために X の先頭に 1 の列を追加する
func designMatrix(X mat.Matrix, intercept bool) *mat.Dense {
	r, c := X.Dims()
	if !intercept {
		return mat.DenseCopyOf(X)
	}
	XWithIntercept := mat.NewDense(r, c+1, nil)

	// 並列処理の閾値（この値以下の行数では逐次処理を使用）
	const parallelThreshold = 1000

	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			XWithIntercept.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				XWithIntercept.Set(i, j+1, X.At(i, j))
			}
		}
	})
	return XWithIntercept
}

// Fit はモデルを訓練データで学習させる。
// X = QR と分解し R β = Qᵀ y を解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionMismatchError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if lr.featureNames != nil && len(lr.featureNames) != c {
		return errors.NewDimensionMismatchError("LinearRegression.Fit", len(lr.featureNames), c, 1)
	}

	A := designMatrix(X, lr.fitIntercept)
	_, m := A.Dims()
	if r < m {
		return errors.NewValueError("LinearRegression.Fit", "fewer samples than coefficients")
	}

	var qr mat.QR
	qr.Factorize(A)

	// R の対角成分でランク落ちを検出する
	var R mat.Dense
	qr.RTo(&R)
	maxDiag := 0.0
	for j := 0; j < m; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(R.At(j, j)))
	}
	rank := 0
	for j := 0; j < m; j++ {
		if math.Abs(R.At(j, j)) > lr.tol*maxDiag {
			rank++
		}
	}
	if rank < m {
		return errors.NewRankDeficiencyError("LinearRegression.Fit", m, rank)
	}

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "least squares solve failed", errors.Wrap(errors.ErrSingularMatrix, err.Error()))
	}

	coefs := mat.Col(nil, 0, &beta)
	if err := errors.CheckNumericalStability("LinearRegression.Fit", coefs, 0); err != nil {
		return err
	}

	if lr.fitIntercept {
		lr.intercept = coefs[0]
		lr.coef = coefs[1:]
	} else {
		lr.intercept = 0
		lr.coef = coefs
	}

	upper := mat.NewTriDense(m, mat.Upper, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			upper.SetTri(i, j, R.At(i, j))
		}
	}
	lr.summary = summarize(A, upper, coefs, mat.Col(nil, 0, y), lr.fitIntercept, lr.termNames(c))

	lr.state.SetFitted(r, c)
	return nil
}

func (lr *LinearRegression) termNames(c int) []string {
	names := make([]string, 0, c+1)
	if lr.fitIntercept {
		names = append(names, "(Intercept)")
	}
	if lr.featureNames != nil {
		return append(names, lr.featureNames...)
	}
	for j := 0; j < c; j++ {
		names = append(names, "x"+strconv.Itoa(j+1))
	}
	return names
}

// Predict は入力データに対する予測を行う。y = X * coef + intercept
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	if err := lr.state.CheckFeatures("LinearRegression.Predict", X); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	predictions := mat.NewDense(r, 1, nil)
	predictions.Mul(X, mat.NewVecDense(len(lr.coef), append([]float64(nil), lr.coef...)))
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, predictions.At(i, 0)+lr.intercept)
	}
	return predictions, nil
}

// Coefficients は学習された係数（切片を除く）を返す
func (lr *LinearRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.coef...)
}

// Intercept は学習された切片を返す
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

// Summary は係数表と適合度の統計量を返す。未学習なら nil
func (lr *LinearRegression) Summary() *Summary {
	return lr.summary
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(mat.Col(nil, 0, y), mat.Col(nil, 0, yPred))
}

// GetParams はモデルのパラメータを取得する
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
		"tol":           lr.tol,
	}
}
