// Package decomposition は主成分分析 (PCA) を提供する。
package decomposition

import (
	"math"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PCA は特異値分解による主成分分析。
//
// 列ごとに中心化し、必要なら標本標準偏差 (n-1) で割った行列 Z を
// Z = U Σ Vᵀ と分解する。回転行列は V の列、主成分の分散は σ²/(n-1)。
// 標準偏差が tol·sd₁ 以下の成分は省く。
//
// 使用例:
//
//	pca := decomposition.NewPCA(decomposition.WithScale(true))
//	scores, err := pca.FitTransform(XTrain)
//	ratio := pca.CumulativeVarianceRatio()
type PCA struct {
	state *model.StateManager

	center      bool
	scale       bool
	tol         float64
	nComponents int

	mean          []float64
	sd            []float64
	rotation      *mat.Dense
	sdev          []float64
	totalVariance float64
	scores        *mat.Dense
}

var (
	_ model.Transformer     = (*PCA)(nil)
	_ model.ParameterGetter = (*PCA)(nil)
)

// Option は PCA の関数オプション
type Option func(*PCA)

// WithCenter は列平均を引くかどうか (デフォルト: true)
func WithCenter(center bool) Option {
	return func(p *PCA) { p.center = center }
}

// WithScale は列を標本標準偏差で割るかどうか (デフォルト: true)
func WithScale(scale bool) Option {
	return func(p *PCA) { p.scale = scale }
}

// WithTol は成分を省く相対閾値を設定する (デフォルト: 1e-8)
func WithTol(tol float64) Option {
	return func(p *PCA) { p.tol = tol }
}

// WithNComponents は保持する成分数の上限を設定する。0 は上限なし
func WithNComponents(n int) Option {
	return func(p *PCA) { p.nComponents = n }
}

// NewPCA は新しい PCA を作成する
func NewPCA(opts ...Option) *PCA {
	p := &PCA{
		state:  model.NewStateManager(),
		center: true,
		scale:  true,
		tol:    1e-8,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fit は X から中心・スケール・回転行列を学習する
func (p *PCA) Fit(X mat.Matrix) error {
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("PCA.Fit", "empty data", errors.ErrEmptyData)
	}
	if n < 2 {
		return errors.NewValueError("PCA.Fit", "need at least 2 samples")
	}
	if p.nComponents < 0 {
		return errors.NewValidationError("n_components", "must be non-negative", p.nComponents)
	}
	if p.tol < 0 || math.IsNaN(p.tol) {
		return errors.NewValidationError("tol", "must be non-negative", p.tol)
	}

	mean := make([]float64, d)
	sd := make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, X)
		if p.center {
			mean[j] = floats.Sum(col) / float64(n)
		}
		sd[j] = 1
		if p.scale {
			// 中心化しない場合は二乗平均平方根で割る
			ss := 0.0
			for _, v := range col {
				ss += (v - mean[j]) * (v - mean[j])
			}
			sd[j] = math.Sqrt(ss / float64(n-1))
			if sd[j] <= 1e-12*math.Max(1, math.Abs(mean[j])) {
				return errors.NewValidationError("X", "cannot rescale a constant/zero column to unit variance", j)
			}
		}
	}

	Z := mat.NewDense(n, d, nil)
	Z.Apply(func(i, j int, v float64) float64 {
		return (v - mean[j]) / sd[j]
	}, X)

	var svd mat.SVD
	if ok := svd.Factorize(Z, mat.SVDThin); !ok {
		return errors.NewModelError("PCA.Fit", "SVD failed", errors.ErrSingularMatrix)
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	denom := math.Sqrt(float64(n - 1))
	total := 0.0
	for _, s := range values {
		total += s * s / float64(n-1)
	}
	if len(values) == 0 || values[0] == 0 {
		return errors.NewValidationError("X", "matrix has no variance", 0)
	}

	keep := 0
	for _, s := range values {
		if s <= p.tol*values[0] {
			break
		}
		keep++
	}
	if p.nComponents > 0 && p.nComponents < keep {
		keep = p.nComponents
	}

	rotation := mat.DenseCopyOf(v.Slice(0, d, 0, keep))
	for k := 0; k < keep; k++ {
		// 絶対値最大の負荷量が正になるよう符号をそろえる
		best := 0
		for j := 1; j < d; j++ {
			if math.Abs(rotation.At(j, k)) > math.Abs(rotation.At(best, k)) {
				best = j
			}
		}
		if rotation.At(best, k) < 0 {
			for j := 0; j < d; j++ {
				rotation.Set(j, k, -rotation.At(j, k))
			}
		}
	}

	sdev := make([]float64, keep)
	for k := range sdev {
		sdev[k] = values[k] / denom
	}

	scores := mat.NewDense(n, keep, nil)
	scores.Mul(Z, rotation)

	p.mean = mean
	p.sd = sd
	p.rotation = rotation
	p.sdev = sdev
	p.totalVariance = total
	p.scores = scores
	p.state.SetFitted(n, d)
	return nil
}

// Transform は X を主成分得点に変換する
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.state.RequireFitted("PCA", "Transform"); err != nil {
		return nil, err
	}
	if err := p.state.CheckFeatures("PCA.Transform", X); err != nil {
		return nil, err
	}
	n, d := X.Dims()
	Z := mat.NewDense(n, d, nil)
	Z.Apply(func(i, j int, v float64) float64 {
		return (v - p.mean[j]) / p.sd[j]
	}, X)

	_, k := p.rotation.Dims()
	out := mat.NewDense(n, k, nil)
	out.Mul(Z, p.rotation)
	return out, nil
}

// FitTransform は Fit の後に学習データの得点を返す
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Scores(), nil
}

// InverseTransform は得点を元の特徴量空間に戻す。
// Z の列数が成分数より少ない場合は先頭の成分だけで再構成する
func (p *PCA) InverseTransform(Z mat.Matrix) (mat.Matrix, error) {
	if err := p.state.RequireFitted("PCA", "InverseTransform"); err != nil {
		return nil, err
	}
	n, c := Z.Dims()
	d, k := p.rotation.Dims()
	if c == 0 || c > k {
		return nil, errors.NewDimensionMismatchError("PCA.InverseTransform", k, c, 1)
	}

	out := mat.NewDense(n, d, nil)
	out.Mul(Z, p.rotation.Slice(0, d, 0, c).T())
	out.Apply(func(i, j int, v float64) float64 {
		return v*p.sd[j] + p.mean[j]
	}, out)
	return out, nil
}

// NComponents は保持した成分数を返す
func (p *PCA) NComponents() int {
	if p.rotation == nil {
		return 0
	}
	_, k := p.rotation.Dims()
	return k
}

// Rotation は d×k の回転行列（負荷量）のコピーを返す
func (p *PCA) Rotation() *mat.Dense {
	if p.rotation == nil {
		return nil
	}
	return mat.DenseCopyOf(p.rotation)
}

// Center は各列の中心化に使った値を返す
func (p *PCA) Center() []float64 { return append([]float64(nil), p.mean...) }

// Scale は各列のスケールを返す（WithScale(false) のときは 1）
func (p *PCA) Scale() []float64 { return append([]float64(nil), p.sd...) }

// StdDev は主成分の標準偏差を返す
func (p *PCA) StdDev() []float64 { return append([]float64(nil), p.sdev...) }

// Variance は主成分の分散を降順で返す
func (p *PCA) Variance() []float64 {
	out := make([]float64, len(p.sdev))
	for i, s := range p.sdev {
		out[i] = s * s
	}
	return out
}

// Scores は学習データの主成分得点 (n×k) のコピーを返す
func (p *PCA) Scores() *mat.Dense {
	if p.scores == nil {
		return nil
	}
	return mat.DenseCopyOf(p.scores)
}

// ExplainedVarianceRatio は各成分が説明する分散の割合
func (p *PCA) ExplainedVarianceRatio() []float64 {
	out := p.Variance()
	if p.totalVariance > 0 {
		floats.Scale(1/p.totalVariance, out)
	}
	return out
}

// CumulativeVarianceRatio は ExplainedVarianceRatio の累積和
func (p *PCA) CumulativeVarianceRatio() []float64 {
	out := p.ExplainedVarianceRatio()
	floats.CumSum(out, out)
	return out
}

// GetParams は PCA のパラメータを取得する
func (p *PCA) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"center":       p.center,
		"scale":        p.scale,
		"tol":          p.tol,
		"n_components": p.nComponents,
	}
}
