package linear

import (
	"fmt"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/sklearn/decomposition"
	"gonum.org/v1/gonum/mat"
)

// PCRParams は主成分回帰のハイパーパラメータ
type PCRParams struct {
	// Components は回帰に使う先頭の主成分数
	Components int `yaml:"components"`
}

func (p PCRParams) String() string {
	return fmt.Sprintf("k=%d", p.Components)
}

// ComponentGrid は k = 1..maxComponents のグリッドを返す
func ComponentGrid(maxComponents int) []PCRParams {
	grid := make([]PCRParams, 0, maxComponents)
	for k := 1; k <= maxComponents; k++ {
		grid = append(grid, PCRParams{Components: k})
	}
	return grid
}

// FewerComponents は a が b より単純な (成分数が少ない) ときに true を返す
func FewerComponents(a, b PCRParams) bool {
	return a.Components < b.Components
}

// PCRegression は主成分回帰モデル。
// 標準化した特徴量に PCA をかけ、先頭 k 成分の得点に最小二乗回帰を当てはめる。
// 係数は元の特徴量空間に戻して保持する
type PCRegression struct {
	state  *model.StateManager
	params PCRParams

	pca   *decomposition.PCA
	ols   *LinearRegression
	coef  []float64
	b0    float64
	gamma []float64
}

var (
	_ model.Estimator       = (*PCRegression)(nil)
	_ model.LinearModel     = (*PCRegression)(nil)
	_ model.ParameterGetter = (*PCRegression)(nil)
)

// NewPCRegression は新しい主成分回帰モデルを作成する
func NewPCRegression(params PCRParams) *PCRegression {
	return &PCRegression{
		state:  model.NewStateManager(),
		params: params,
	}
}

// Fit は PCA と成分得点への回帰を学習する
func (m *PCRegression) Fit(X, y mat.Matrix) error {
	n, d := X.Dims()
	if m.params.Components < 1 {
		return errors.NewValidationError("components", "must be at least 1", m.params.Components)
	}

	pca := decomposition.NewPCA(decomposition.WithScale(true))
	if err := pca.Fit(X); err != nil {
		return errors.Wrap(err, "PCRegression.Fit")
	}
	k := m.params.Components
	if k > pca.NComponents() {
		return errors.NewRankDeficiencyError("PCRegression.Fit", k, pca.NComponents())
	}

	scores := pca.Scores().Slice(0, n, 0, k)
	ols := NewLinearRegression()
	if err := ols.Fit(scores, y); err != nil {
		return errors.Wrap(err, "PCRegression.Fit")
	}

	rotation := pca.Rotation().Slice(0, d, 0, k)
	gamma := ols.Coefficients()
	coef, b0, err := BackTransform(rotation, gamma, ols.Intercept(), pca.Center(), pca.Scale())
	if err != nil {
		return err
	}

	m.pca = pca
	m.ols = ols
	m.gamma = gamma
	m.coef = coef
	m.b0 = b0
	m.state.SetFitted(n, d)
	return nil
}

// Predict は元の特徴量空間の係数で予測する
func (m *PCRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("PCRegression", "Predict"); err != nil {
		return nil, err
	}
	if err := m.state.CheckFeatures("PCRegression.Predict", X); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	out.Mul(X, mat.NewVecDense(len(m.coef), append([]float64(nil), m.coef...)))
	for i := 0; i < r; i++ {
		out.Set(i, 0, out.At(i, 0)+m.b0)
	}
	return out, nil
}

// PredictComponents は PCA 変換と成分回帰を経由して予測する。
// Predict と同じ値を返す（数値誤差を除く）
func (m *PCRegression) PredictComponents(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequireFitted("PCRegression", "PredictComponents"); err != nil {
		return nil, err
	}
	Z, err := m.pca.Transform(X)
	if err != nil {
		return nil, err
	}
	r, _ := Z.Dims()
	return m.ols.Predict(Z.(*mat.Dense).Slice(0, r, 0, m.params.Components))
}

// Coefficients は元の特徴量空間での係数を返す
func (m *PCRegression) Coefficients() []float64 {
	return append([]float64(nil), m.coef...)
}

// Intercept は元の特徴量空間での切片を返す
func (m *PCRegression) Intercept() float64 {
	return m.b0
}

// ComponentCoefficients は主成分得点に対する係数 γ を返す
func (m *PCRegression) ComponentCoefficients() []float64 {
	return append([]float64(nil), m.gamma...)
}

// PCA は学習済みの主成分変換を返す
func (m *PCRegression) PCA() *decomposition.PCA {
	return m.pca
}

// Params はハイパーパラメータを返す
func (m *PCRegression) Params() PCRParams {
	return m.params
}

// GetParams はモデルのパラメータを取得する
func (m *PCRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"components": m.params.Components,
	}
}
