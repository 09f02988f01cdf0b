// Package report はクライムデータの回帰レポートとクレジットデータの分類レポートを組み立てる。
//
// 各レポートは 読み込み → 探索的集計 → 層化分割 → 交差検証付きグリッド探索 →
// 選択 → テスト評価 の順に一度だけ実行され、段の間で状態を共有しない。
package report

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/sklearn/model_selection"
	"github.com/YuminosukeSato/statlab/sklearn/svm"
	"gopkg.in/yaml.v3"
)

// CVConfig は交差検証の方式
type CVConfig struct {
	// Method は "loocv" か "repeatedcv"
	Method     string `yaml:"method"`
	Folds      int    `yaml:"folds,omitempty"`
	Repeats    int    `yaml:"repeats,omitempty"`
	Stratified bool   `yaml:"stratified,omitempty"`
}

// Scheme は設定に対応する交差検証スキームを返す
func (c CVConfig) Scheme() (model_selection.Scheme, error) {
	switch c.Method {
	case "loocv":
		return model_selection.LeaveOneOut{}, nil
	case "repeatedcv":
		return model_selection.RepeatedKFold{Folds: c.Folds, Repeats: c.Repeats, Stratified: c.Stratified}, nil
	default:
		return nil, errors.NewValidationError("cv.method", "must be loocv or repeatedcv", c.Method)
	}
}

// SVMGrid は SVM の探索範囲。次数は多項式カーネル、バンド幅はガウスカーネルにだけ使う
type SVMGrid struct {
	Kernels    []svm.Kernel `yaml:"kernels"`
	Costs      []float64    `yaml:"costs"`
	Degrees    []int        `yaml:"degrees"`
	Bandwidths []float64    `yaml:"bandwidths"`
}

// Params は SVMGrid を列挙する
func (g SVMGrid) Params() []svm.Params {
	return svm.Grid(g.Kernels, g.Costs, g.Degrees, g.Bandwidths)
}

// NeighborsGrid は k の範囲 [From, To]
type NeighborsGrid struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// ElasticNetGrid は alpha × lambda の格子
type ElasticNetGrid struct {
	Alphas  []float64 `yaml:"alphas"`
	Lambdas []float64 `yaml:"lambdas"`
}

// Grids は各モデル族のハイパーパラメータ格子
type Grids struct {
	// MaxComponents は PCR の成分数の上限。0 なら特徴量の数まで
	MaxComponents int            `yaml:"max_components,omitempty"`
	SVM           SVMGrid        `yaml:"svm,omitempty"`
	Neighbors     NeighborsGrid  `yaml:"neighbors,omitempty"`
	ElasticNet    ElasticNetGrid `yaml:"elastic_net,omitempty"`
}

// Config はレポート1回分の設定
type Config struct {
	Response      string   `yaml:"response"`
	Seed          uint64   `yaml:"seed"`
	SplitFraction float64  `yaml:"split_fraction"`
	CV            CVConfig `yaml:"cv"`
	Grids         Grids    `yaml:"grids"`
	// Parallel はグリッド点の同時評価数（0/1 は逐次、負なら CPU 数）
	Parallel int `yaml:"parallel"`
	// OutputDir が空でなければ PNG の図をここに書き出す
	OutputDir string `yaml:"output_dir,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`
	// PairsFeatures はペアプロットに載せる、応答との相関が強い特徴量の数
	PairsFeatures int `yaml:"pairs_features,omitempty"`
}

// DefaultCrimeConfig はクライムレポートの既定設定
func DefaultCrimeConfig() Config {
	return Config{
		Response:      "Crime",
		Seed:          1,
		SplitFraction: 0.9,
		CV:            CVConfig{Method: "loocv"},
		LogLevel:      "info",
		PairsFeatures: 4,
	}
}

// DefaultCreditConfig はクレジットレポートの既定設定
func DefaultCreditConfig() Config {
	return Config{
		Response:      "R1",
		Seed:          1,
		SplitFraction: 0.8,
		CV:            CVConfig{Method: "repeatedcv", Folds: 10, Repeats: 3, Stratified: true},
		Grids: Grids{
			SVM: SVMGrid{
				Kernels:    []svm.Kernel{svm.Linear, svm.Polynomial, svm.Gaussian},
				Costs:      []float64{0.01, 0.1, 1, 10, 100},
				Degrees:    []int{2, 3},
				Bandwidths: []float64{0.01, 0.1, 1},
			},
			Neighbors: NeighborsGrid{From: 1, To: 25},
			ElasticNet: ElasticNetGrid{
				Alphas:  []float64{0, 0.25, 0.5, 0.75, 1},
				Lambdas: []float64{0.0001, 0.001, 0.01, 0.1},
			},
		},
		Parallel:      -1,
		LogLevel:      "info",
		PairsFeatures: 4,
	}
}

// LoadConfig は YAML ファイルを base の上に重ねて読み込む。
// ファイルに無いキーは base の値のまま残る。
func LoadConfig(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, errors.Wrapf(err, "read config %s", path)
	}
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return base, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return base, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate は設定値の範囲を検査する
func (c Config) Validate() error {
	if c.Response == "" {
		return errors.NewValidationError("response", "must name a column", c.Response)
	}
	if !(c.SplitFraction > 0 && c.SplitFraction < 1) {
		return errors.NewInvalidFractionError("Config", c.SplitFraction)
	}
	if _, err := c.CV.Scheme(); err != nil {
		return err
	}
	if c.CV.Method == "repeatedcv" && (c.CV.Folds < 2 || c.CV.Repeats < 1) {
		return errors.NewValidationError("cv", "repeatedcv needs folds >= 2 and repeats >= 1",
			fmt.Sprintf("folds=%d repeats=%d", c.CV.Folds, c.CV.Repeats))
	}
	if c.Grids.MaxComponents < 0 {
		return errors.NewValidationError("grids.max_components", "must be non-negative", c.Grids.MaxComponents)
	}
	for _, p := range c.Grids.SVM.Params() {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if n := c.Grids.Neighbors; n != (NeighborsGrid{}) && (n.From < 1 || n.To < n.From) {
		return errors.NewValidationError("grids.neighbors", "need 1 <= from <= to", fmt.Sprintf("%d..%d", n.From, n.To))
	}
	return nil
}
