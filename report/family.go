package report

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/pkg/log"
	"github.com/YuminosukeSato/statlab/sklearn/model_selection"
	"gonum.org/v1/gonum/mat"
)

// GridRow は1グリッド点の交差検証結果。収束しなかった点は Err に理由が入る。
// Series と X は CV 曲線を描くときの系列名と横軸の値
type GridRow struct {
	Params    string
	Series    string
	X         float64
	Score     float64
	Std       float64
	Converged bool
	Err       string
}

// FamilyResult はモデル族ごとの探索・選択結果。Model は選ばれた点を訓練集合全体で学習し直したもの。
// すべての格子点が除外された族は Model が nil で Index が -1
type FamilyResult struct {
	Family   string
	Scheme   string
	Best     string
	Index    int
	Score    float64
	Std      float64
	Ties     int
	Excluded int
	Grid     []GridRow
	CV       *model_selection.CVResult
	Model    model.Estimator
}

// Selected は族に選ばれた点があるかを返す
func (fr *FamilyResult) Selected() bool {
	return fr.Model != nil
}

// single は探索するハイパーパラメータを持たないモデルの格子点
type single string

func (s single) String() string { return string(s) }

// runFamily は grid を交差検証し、最良点を選んで訓練集合全体で再学習する
// axis が nil なら GridRow の Series と X は空のまま。
func runFamily[P fmt.Stringer](family string, X *mat.Dense, y []float64, grid []P, build func(P) model.Estimator, simpler func(a, b P) bool, axis func(P) (string, float64), cfg model_selection.SearchConfig) (*FamilyResult, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.GetLoggerWithName("report")
	}
	logger := cfg.Logger.With(log.ModelNameKey, family)
	cfg.Logger = logger
	start := time.Now()

	results, err := model_selection.GridSearch(X, y, grid, build, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "%s grid search", family)
	}

	fr := &FamilyResult{Family: family, Scheme: cfg.Scheme.String(), Index: -1, Grid: make([]GridRow, len(results))}
	for i, r := range results {
		row := GridRow{Params: r.Params.String(), Converged: r.Converged()}
		if axis != nil {
			row.Series, row.X = axis(r.Params)
		}
		if row.Converged {
			row.Score, row.Std = r.CV.Mean, r.CV.Std
		} else if r.Err != nil {
			row.Err = r.Err.Error()
		}
		fr.Grid[i] = row
	}

	sel, err := model_selection.Select(results, simpler)
	if errors.Is(err, errors.ErrNoCandidates) {
		fr.Excluded = sel.Excluded
		fr.Score, fr.Std = math.NaN(), math.NaN()
		logger.Warn("model family excluded: no grid point converged",
			log.OperationKey, log.OperationSelect,
			"excluded", fr.Excluded,
		)
		return fr, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s selection", family)
	}
	fr.Best = sel.Params.String()
	fr.Index, fr.Score, fr.Std, fr.CV = sel.Index, sel.Score, sel.Std, sel.CV
	fr.Ties, fr.Excluded = sel.Ties, sel.Excluded

	est := build(sel.Params)
	if err := est.Fit(X, dataset.ColumnVector(y)); err != nil {
		return nil, errors.Wrapf(err, "%s refit %s", family, fr.Best)
	}
	fr.Model = est

	logger.Info("model selected",
		log.OperationKey, log.OperationSelect,
		log.GridPointKey, fr.Best,
		"metric", fr.Score,
		log.MetricStdKey, fr.Std,
		"ties", fr.Ties,
		"excluded", fr.Excluded,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return fr, nil
}

// emptyFamily は探索する格子点が一つもなかった族
func emptyFamily(family string, scheme model_selection.Scheme) *FamilyResult {
	return &FamilyResult{Family: family, Scheme: scheme.String(), Index: -1, Score: math.NaN(), Std: math.NaN()}
}

// ComparisonRow は最終比較表の1行。Excluded の行はスコアが NaN
type ComparisonRow struct {
	Model     string
	Params    string
	Metric    string
	CVScore   float64
	CVStd     float64
	TestScore float64
	Excluded  bool
}

func comparisonRow(fr *FamilyResult, metric string, test float64) ComparisonRow {
	return ComparisonRow{
		Model:     fr.Family,
		Params:    fr.Best,
		Metric:    metric,
		CVScore:   fr.Score,
		CVStd:     fr.Std,
		TestScore: test,
	}
}

func excludedRow(fr *FamilyResult, metric string) ComparisonRow {
	return ComparisonRow{
		Model:     fr.Family,
		Metric:    metric,
		CVScore:   math.NaN(),
		CVStd:     math.NaN(),
		TestScore: math.NaN(),
		Excluded:  true,
	}
}
