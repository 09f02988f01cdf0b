package report

import (
	"time"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/linear"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/pkg/log"
	"github.com/YuminosukeSato/statlab/sklearn/decomposition"
	"github.com/YuminosukeSato/statlab/sklearn/model_selection"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// FeatureCoefficient は元の特徴量空間での係数
type FeatureCoefficient struct {
	Feature  string
	Estimate float64
}

// CrimeResult はクライムレポートの全出力
type CrimeResult struct {
	RunID        string
	Config       Config
	Rows         int
	Features     []string
	Summary      []dataset.ColumnSummary
	Correlations []dataset.CorrelationPair
	Split        model_selection.Split

	// OLS は全特徴量の線形回帰（訓練集合で学習）
	OLS        *FamilyResult
	OLSSummary *linear.Summary
	PCR        *FamilyResult
	// PCA は選択された PCR が訓練集合全体で学習した主成分変換
	PCA          *decomposition.PCA
	Coefficients []FeatureCoefficient
	Intercept    float64

	OLSTest    *RegressorEvaluation
	PCRTest    *RegressorEvaluation
	Comparison []ComparisonRow
	Plots      []string
}

// RunCrime は回帰レポートを実行する。
// 全特徴量の OLS と、成分数 k を掃引した主成分回帰を交差検証 R² で比較し、
// 選ばれた PCR の係数を元の特徴量空間に戻してテスト行で評価する。
func RunCrime(table *dataset.Table, cfg Config, logger log.Logger) (*CrimeResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.GetLoggerWithName("report")
	}
	runID := uuid.NewString()
	logger = logger.With(log.ReportKey, "crime", log.RunIDKey, runID)
	start := time.Now()

	res := &CrimeResult{RunID: runID, Config: cfg}
	X, y, features, err := table.XY(cfg.Response)
	if err != nil {
		return nil, err
	}
	res.Rows, res.Features = len(y), features

	// exploration
	res.Summary = dataset.Describe(table)
	corr, err := dataset.Correlate(table)
	if err != nil {
		return nil, err
	}
	if res.Correlations, err = corr.With(cfg.Response); err != nil {
		return nil, err
	}
	logger.Info("data explored",
		log.PhaseKey, log.PhaseExploration,
		log.SamplesKey, len(y),
		log.FeaturesKey, len(features),
	)

	split, err := model_selection.StratifiedSplit(y, cfg.SplitFraction, model_selection.NewSource(cfg.Seed))
	if err != nil {
		return nil, err
	}
	res.Split = split
	logger.Info("split computed",
		log.OperationKey, log.OperationSplit,
		log.RandomSeedKey, cfg.Seed,
		log.SplitFractionKey, cfg.SplitFraction,
		"train", len(split.Train),
		"test", len(split.Test),
	)
	Xtr, ytr := dataset.SubsetRows(X, split.Train), dataset.SubsetValues(y, split.Train)
	Xte, yte := dataset.SubsetRows(X, split.Test), dataset.SubsetValues(y, split.Test)

	scheme, err := cfg.CV.Scheme()
	if err != nil {
		return nil, err
	}
	search := model_selection.SearchConfig{
		Scheme:   scheme,
		Scorer:   metrics.R2Score,
		Seed:     cfg.Seed,
		Parallel: cfg.Parallel,
		Logger:   logger.With(log.PhaseKey, log.PhaseTraining),
	}

	res.OLS, err = runFamily("Linear regression", Xtr, ytr, []single{"all features"},
		func(single) model.Estimator { return linear.NewLinearRegression(linear.WithFeatureNames(features)) },
		nil, nil, search)
	if err != nil {
		return nil, err
	}
	if res.OLS.Selected() {
		res.OLSSummary = res.OLS.Model.(*linear.LinearRegression).Summary()
	}

	trainPCA := decomposition.NewPCA(decomposition.WithScale(true))
	if err := trainPCA.Fit(Xtr); err != nil {
		return nil, errors.Wrap(err, "PCA on training rows")
	}
	res.PCR, err = runFamily("PCR", Xtr, ytr, linear.ComponentGrid(maxComponents(cfg, trainPCA.NComponents(), len(ytr))),
		func(p linear.PCRParams) model.Estimator { return linear.NewPCRegression(p) },
		linear.FewerComponents, componentAxis, search)
	if err != nil {
		return nil, err
	}
	if !res.PCR.Selected() {
		return nil, errors.Wrap(errors.ErrNoCandidates, "PCR")
	}
	pcr := res.PCR.Model.(*linear.PCRegression)
	res.PCA = pcr.PCA()
	res.Intercept = pcr.Intercept()
	for j, b := range pcr.Coefficients() {
		res.Coefficients = append(res.Coefficients, FeatureCoefficient{Feature: features[j], Estimate: b})
	}

	testLogger := logger.With(log.PhaseKey, log.PhaseTesting, log.OperationKey, log.OperationEvaluate)
	if res.OLS.Selected() {
		if res.OLSTest, err = evaluateOnTest(res.OLS, Xte, yte, testLogger); err != nil {
			return nil, err
		}
		res.Comparison = append(res.Comparison, comparisonRow(res.OLS, "R²", res.OLSTest.R2))
	} else {
		res.Comparison = append(res.Comparison, excludedRow(res.OLS, "R²"))
	}
	if res.PCRTest, err = evaluateOnTest(res.PCR, Xte, yte, testLogger); err != nil {
		return nil, err
	}
	res.Comparison = append(res.Comparison, comparisonRow(res.PCR, "R²", res.PCRTest.R2))

	if cfg.OutputDir != "" {
		plots, err := crimePlots(cfg.OutputDir, table, res, yte)
		if err != nil {
			return nil, errors.Wrap(err, "write crime plots")
		}
		res.Plots = plots
	}

	logger.Info("report finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return res, nil
}

// maxComponents は PCR で掃引する成分数の上限。available は訓練行の PCA が残した成分数。
// 交差検証の訓練 fold は n-1 行以下なので、成分数は n-2 までに抑える
func maxComponents(cfg Config, available, trainRows int) int {
	k := available
	if cfg.Grids.MaxComponents > 0 && cfg.Grids.MaxComponents < k {
		k = cfg.Grids.MaxComponents
	}
	if k > trainRows-2 {
		k = trainRows - 2
	}
	if k < 1 {
		k = 1
	}
	return k
}

func evaluateOnTest(fr *FamilyResult, X mat.Matrix, y []float64, logger log.Logger) (*RegressorEvaluation, error) {
	ev, err := EvaluateRegressor(fr.Model, X, y)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s", fr.Family)
	}
	logger.Info("test set evaluated",
		log.ModelNameKey, fr.Family,
		log.R2ScoreKey, ev.R2,
		"rmse", ev.RMSE,
	)
	return ev, nil
}

func componentAxis(p linear.PCRParams) (string, float64) {
	return "PCR", float64(p.Components)
}
