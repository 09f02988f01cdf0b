package report

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/pkg/log"
	"github.com/YuminosukeSato/statlab/sklearn/linear_model"
	"github.com/YuminosukeSato/statlab/sklearn/model_selection"
	"github.com/YuminosukeSato/statlab/sklearn/neighbors"
	"github.com/YuminosukeSato/statlab/sklearn/svm"
	"github.com/google/uuid"
)

// CreditResult はクレジットレポートの全出力
type CreditResult struct {
	RunID        string
	Config       Config
	Rows         int
	Features     []string
	Summary      []dataset.ColumnSummary
	Correlations []dataset.CorrelationPair
	Split        model_selection.Split

	// Families は SVM, k-NN, ロジスティック回帰, elastic net の順
	Families []*FamilyResult
	// SupportVectors は選ばれた SVM を訓練集合全体で学習したときのサポートベクター数
	SupportVectors int
	Winner         *FamilyResult
	WinnerTest     *ClassifierEvaluation
	Comparison     []ComparisonRow
	Plots          []string
}

// RunCredit は分類レポートを実行する。
// 4つのモデル族それぞれで交差検証正解率が最大の点を選び、族の間でも正解率で比較して
// 勝者だけをテスト行で混同行列まで評価する。比較表には全族のテスト正解率も載せる。
func RunCredit(table *dataset.Table, cfg Config, logger log.Logger) (*CreditResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.GetLoggerWithName("report")
	}
	runID := uuid.NewString()
	logger = logger.With(log.ReportKey, "credit", log.RunIDKey, runID)
	start := time.Now()

	res := &CreditResult{RunID: runID, Config: cfg}
	X, y, features, err := table.XY(cfg.Response)
	if err != nil {
		return nil, err
	}
	res.Rows, res.Features = len(y), features

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
		Scorer:   metrics.Accuracy,
		Seed:     cfg.Seed,
		Parallel: cfg.Parallel,
		Logger:   logger.With(log.PhaseKey, log.PhaseTraining),
	}

	g := cfg.Grids
	if grid := g.SVM.Params(); len(grid) > 0 {
		fr, err := runFamily("SVM", Xtr, ytr, grid,
			func(p svm.Params) model.Estimator { return svm.NewSVC(p) },
			svm.Simpler, svmAxis, search)
		if err != nil {
			return nil, err
		}
		if fr.Selected() {
			res.SupportVectors = fr.Model.(*svm.SVC).NSupport()
		}
		res.Families = append(res.Families, fr)
	}
	if g.Neighbors.To > 0 {
		to := g.Neighbors.To
		// 最小の訓練 fold より大きい k は学習できない
		if limit := minTrainRows(scheme, len(ytr)); to > limit {
			to = limit
		}
		if grid := neighbors.KGrid(g.Neighbors.From, to); len(grid) > 0 {
			fr, err := runFamily("k-NN", Xtr, ytr, grid,
				func(p neighbors.Params) model.Estimator { return neighbors.NewKNeighborsClassifier(p) },
				neighbors.FewerNeighbors, neighborsAxis, search)
			if err != nil {
				return nil, err
			}
			res.Families = append(res.Families, fr)
		} else {
			logger.Warn("model family excluded: k range exceeds the smallest training fold",
				log.ModelNameKey, "k-NN",
				"from", g.Neighbors.From,
				"limit", to,
			)
			res.Families = append(res.Families, emptyFamily("k-NN", scheme))
		}
	}
	fr, err := runFamily("Logistic regression", Xtr, ytr, []single{"unpenalized"},
		func(single) model.Estimator { return linear_model.NewLogisticRegression() },
		nil, nil, search)
	if err != nil {
		return nil, err
	}
	res.Families = append(res.Families, fr)
	if grid := linear_model.ElasticNetGrid(g.ElasticNet.Alphas, g.ElasticNet.Lambdas); len(grid) > 0 {
		fr, err := runFamily("Elastic net", Xtr, ytr, grid,
			func(p linear_model.ElasticNetParams) model.Estimator { return linear_model.NewElasticNetLogistic(p) },
			linear_model.MoreRegularized, elasticNetAxis, search)
		if err != nil {
			return nil, err
		}
		res.Families = append(res.Families, fr)
	}

	testLogger := logger.With(log.PhaseKey, log.PhaseTesting, log.OperationKey, log.OperationEvaluate)
	for _, fr := range res.Families {
		if !fr.Selected() {
			res.Comparison = append(res.Comparison, excludedRow(fr, "accuracy"))
			continue
		}
		ev, err := EvaluateClassifier(fr.Model, Xte, yte)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluate %s", fr.Family)
		}
		// families are visited in listed order, so a CV tie keeps the earlier one
		if res.Winner == nil || fr.Score > res.Winner.Score+model_selection.TieTolerance {
			res.Winner, res.WinnerTest = fr, ev
		}
		res.Comparison = append(res.Comparison, comparisonRow(fr, "accuracy", ev.Accuracy))
		testLogger.Info("test set evaluated", log.ModelNameKey, fr.Family, log.AccuracyKey, ev.Accuracy)
	}
	if res.Winner == nil {
		return nil, errors.Wrap(errors.ErrNoCandidates, "no model family converged")
	}
	logger.Info("winner chosen",
		log.ModelNameKey, res.Winner.Family,
		log.GridPointKey, res.Winner.Best,
		log.AccuracyKey, res.WinnerTest.Accuracy,
	)

	if cfg.OutputDir != "" {
		plots, err := creditPlots(cfg.OutputDir, table, res)
		if err != nil {
			return nil, errors.Wrap(err, "write credit plots")
		}
		res.Plots = plots
	}

	logger.Info("report finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return res, nil
}

// minTrainRows は scheme の訓練 fold の最小行数
func minTrainRows(scheme model_selection.Scheme, n int) int {
	if kf, ok := scheme.(model_selection.RepeatedKFold); ok && kf.Folds > 0 {
		return n - (n+kf.Folds-1)/kf.Folds
	}
	return n - 1
}

// svmAxis groups SVM grid points by kernel configuration over log10(cost).
func svmAxis(p svm.Params) (string, float64) {
	series := string(p.Kernel)
	switch p.Kernel {
	case svm.Polynomial:
		series = fmt.Sprintf("%s degree=%d", p.Kernel, p.Degree)
	case svm.Gaussian:
		series = fmt.Sprintf("%s bandwidth=%g", p.Kernel, p.Bandwidth)
	}
	return series, math.Log10(p.Cost)
}

func neighborsAxis(p neighbors.Params) (string, float64) {
	return "k-NN", float64(p.K)
}

func elasticNetAxis(p linear_model.ElasticNetParams) (string, float64) {
	return fmt.Sprintf("alpha=%g", p.Alpha), math.Log10(p.Lambda)
}
