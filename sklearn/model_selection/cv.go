package model_selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Fold is one resampling step: fit on Train, predict Test.
type Fold struct {
	Repeat int
	Index  int
	Train  []int
	Test   []int
}

// Scheme generates the folds of a cross-validation plan.
type Scheme interface {
	// Split returns the folds for the rows of response y.
	Split(y []float64, rng RandomSource) ([]Fold, error)
	// Pooled reports whether the metric is computed once over all held-out
	// predictions instead of per fold.
	Pooled() bool
	String() string
}

// LeaveOneOut holds out each row once. The metric is computed on the pooled
// held-out predictions since a single-row R² is undefined.
type LeaveOneOut struct{}

// Split returns n folds, fold i holding out row i.
func (LeaveOneOut) Split(y []float64, _ RandomSource) ([]Fold, error) {
	n := len(y)
	if n < 2 {
		return nil, errors.NewValueError("LeaveOneOut", "need at least 2 rows")
	}
	folds := make([]Fold, n)
	for i := 0; i < n; i++ {
		train := make([]int, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				train = append(train, j)
			}
		}
		folds[i] = Fold{Index: i, Train: train, Test: []int{i}}
	}
	return folds, nil
}

// Pooled is true for leave-one-out.
func (LeaveOneOut) Pooled() bool { return true }

func (LeaveOneOut) String() string { return "loocv" }

// RepeatedKFold reshuffles the rows Repeats times and splits each shuffle into
// Folds folds. With Stratified set, rows of each stratum (see Strata) are
// dealt to folds in turn so every fold keeps the response distribution.
type RepeatedKFold struct {
	Folds      int  `yaml:"folds"`
	Repeats    int  `yaml:"repeats"`
	Stratified bool `yaml:"stratified"`
}

func (r RepeatedKFold) validate(n int) error {
	if r.Folds < 2 || r.Folds > n {
		return errors.NewValidationError("folds", fmt.Sprintf("must be in [2, %d]", n), r.Folds)
	}
	if r.Repeats < 1 {
		return errors.NewValidationError("repeats", "must be at least 1", r.Repeats)
	}
	return nil
}

// Split returns Folds×Repeats folds, repeat-major.
func (r RepeatedKFold) Split(y []float64, rng RandomSource) ([]Fold, error) {
	n := len(y)
	if err := r.validate(n); err != nil {
		return nil, err
	}

	var strata [][]int
	if r.Stratified {
		strata = Strata(y)
	} else {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		strata = [][]int{all}
	}

	folds := make([]Fold, 0, r.Folds*r.Repeats)
	for rep := 0; rep < r.Repeats; rep++ {
		assign := make([]int, n)
		offset := 0
		for _, s := range strata {
			perm := append([]int(nil), s...)
			rng.Shuffle(len(perm), func(i, j int) {
				perm[i], perm[j] = perm[j], perm[i]
			})
			if r.Stratified {
				for pos, row := range perm {
					assign[row] = (offset + pos) % r.Folds
				}
				offset += len(perm)
				continue
			}
			// contiguous blocks, the first n%Folds folds one row larger
			size, rem := n/r.Folds, n%r.Folds
			pos := 0
			for f := 0; f < r.Folds; f++ {
				end := pos + size
				if f < rem {
					end++
				}
				for _, row := range perm[pos:end] {
					assign[row] = f
				}
				pos = end
			}
		}

		for f := 0; f < r.Folds; f++ {
			fold := Fold{Repeat: rep, Index: f}
			for row, a := range assign {
				if a == f {
					fold.Test = append(fold.Test, row)
				} else {
					fold.Train = append(fold.Train, row)
				}
			}
			folds = append(folds, fold)
		}
	}
	return folds, nil
}

// Pooled is false: the metric is averaged over folds.
func (RepeatedKFold) Pooled() bool { return false }

func (r RepeatedKFold) String() string {
	name := "repeatedcv"
	if r.Stratified {
		name = "stratified-repeatedcv"
	}
	return fmt.Sprintf("%s(folds=%d, repeats=%d)", name, r.Folds, r.Repeats)
}

// FoldPrediction is one held-out prediction.
type FoldPrediction struct {
	Repeat    int
	Fold      int
	Row       int
	Truth     float64
	Predicted float64
}

// CVResult summarises a cross-validation run.
type CVResult struct {
	Scheme string
	// Mean is the cross-validated metric: the pooled score for leave-one-out,
	// the mean fold score otherwise.
	Mean float64
	// Std is the sample standard deviation of FoldScores (0 when pooled).
	Std         float64
	FoldScores  []float64
	NFits       int
	Predictions []FoldPrediction
}

// CrossValidate fits a fresh estimator from factory on every fold of scheme
// and scores its held-out predictions with scorer.
func CrossValidate(X mat.Matrix, y []float64, factory func() model.Estimator, scheme Scheme, scorer metrics.Scorer, rng RandomSource) (*CVResult, error) {
	n, _ := X.Dims()
	if n != len(y) {
		return nil, errors.NewDimensionMismatchError("CrossValidate", n, len(y), 0)
	}

	folds, err := scheme.Split(y, rng)
	if err != nil {
		return nil, err
	}

	res := &CVResult{Scheme: scheme.String()}
	for _, f := range folds {
		est := factory()
		if err := est.Fit(dataset.SubsetRows(X, f.Train), dataset.ColumnVector(dataset.SubsetValues(y, f.Train))); err != nil {
			return nil, errors.Wrapf(err, "repeat %d fold %d", f.Repeat, f.Index)
		}
		res.NFits++

		pred, err := est.Predict(dataset.SubsetRows(X, f.Test))
		if err != nil {
			return nil, errors.Wrapf(err, "repeat %d fold %d", f.Repeat, f.Index)
		}
		yPred := dataset.Values(pred)
		yTrue := dataset.SubsetValues(y, f.Test)
		for k, row := range f.Test {
			res.Predictions = append(res.Predictions, FoldPrediction{
				Repeat:    f.Repeat,
				Fold:      f.Index,
				Row:       row,
				Truth:     yTrue[k],
				Predicted: yPred[k],
			})
		}

		if !scheme.Pooled() {
			score, err := scorer(yTrue, yPred)
			if err != nil {
				return nil, errors.Wrapf(err, "scoring repeat %d fold %d", f.Repeat, f.Index)
			}
			res.FoldScores = append(res.FoldScores, score)
		}
	}

	if scheme.Pooled() {
		sorted := append([]FoldPrediction(nil), res.Predictions...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Row < sorted[j].Row })
		truth := make([]float64, len(sorted))
		pred := make([]float64, len(sorted))
		for i, p := range sorted {
			truth[i], pred[i] = p.Truth, p.Predicted
		}
		score, err := scorer(truth, pred)
		if err != nil {
			return nil, errors.Wrap(err, "scoring pooled predictions")
		}
		res.Mean = score
		return res, nil
	}

	res.Mean = stat.Mean(res.FoldScores, nil)
	if len(res.FoldScores) > 1 {
		res.Std = stat.StdDev(res.FoldScores, nil)
	}
	if math.IsNaN(res.Mean) {
		return nil, errors.NewValueError("CrossValidate", "metric is NaN")
	}
	return res, nil
}
