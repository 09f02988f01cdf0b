package model_selection

import (
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/linear"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// spyEstimator records the row ids (column 0 of X) it was trained on and
// predicts the training mean.
type spyEstimator struct {
	mu   *sync.Mutex
	fits *[][]float64
	mean float64
	fail error
}

func (s *spyEstimator) Fit(X, y mat.Matrix) error {
	if s.fail != nil {
		return s.fail
	}
	ids := mat.Col(nil, 0, X)
	s.mu.Lock()
	*s.fits = append(*s.fits, ids)
	s.mu.Unlock()
	vals := dataset.Values(y)
	for _, v := range vals {
		s.mean += v
	}
	s.mean /= float64(len(vals))
	return nil
}

func (s *spyEstimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, s.mean)
	}
	return out, nil
}

func rowIDMatrix(n int) *mat.Dense {
	X := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
	}
	return X
}

func negMSE(yTrue, yPred []float64) (float64, error) {
	m, err := metrics.MSE(yTrue, yPred)
	return -m, err
}

func TestLeaveOneOut_ExcludesEachRowOnce(t *testing.T) {
	const n = 9
	X := rowIDMatrix(n)
	y := make([]float64, n)
	for i := range y {
		y[i] = float64(i * i)
	}

	var mu sync.Mutex
	var fits [][]float64
	factory := func() model.Estimator { return &spyEstimator{mu: &mu, fits: &fits} }

	res, err := CrossValidate(X, y, factory, LeaveOneOut{}, negMSE, NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, n, res.NFits)
	require.Len(t, fits, n)

	excluded := make(map[int]bool)
	for _, ids := range fits {
		require.Len(t, ids, n-1)
		present := make(map[int]bool)
		for _, id := range ids {
			present[int(id)] = true
		}
		for i := 0; i < n; i++ {
			if !present[i] {
				assert.False(t, excluded[i], "row %d excluded twice", i)
				excluded[i] = true
			}
		}
	}
	assert.Len(t, excluded, n)
	assert.Empty(t, res.FoldScores)
	assert.Zero(t, res.Std)
	assert.Equal(t, "loocv", res.Scheme)
}

func TestLeaveOneOut_PooledMetric(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	res, err := CrossValidate(rowIDMatrix(4), y, func() model.Estimator {
		var mu sync.Mutex
		var fits [][]float64
		return &spyEstimator{mu: &mu, fits: &fits}
	}, LeaveOneOut{}, negMSE, NewSource(1))
	require.NoError(t, err)

	// held-out means: 3, 8/3, 7/3, 2
	pred := []float64{3, 8.0 / 3, 7.0 / 3, 2}
	want, _ := metrics.MSE(y, pred)
	assert.InDelta(t, -want, res.Mean, 1e-12)
}

func TestRepeatedKFold_Coverage(t *testing.T) {
	y := make([]float64, 23)
	for i := range y {
		y[i] = float64(i % 2)
	}
	scheme := RepeatedKFold{Folds: 5, Repeats: 3}

	folds, err := scheme.Split(y, NewSource(9))
	require.NoError(t, err)
	require.Len(t, folds, 15)

	for rep := 0; rep < 3; rep++ {
		var held []int
		for _, f := range folds[rep*5 : rep*5+5] {
			assert.Equal(t, rep, f.Repeat)
			assert.Equal(t, len(y), len(f.Train)+len(f.Test))
			assert.GreaterOrEqual(t, len(f.Test), 4)
			assert.LessOrEqual(t, len(f.Test), 5)
			held = append(held, f.Test...)
		}
		sort.Ints(held)
		for i, r := range held {
			assert.Equal(t, i, r)
		}
	}
}

func TestRepeatedKFold_Stratified(t *testing.T) {
	y := make([]float64, 40)
	for i := 0; i < 10; i++ {
		y[i] = 1
	}
	scheme := RepeatedKFold{Folds: 5, Repeats: 2, Stratified: true}

	folds, err := scheme.Split(y, NewSource(4))
	require.NoError(t, err)
	for _, f := range folds {
		ones := 0
		for _, r := range f.Test {
			if y[r] == 1 {
				ones++
			}
		}
		assert.Len(t, f.Test, 8)
		assert.Equal(t, 2, ones)
	}
	assert.Equal(t, "stratified-repeatedcv(folds=5, repeats=2)", scheme.String())
}

func TestRepeatedKFold_Validation(t *testing.T) {
	y := make([]float64, 6)
	for _, s := range []RepeatedKFold{{Folds: 1, Repeats: 1}, {Folds: 7, Repeats: 1}, {Folds: 3, Repeats: 0}} {
		_, err := s.Split(y, NewSource(1))
		var vErr *errors.ValidationError
		assert.Truef(t, errors.As(err, &vErr), "%v: got %v", s, err)
	}
}

func TestCrossValidate_MeanAndStd(t *testing.T) {
	n := 60
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b := float64(i)/10, math.Sin(float64(i))
		X.Set(i, 0, a)
		X.Set(i, 1, b)
		y[i] = 1 + 2*a - b + 0.1*math.Cos(3*float64(i))
	}

	factory := func() model.Estimator { return linear.NewLinearRegression() }
	res, err := CrossValidate(X, y, factory, RepeatedKFold{Folds: 5, Repeats: 2}, metrics.R2Score, NewSource(11))
	require.NoError(t, err)

	require.Len(t, res.FoldScores, 10)
	assert.Equal(t, 10, res.NFits)
	assert.Len(t, res.Predictions, 2*n)
	sum := 0.0
	for _, s := range res.FoldScores {
		sum += s
	}
	assert.InDelta(t, sum/10, res.Mean, 1e-12)
	assert.Greater(t, res.Mean, 0.95)
	assert.Greater(t, res.Std, 0.0)
}

func TestCrossValidate_Errors(t *testing.T) {
	var mu sync.Mutex
	var fits [][]float64
	boom := errors.New("boom")
	factory := func() model.Estimator { return &spyEstimator{mu: &mu, fits: &fits, fail: boom} }

	_, err := CrossValidate(rowIDMatrix(5), make([]float64, 5), factory, LeaveOneOut{}, negMSE, NewSource(1))
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "repeat 0 fold 0")

	_, err = CrossValidate(rowIDMatrix(5), make([]float64, 4), factory, LeaveOneOut{}, negMSE, NewSource(1))
	var dimErr *errors.DimensionMismatchError
	assert.True(t, errors.As(err, &dimErr))
}
