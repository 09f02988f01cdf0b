package svm

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func accuracy(t *testing.T, s *SVC, X, y mat.Matrix) float64 {
	t.Helper()
	pred, err := s.Predict(X)
	require.NoError(t, err)
	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

func xorData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 1,
		0, 1,
		1, 0,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
	return X, y
}

func TestSVC_LinearSeparable(t *testing.T) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		0.5, 0.5,
		3, 3,
		3, 4,
		4, 3,
		3.5, 3.5,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	s := NewSVC(Params{Kernel: Linear, Cost: 10})
	require.NoError(t, s.Fit(X, y))
	assert.Equal(t, 1.0, accuracy(t, s, X, y))
	assert.GreaterOrEqual(t, s.NSupport(), 2)
	assert.Less(t, s.NSupport(), 8)
	assert.Equal(t, []float64{0, 1}, s.Classes())

	// dual feasibility: yᵀα = 0 and 0 ≤ α ≤ C
	sum := 0.0
	for _, c := range s.DualCoef() {
		sum += c
		assert.LessOrEqual(t, math.Abs(c), 10.0+1e-12)
	}
	assert.InDelta(t, 0, sum, 1e-9)
	assert.Len(t, s.SupportIndices(), s.NSupport())

	f, err := s.DecisionFunction(mat.NewDense(2, 2, []float64{-1, -1, 5, 5}))
	require.NoError(t, err)
	assert.Less(t, f.At(0, 0), 0.0)
	assert.Greater(t, f.At(1, 0), 0.0)
}

func TestSVC_NonLinearKernels(t *testing.T) {
	X, y := xorData()

	tests := []struct {
		name   string
		params Params
		want   float64
	}{
		{"gaussian separates xor", Params{Kernel: Gaussian, Cost: 10, Bandwidth: 1}, 1.0},
		{"quadratic separates xor", Params{Kernel: Polynomial, Cost: 10, Degree: 2}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSVC(tt.params)
			require.NoError(t, s.Fit(X, y))
			assert.Equal(t, tt.want, accuracy(t, s, X, y))
			assert.Equal(t, 4, s.NSupport())
		})
	}

	lin := NewSVC(Params{Kernel: Linear, Cost: 10})
	require.NoError(t, lin.Fit(X, y))
	assert.Less(t, accuracy(t, lin, X, y), 1.0, "xor is not linearly separable")
}

func TestSVC_IterationBudget(t *testing.T) {
	X, y := xorData()
	err := NewSVC(Params{Kernel: Gaussian, Cost: 1, Bandwidth: 1}, WithMaxIter(1)).Fit(X, y)
	assert.True(t, errors.IsNonConvergence(err), "got %v", err)
}

func TestSVC_Errors(t *testing.T) {
	X, y := xorData()
	var ve *errors.ValidationError

	for _, p := range []Params{
		{Kernel: Linear, Cost: 0},
		{Kernel: Polynomial, Cost: 1, Degree: 0},
		{Kernel: Gaussian, Cost: 1, Bandwidth: -1},
		{Kernel: "sigmoid", Cost: 1},
	} {
		err := NewSVC(p).Fit(X, y)
		assert.True(t, errors.As(err, &ve), "%v: got %v", p, err)
	}

	err := NewSVC(Params{Kernel: Linear, Cost: 1}).Fit(X, mat.NewDense(4, 1, []float64{0, 1, 2, 1}))
	assert.Error(t, err)

	_, err = NewSVC(Params{Kernel: Linear, Cost: 1}).Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestKernelFunc(t *testing.T) {
	x, z := []float64{1, 2}, []float64{3, -1}

	lin, err := NewKernelFunc(Params{Kernel: Linear, Cost: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, lin(x, z), 1e-12)

	poly, err := NewKernelFunc(Params{Kernel: Polynomial, Cost: 1, Degree: 3})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, poly(x, z), 1e-12)

	rbf, err := NewKernelFunc(Params{Kernel: Gaussian, Cost: 1, Bandwidth: 0.5})
	require.NoError(t, err)
	// ‖x−z‖² = 4 + 9
	assert.InDelta(t, math.Exp(-6.5), rbf(x, z), 1e-12)
	assert.InDelta(t, 1.0, rbf(x, x), 1e-12)
}

func TestSimplerAndGrid(t *testing.T) {
	grid := Grid([]Kernel{Linear, Polynomial, Gaussian}, []float64{0.1, 1}, []int{2, 3}, []float64{0.01})
	require.Len(t, grid, 2+4+2)
	assert.Equal(t, Params{Kernel: Polynomial, Cost: 0.1, Degree: 3}, grid[3])
	assert.Equal(t, "gaussian C=1 bandwidth=0.01", grid[7].String())
	assert.Equal(t, "linear C=0.1", grid[0].String())

	tests := []struct {
		a, b Params
		want bool
	}{
		{Params{Kernel: Gaussian, Cost: 0.1, Bandwidth: 1}, Params{Kernel: Linear, Cost: 1}, true},
		{Params{Kernel: Linear, Cost: 1}, Params{Kernel: Polynomial, Cost: 1, Degree: 2}, true},
		{Params{Kernel: Polynomial, Cost: 1, Degree: 2}, Params{Kernel: Gaussian, Cost: 1, Bandwidth: 0.1}, true},
		{Params{Kernel: Polynomial, Cost: 1, Degree: 3}, Params{Kernel: Polynomial, Cost: 1, Degree: 2}, false},
		{Params{Kernel: Gaussian, Cost: 1, Bandwidth: 0.01}, Params{Kernel: Gaussian, Cost: 1, Bandwidth: 0.1}, true},
		{Params{Kernel: Linear, Cost: 1}, Params{Kernel: Linear, Cost: 1}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Simpler(tt.a, tt.b), "Simpler(%v, %v)", tt.a, tt.b)
	}
}
