// Package svm provides a C-support vector classifier trained by sequential
// minimal optimisation.
package svm

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/core/parallel"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// tau replaces a non-positive curvature in the two-variable subproblem.
const tau = 1e-12

// SVC is a binary C-support vector classifier.
//
// The dual problem
//
//	min ½ αᵀQα − eᵀα   s.t. 0 ≤ αᵢ ≤ C, yᵀα = 0,  Qᵢⱼ = yᵢyⱼK(xᵢ, xⱼ)
//
// is solved by SMO, picking the maximal violating pair at each step. Features
// are standardized with the sample standard deviation before the kernel is
// applied. The larger of the two labels is the positive class.
type SVC struct {
	state   *model.StateManager
	params  Params
	maxIter int
	tol     float64
	scale   bool

	kernel   KernelFunc
	scaler   *preprocessing.StandardScaler
	sv       [][]float64
	svIndex  []int
	dualCoef []float64 // αᵢyᵢ of each support vector
	rho      float64
	classes  []float64
	nIter    int
}

var (
	_ model.Classifier      = (*SVC)(nil)
	_ model.ParameterGetter = (*SVC)(nil)
)

// Option configures an SVC.
type Option func(*SVC)

// WithMaxIter sets the SMO iteration budget (default 100000).
func WithMaxIter(n int) Option {
	return func(s *SVC) { s.maxIter = n }
}

// WithTol sets the KKT violation tolerance (default 1e-3).
func WithTol(tol float64) Option {
	return func(s *SVC) { s.tol = tol }
}

// WithScaling toggles standardization of the features (default true).
func WithScaling(scale bool) Option {
	return func(s *SVC) { s.scale = scale }
}

// NewSVC returns an unfitted classifier for p.
func NewSVC(p Params, opts ...Option) *SVC {
	s := &SVC{
		state:   model.NewStateManager(),
		params:  p,
		maxIter: 100000,
		tol:     1e-3,
		scale:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit solves the dual problem on X, y.
func (s *SVC) Fit(X, y mat.Matrix) error {
	kernel, err := NewKernelFunc(s.params)
	if err != nil {
		return err
	}
	if s.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", s.maxIter)
	}

	n, d := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("SVC.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionMismatchError("SVC.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("SVC.Fit", "y must be a column vector")
	}

	labels := mat.Col(nil, 0, y)
	classes := distinct(labels)
	if len(classes) != 2 {
		return errors.NewValueError("SVC.Fit", fmt.Sprintf("binary target required, got %d classes", len(classes)))
	}
	sign := make([]float64, n)
	for i, v := range labels {
		sign[i] = -1
		if v == classes[1] {
			sign[i] = 1
		}
	}

	Xs := X
	var scaler *preprocessing.StandardScaler
	if s.scale && n > 1 {
		scaler = preprocessing.NewStandardScaler(preprocessing.WithDDOF(1))
		if Xs, err = scaler.FitTransform(X); err != nil {
			return errors.Wrap(err, "SVC.Fit")
		}
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, Xs)
	}

	// カーネル行列は対称なので上三角だけ計算する
	K := mat.NewSymDense(n, nil)
	parallel.ParallelizeWithThreshold(n, 128, func(start, end int) {
		for i := start; i < end; i++ {
			for j := i; j < n; j++ {
				K.SetSym(i, j, kernel(rows[i], rows[j]))
			}
		}
	})

	alpha, rho, iters, err := s.smo(K, sign)
	s.nIter = iters
	if err != nil {
		return err
	}

	s.sv, s.svIndex, s.dualCoef = nil, nil, nil
	for i, a := range alpha {
		if a > 0 {
			s.sv = append(s.sv, rows[i])
			s.svIndex = append(s.svIndex, i)
			s.dualCoef = append(s.dualCoef, a*sign[i])
		}
	}
	s.kernel = kernel
	s.scaler = scaler
	s.rho = rho
	s.classes = classes
	s.state.SetFitted(n, d)
	return nil
}

func (s *SVC) smo(K *mat.SymDense, y []float64) (alpha []float64, rho float64, iters int, err error) {
	n := len(y)
	C := s.params.Cost
	alpha = make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}
	q := func(i, j int) float64 { return y[i] * y[j] * K.At(i, j) }

	upper := func(t int) bool { return alpha[t] >= C }
	lower := func(t int) bool { return alpha[t] <= 0 }

	gap := math.Inf(1)
	for iters = 0; iters < s.maxIter; iters++ {
		// maximal violating pair
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -y[t] * grad[t]
			if (y[t] > 0 && !upper(t)) || (y[t] < 0 && !lower(t)) {
				if v > gmax {
					gmax, i = v, t
				}
			}
			if (y[t] < 0 && !upper(t)) || (y[t] > 0 && !lower(t)) {
				if v < gmin {
					gmin, j = v, t
				}
			}
		}
		gap = gmax - gmin
		if i < 0 || j < 0 || gap < s.tol {
			return alpha, s.computeRho(alpha, grad, y), iters, nil
		}

		oldI, oldJ := alpha[i], alpha[j]
		if y[i] != y[j] {
			quad := K.At(i, i) + K.At(j, j) + 2*q(i, j)
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > 0 {
				if alpha[i] > C {
					alpha[i], alpha[j] = C, C-diff
				}
			} else if alpha[j] > C {
				alpha[j], alpha[i] = C, C+diff
			}
		} else {
			quad := K.At(i, i) + K.At(j, j) - 2*q(i, j)
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > C {
				if alpha[i] > C {
					alpha[i], alpha[j] = C, sum-C
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > C {
				if alpha[j] > C {
					alpha[j], alpha[i] = C, sum-C
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		di, dj := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += q(t, i)*di + q(t, j)*dj
		}
	}

	return nil, 0, s.maxIter, errors.NewNonConvergenceError("SVC.smo", s.maxIter, gap)
}

// computeRho averages yᵢGᵢ over free variables, or takes the midpoint of the
// feasible interval when none is free.
func (s *SVC) computeRho(alpha, grad, y []float64) float64 {
	C := s.params.Cost
	ub, lb := math.Inf(1), math.Inf(-1)
	sumFree, nFree := 0.0, 0
	for i := range alpha {
		yg := y[i] * grad[i]
		switch {
		case alpha[i] >= C:
			if y[i] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[i] <= 0:
			if y[i] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

// DecisionFunction returns Σ αᵢyᵢK(xᵢ, x) − ρ for each row; positive values
// predict the positive class.
func (s *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("SVC", "DecisionFunction"); err != nil {
		return nil, err
	}
	if err := s.state.CheckFeatures("SVC.DecisionFunction", X); err != nil {
		return nil, err
	}
	Xs := X
	if s.scaler != nil {
		var err error
		if Xs, err = s.scaler.Transform(X); err != nil {
			return nil, err
		}
	}

	n, _ := Xs.Dims()
	out := mat.NewDense(n, 1, nil)
	parallel.ParallelizeWithThreshold(n, 256, func(start, end int) {
		for r := start; r < end; r++ {
			row := mat.Row(nil, r, Xs)
			f := -s.rho
			for k, sv := range s.sv {
				f += s.dualCoef[k] * s.kernel(sv, row)
			}
			out.Set(r, 0, f)
		}
	})
	return out, nil
}

// Predict returns the predicted label of each row.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	f, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := f.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := s.classes[0]
		if f.At(i, 0) > 0 {
			label = s.classes[1]
		}
		out.Set(i, 0, label)
	}
	return out, nil
}

// NSupport returns the number of support vectors.
func (s *SVC) NSupport() int {
	return len(s.sv)
}

// SupportIndices returns the training row index of each support vector.
func (s *SVC) SupportIndices() []int {
	return append([]int(nil), s.svIndex...)
}

// DualCoef returns αᵢyᵢ for each support vector.
func (s *SVC) DualCoef() []float64 {
	return append([]float64(nil), s.dualCoef...)
}

// Rho returns the decision function offset.
func (s *SVC) Rho() float64 {
	return s.rho
}

// NIter returns the SMO iterations of the last Fit.
func (s *SVC) NIter() int {
	return s.nIter
}

// Classes returns the two labels seen during Fit in ascending order.
func (s *SVC) Classes() []float64 {
	return append([]float64(nil), s.classes...)
}

// Params returns the hyperparameters.
func (s *SVC) Params() Params {
	return s.params
}

// GetParams returns the hyperparameters as a map.
func (s *SVC) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel":    string(s.params.Kernel),
		"cost":      s.params.Cost,
		"degree":    s.params.Degree,
		"bandwidth": s.params.Bandwidth,
		"max_iter":  s.maxIter,
		"tol":       s.tol,
	}
}

func distinct(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
