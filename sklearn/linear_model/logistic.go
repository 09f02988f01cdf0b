// Package linear_model provides binary logistic regression with an optional
// elastic-net penalty.
package linear_model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// minWeight bounds the IRLS weights p(1-p) away from zero.
const minWeight = 1e-5

// ElasticNetParams is one point of an elastic-net grid.
//
// The penalty is Lambda * ((1-Alpha)/2 * ||β||² + Alpha * ||β||₁):
// Alpha = 0 is ridge, Alpha = 1 is lasso, Lambda = 0 is the unpenalized MLE.
type ElasticNetParams struct {
	Alpha  float64 `yaml:"alpha"`
	Lambda float64 `yaml:"lambda"`
}

func (p ElasticNetParams) String() string {
	return fmt.Sprintf("alpha=%g lambda=%g", p.Alpha, p.Lambda)
}

// ElasticNetGrid returns the cross product of alphas and lambdas, alpha-major.
func ElasticNetGrid(alphas, lambdas []float64) []ElasticNetParams {
	grid := make([]ElasticNetParams, 0, len(alphas)*len(lambdas))
	for _, a := range alphas {
		for _, l := range lambdas {
			grid = append(grid, ElasticNetParams{Alpha: a, Lambda: l})
		}
	}
	return grid
}

// MoreRegularized reports whether a is the simpler model: larger Lambda, then
// larger Alpha.
func MoreRegularized(a, b ElasticNetParams) bool {
	if a.Lambda != b.Lambda {
		return a.Lambda > b.Lambda
	}
	return a.Alpha > b.Alpha
}

// LogisticRegression implements binary logistic regression.
//
// The fit follows Friedman, Hastie & Tibshirani (2010): an outer IRLS loop
// builds a weighted least squares approximation of the log-likelihood and an
// inner cyclic coordinate descent solves it under the elastic-net penalty with
// soft-thresholding. Features are standardized internally (population
// standard deviation); coefficients are reported on the original scale and the intercept is never penalized.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	alpha    float64 // Mixing between ridge (0) and lasso (1)
	lambda   float64 // Overall penalty strength
	maxIter  int     // Maximum IRLS iterations
	maxInner int     // Maximum coordinate descent sweeps per IRLS iteration
	tol      float64 // Tolerance for stopping

	// Model parameters
	coef      []float64
	intercept float64
	classes   []float64
	nIter     int
}

var (
	_ model.Classifier      = (*LogisticRegression)(nil)
	_ model.ParameterGetter = (*LogisticRegression)(nil)
)

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates an unpenalized LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:    model.NewStateManager(),
		maxIter:  100,
		maxInner: 1000,
		tol:      1e-7,
	}

	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// NewElasticNetLogistic creates a LogisticRegression penalized by p.
func NewElasticNetLogistic(p ElasticNetParams, opts ...LogisticRegressionOption) *LogisticRegression {
	return NewLogisticRegression(append([]LogisticRegressionOption{WithElasticNet(p.Alpha, p.Lambda)}, opts...)...)
}

// Option functions

// WithElasticNet sets the penalty mixing and strength
func WithElasticNet(alpha, lambda float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.alpha = alpha
		lr.lambda = lambda
	}
}

// WithLRMaxIter sets the maximum number of IRLS iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRMaxInnerIter sets the maximum number of coordinate descent sweeps
func WithLRMaxInnerIter(maxInner int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxInner = maxInner
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

func (lr *LogisticRegression) validate() error {
	if lr.alpha < 0 || lr.alpha > 1 || math.IsNaN(lr.alpha) {
		return errors.NewValidationError("alpha", "must be in [0, 1]", lr.alpha)
	}
	if lr.lambda < 0 || math.IsNaN(lr.lambda) {
		return errors.NewValidationError("lambda", "must be non-negative", lr.lambda)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	if lr.maxInner <= 0 {
		return errors.NewValidationError("max_inner_iter", "must be positive", lr.maxInner)
	}
	if lr.tol <= 0 {
		return errors.NewValidationError("tol", "must be positive", lr.tol)
	}
	return nil
}

// Fit trains the logistic regression model. y must hold exactly two distinct
// labels; the larger one is the positive class.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validate(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != nSamples {
		return errors.NewDimensionMismatchError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", "y must be a column vector")
	}

	classes := uniqueSorted(mat.Col(nil, 0, y))
	if len(classes) != 2 {
		return errors.NewValueError("LogisticRegression.Fit", fmt.Sprintf("binary target required, got %d classes", len(classes)))
	}

	target := make([]float64, nSamples)
	for i := range target {
		if y.At(i, 0) == classes[1] {
			target[i] = 1
		}
	}

	scaler := preprocessing.NewStandardScaler()
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "LogisticRegression.Fit")
	}
	Xs := mat.DenseCopyOf(scaled)
	// 定数列は係数0のまま据え置く
	for j := 0; j < nFeatures; j++ {
		if isConstant(X, j) {
			for i := 0; i < nSamples; i++ {
				Xs.Set(i, j, 0)
			}
		}
	}

	beta, b0, iters, err := lr.solve(Xs, target)
	lr.nIter = iters
	if err != nil {
		return err
	}

	// 元のスケールに戻す
	lr.coef = make([]float64, nFeatures)
	lr.intercept = b0
	for j := range beta {
		lr.coef[j] = beta[j] / scaler.Scale[j]
		lr.intercept -= lr.coef[j] * scaler.Mean[j]
	}
	lr.classes = classes

	lr.state.SetFitted(nSamples, nFeatures)
	return nil
}

// solve runs IRLS with an inner coordinate descent on standardized data.
func (lr *LogisticRegression) solve(X *mat.Dense, y []float64) (beta []float64, b0 float64, iters int, err error) {
	n, p := X.Dims()
	nf := float64(n)

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= nf
	b0 = math.Log(mean / (1 - mean))
	beta = make([]float64, p)

	l1 := lr.lambda * lr.alpha
	l2 := lr.lambda * (1 - lr.alpha)

	eta := make([]float64, n)
	w := make([]float64, n)
	r := make([]float64, n)
	xj := make([]float64, n)
	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}

	lastDelta := math.Inf(1)
	for iter := 1; iter <= lr.maxIter; iter++ {
		// 作業応答 z = η + (y - p)/w に対する残差 r = z - η
		for i := 0; i < n; i++ {
			eta[i] = b0
			for j := 0; j < p; j++ {
				eta[i] += cols[j][i] * beta[j]
			}
			prob := errors.Sigmoid(eta[i])
			w[i] = math.Max(prob*(1-prob), minWeight)
			r[i] = (y[i] - prob) / w[i]
		}

		prevBeta := append([]float64(nil), beta...)
		prevB0 := b0

		for sweep := 0; sweep < lr.maxInner; sweep++ {
			maxChange := 0.0

			for j := 0; j < p; j++ {
				copy(xj, cols[j])
				var xwx, grad float64
				for i := 0; i < n; i++ {
					xwx += w[i] * xj[i] * xj[i]
					grad += w[i] * xj[i] * r[i]
				}
				xwx /= nf
				if xwx == 0 {
					continue
				}
				grad = grad/nf + xwx*beta[j]

				updated := softThreshold(grad, l1) / (xwx + l2)
				if d := updated - beta[j]; d != 0 {
					for i := 0; i < n; i++ {
						r[i] -= xj[i] * d
					}
					maxChange = math.Max(maxChange, xwx*d*d)
					beta[j] = updated
				}
			}

			// 切片は罰則なし
			var sw, swr float64
			for i := 0; i < n; i++ {
				sw += w[i]
				swr += w[i] * r[i]
			}
			if d := swr / sw; d != 0 {
				for i := 0; i < n; i++ {
					r[i] -= d
				}
				maxChange = math.Max(maxChange, sw/nf*d*d)
				b0 += d
			}

			// maxChange は重み付き二乗変化量
			if maxChange < lr.tol*lr.tol {
				break
			}
		}

		if err := errors.CheckNumericalStability("LogisticRegression.irls", beta, iter); err != nil {
			return nil, 0, iter, err
		}
		if err := errors.CheckScalar("LogisticRegression.irls", b0, iter); err != nil {
			return nil, 0, iter, err
		}

		lastDelta = math.Abs(b0 - prevB0)
		scale := 1 + math.Abs(b0)
		for j := range beta {
			lastDelta = math.Max(lastDelta, math.Abs(beta[j]-prevBeta[j]))
			scale = math.Max(scale, 1+math.Abs(beta[j]))
		}
		if lastDelta <= 100*lr.tol*scale {
			return beta, b0, iter, nil
		}
	}

	return nil, 0, lr.maxIter, errors.NewNonConvergenceError("LogisticRegression.irls", lr.maxIter, lastDelta)
}

func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}

func uniqueSorted(values []float64) []float64 {
	seen := make(map[float64]struct{}, 2)
	out := make([]float64, 0, 2)
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func isConstant(X mat.Matrix, j int) bool {
	r, _ := X.Dims()
	for i := 1; i < r; i++ {
		if X.At(i, j) != X.At(0, j) {
			return false
		}
	}
	return true
}

// DecisionFunction returns the linear predictor b0 + xβ for each row
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	if err := lr.state.CheckFeatures("LogisticRegression.DecisionFunction", X); err != nil {
		return nil, err
	}

	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	out.Mul(X, mat.NewVecDense(len(lr.coef), append([]float64(nil), lr.coef...)))
	for i := 0; i < n; i++ {
		out.Set(i, 0, out.At(i, 0)+lr.intercept)
	}
	return out, nil
}

// PredictProba returns an n×2 matrix of class probabilities ordered as Classes
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	eta, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := eta.Dims()
	proba := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p := errors.Sigmoid(eta.At(i, 0))
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict makes predictions for input data, thresholding the positive class
// probability at 0.5
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	eta, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, _ := eta.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		label := lr.classes[0]
		if eta.At(i, 0) >= 0 {
			label = lr.classes[1]
		}
		out.Set(i, 0, label)
	}
	return out, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := pred.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Coefficients returns the coefficients on the original feature scale
func (lr *LogisticRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.coef...)
}

// Intercept returns the intercept on the original feature scale
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept
}

// Classes returns the two labels seen during Fit in ascending order
func (lr *LogisticRegression) Classes() []float64 {
	return append([]float64(nil), lr.classes...)
}

// NIter returns the number of IRLS iterations of the last Fit
func (lr *LogisticRegression) NIter() int {
	return lr.nIter
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":          lr.alpha,
		"lambda":         lr.lambda,
		"max_iter":       lr.maxIter,
		"max_inner_iter": lr.maxInner,
		"tol":            lr.tol,
	}
}
