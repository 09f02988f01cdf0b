// Package neighbors provides a k-nearest-neighbour classifier.
package neighbors

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/statlab/core/model"
	"github.com/YuminosukeSato/statlab/core/parallel"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/preprocessing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Metric names a distance function.
type Metric string

const (
	Euclidean Metric = "euclidean"
	Manhattan Metric = "manhattan"
)

// Params is one point of a k-NN grid.
type Params struct {
	K int `yaml:"k"`
}

func (p Params) String() string {
	return fmt.Sprintf("k=%d", p.K)
}

// KGrid returns Params for every k in [from, to], or nil when to < from.
func KGrid(from, to int) []Params {
	if to < from {
		return nil
	}
	grid := make([]Params, 0, to-from+1)
	for k := from; k <= to; k++ {
		grid = append(grid, Params{K: k})
	}
	return grid
}

// FewerNeighbors reports whether a uses a smaller k than b.
func FewerNeighbors(a, b Params) bool {
	return a.K < b.K
}

// KNeighborsClassifier classifies a row by majority vote among its k nearest
// training rows.
//
// Features are standardized with a scaler fitted on the training rows. Rows
// at equal distance keep training order; when two or more classes share the
// highest vote count the class of the closest of those neighbours wins.
type KNeighborsClassifier struct {
	state  *model.StateManager
	params Params
	metric Metric
	scale  bool

	scaler  *preprocessing.StandardScaler
	train   [][]float64
	labels  []float64
	classes []float64
}

var (
	_ model.Classifier      = (*KNeighborsClassifier)(nil)
	_ model.ParameterGetter = (*KNeighborsClassifier)(nil)
)

// Option configures a KNeighborsClassifier.
type Option func(*KNeighborsClassifier)

// WithMetric sets the distance function (default Euclidean).
func WithMetric(m Metric) Option {
	return func(c *KNeighborsClassifier) { c.metric = m }
}

// WithScaling toggles standardization of the features (default true).
func WithScaling(scale bool) Option {
	return func(c *KNeighborsClassifier) { c.scale = scale }
}

// NewKNeighborsClassifier returns an unfitted classifier.
func NewKNeighborsClassifier(params Params, opts ...Option) *KNeighborsClassifier {
	c := &KNeighborsClassifier{
		state:  model.NewStateManager(),
		params: params,
		metric: Euclidean,
		scale:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fit stores the standardized training rows.
func (c *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	n, d := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("KNeighborsClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionMismatchError("KNeighborsClassifier.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("KNeighborsClassifier.Fit", "y must be a column vector")
	}
	if c.params.K < 1 || c.params.K > n {
		return errors.NewValidationError("k", fmt.Sprintf("must be in [1, %d]", n), c.params.K)
	}
	if c.metric != Euclidean && c.metric != Manhattan {
		return errors.NewValidationError("metric", "unknown metric", string(c.metric))
	}

	Xs := mat.Matrix(X)
	if c.scale {
		c.scaler = preprocessing.NewStandardScaler(preprocessing.WithDDOF(1))
		if n < 2 {
			c.scaler = preprocessing.NewStandardScaler()
		}
		var err error
		if Xs, err = c.scaler.FitTransform(X); err != nil {
			return errors.Wrap(err, "KNeighborsClassifier.Fit")
		}
	}

	c.train = make([][]float64, n)
	for i := range c.train {
		c.train[i] = mat.Row(nil, i, Xs)
	}
	c.labels = mat.Col(nil, 0, y)

	classes := append([]float64(nil), c.labels...)
	sort.Float64s(classes)
	c.classes = classes[:0]
	for i, v := range classes {
		if i == 0 || v != classes[i-1] {
			c.classes = append(c.classes, v)
		}
	}

	c.state.SetFitted(n, d)
	return nil
}

// Predict returns the voted class of each row.
func (c *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted("KNeighborsClassifier", "Predict"); err != nil {
		return nil, err
	}
	if err := c.state.CheckFeatures("KNeighborsClassifier.Predict", X); err != nil {
		return nil, err
	}

	Xs := X
	if c.scaler != nil {
		var err error
		if Xs, err = c.scaler.Transform(X); err != nil {
			return nil, err
		}
	}

	n, _ := Xs.Dims()
	out := mat.NewDense(n, 1, nil)
	parallel.ParallelizeWithThreshold(n, 256, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, 0, c.vote(c.neighbors(mat.Row(nil, i, Xs))))
		}
	})
	return out, nil
}

// Kneighbors returns the training row indices of the k nearest neighbours of
// each row, closest first.
func (c *KNeighborsClassifier) Kneighbors(X mat.Matrix) ([][]int, error) {
	if err := c.state.RequireFitted("KNeighborsClassifier", "Kneighbors"); err != nil {
		return nil, err
	}
	if err := c.state.CheckFeatures("KNeighborsClassifier.Kneighbors", X); err != nil {
		return nil, err
	}
	Xs := X
	if c.scaler != nil {
		var err error
		if Xs, err = c.scaler.Transform(X); err != nil {
			return nil, err
		}
	}
	n, _ := Xs.Dims()
	out := make([][]int, n)
	for i := range out {
		out[i] = c.neighbors(mat.Row(nil, i, Xs))
	}
	return out, nil
}

func (c *KNeighborsClassifier) neighbors(row []float64) []int {
	type neighbor struct {
		index    int
		distance float64
	}

	all := make([]neighbor, len(c.train))
	for i, t := range c.train {
		all[i] = neighbor{index: i, distance: c.distance(row, t)}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].distance < all[j].distance
	})

	k := c.params.K
	idx := make([]int, k)
	for i := 0; i < k; i++ {
		idx[i] = all[i].index
	}
	return idx
}

func (c *KNeighborsClassifier) distance(a, b []float64) float64 {
	if c.metric == Manhattan {
		return floats.Distance(a, b, 1)
	}
	return floats.Distance(a, b, 2)
}

// vote expects neighbours ordered closest first.
func (c *KNeighborsClassifier) vote(neighbors []int) float64 {
	counts := make(map[float64]int, len(c.classes))
	best := 0
	for _, i := range neighbors {
		counts[c.labels[i]]++
		if counts[c.labels[i]] > best {
			best = counts[c.labels[i]]
		}
	}
	for _, i := range neighbors {
		if counts[c.labels[i]] == best {
			return c.labels[i]
		}
	}
	return math.NaN()
}

// Classes returns the labels seen during Fit in ascending order.
func (c *KNeighborsClassifier) Classes() []float64 {
	return append([]float64(nil), c.classes...)
}

// Params returns the hyperparameters.
func (c *KNeighborsClassifier) Params() Params {
	return c.params
}

// GetParams returns the hyperparameters as a map.
func (c *KNeighborsClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"k":      c.params.K,
		"metric": string(c.metric),
		"scale":  c.scale,
	}
}
