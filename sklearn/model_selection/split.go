// Package model_selection provides the stratified train/test partition,
// cross-validation schemes, hyperparameter grid search and model selection.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/pkg/errors"
)

// MaxClassLevels is the largest number of distinct response values treated
// as classes when stratifying. Responses with more distinct values are
// binned by quantile.
const MaxClassLevels = 10

// quantileBreaks is the number of quantile break points used to bin a
// continuous response.
const quantileBreaks = 5

// RandomSource shuffles index ranges. *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	Shuffle(n int, swap func(i, j int))
}

// NewSource returns the PCG source used for the train/test partition.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// StreamSource returns an independent PCG stream for the given seed. Grid
// point i uses stream i+1.
func StreamSource(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// Split holds ascending row indices of the training and test subsets.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions rows 0..len(y)-1 so that each stratum of y puts
// ceil(p·n) of its rows into Train. Strata are visited in ascending key order
// and shuffled with rng, so the result depends only on y, p and the state of
// rng.
func StratifiedSplit(y []float64, p float64, rng RandomSource) (Split, error) {
	if !(p > 0 && p < 1) {
		return Split{}, errors.NewInvalidFractionError("StratifiedSplit", p)
	}
	if len(y) == 0 {
		return Split{}, errors.NewModelError("StratifiedSplit", "empty response", errors.ErrEmptyData)
	}

	var split Split
	for _, stratum := range Strata(y) {
		rng.Shuffle(len(stratum), func(i, j int) {
			stratum[i], stratum[j] = stratum[j], stratum[i]
		})
		nTrain := int(math.Ceil(p * float64(len(stratum))))
		split.Train = append(split.Train, stratum[:nTrain]...)
		split.Test = append(split.Test, stratum[nTrain:]...)
	}
	sort.Ints(split.Train)
	sort.Ints(split.Test)
	return split, nil
}

// Strata groups row indices by stratum, strata in ascending key order and
// rows in ascending order within a stratum.
//
// With at most MaxClassLevels distinct values every value is a stratum.
// Otherwise y is cut at min(5, len(y)) evenly spaced sample quantiles
// (duplicate breaks dropped); intervals are right-closed and the lowest
// break is included in the first interval.
func Strata(y []float64) [][]int {
	levels := distinctSorted(y)
	if len(levels) <= MaxClassLevels {
		index := make(map[float64]int, len(levels))
		for i, v := range levels {
			index[v] = i
		}
		groups := make([][]int, len(levels))
		for row, v := range y {
			groups[index[v]] = append(groups[index[v]], row)
		}
		return groups
	}

	nBreaks := quantileBreaks
	if len(y) < nBreaks {
		nBreaks = len(y)
	}
	var breaks []float64
	for b := 0; b < nBreaks; b++ {
		q := dataset.Quantile(float64(b)/float64(nBreaks-1), y)
		if len(breaks) == 0 || q != breaks[len(breaks)-1] {
			breaks = append(breaks, q)
		}
	}

	groups := make([][]int, len(breaks)-1)
	for row, v := range y {
		// first interval whose upper break is >= v
		g := sort.SearchFloat64s(breaks[1:], v)
		if g >= len(groups) {
			g = len(groups) - 1
		}
		groups[g] = append(groups[g], row)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func distinctSorted(values []float64) []float64 {
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
