package model_selection

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStratifiedSplit_TwoClasses(t *testing.T) {
	y := []float64{0, 0, 1, 1}

	split, err := StratifiedSplit(y, 0.5, NewSource(42))
	require.NoError(t, err)
	require.Len(t, split.Train, 2)
	require.Len(t, split.Test, 2)

	classes := func(rows []int) map[float64]int {
		out := map[float64]int{}
		for _, r := range rows {
			out[y[r]]++
		}
		return out
	}
	assert.Equal(t, map[float64]int{0: 1, 1: 1}, classes(split.Train))
	assert.Equal(t, map[float64]int{0: 1, 1: 1}, classes(split.Test))
}

func TestStratifiedSplit_DisjointAndExhaustive(t *testing.T) {
	y := make([]float64, 47)
	for i := range y {
		y[i] = float64(i%3) + 0.5*float64(i%2)
	}

	split, err := StratifiedSplit(y, 0.9, NewSource(7))
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, r := range split.Train {
		seen[r]++
	}
	for _, r := range split.Test {
		seen[r]++
	}
	require.Len(t, seen, len(y))
	for r, c := range seen {
		assert.Equalf(t, 1, c, "row %d appears %d times", r, c)
	}
	assert.IsIncreasing(t, split.Train)
	assert.IsIncreasing(t, split.Test)
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	y := make([]float64, 30)
	for i := range y {
		y[i] = float64(i % 2)
	}

	a, err := StratifiedSplit(y, 0.7, NewSource(1))
	require.NoError(t, err)
	b, err := StratifiedSplit(y, 0.7, NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := StratifiedSplit(y, 0.7, NewSource(2))
	require.NoError(t, err)
	assert.NotEqual(t, a.Train, c.Train)
}

func TestStratifiedSplit_CeilPerStratum(t *testing.T) {
	// 3 rows of class 0, 5 rows of class 1
	y := []float64{0, 1, 0, 1, 1, 0, 1, 1}

	split, err := StratifiedSplit(y, 0.5, NewSource(3))
	require.NoError(t, err)
	// ceil(1.5) + ceil(2.5)
	assert.Len(t, split.Train, 5)
	assert.Len(t, split.Test, 3)
}

func TestStratifiedSplit_Errors(t *testing.T) {
	for _, p := range []float64{0, 1, -0.1, 1.2, math.NaN()} {
		_, err := StratifiedSplit([]float64{0, 1}, p, NewSource(1))
		var fracErr *errors.InvalidFractionError
		assert.Truef(t, errors.As(err, &fracErr), "p=%v: got %v", p, err)
	}

	_, err := StratifiedSplit(nil, 0.5, NewSource(1))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestStrata_Classes(t *testing.T) {
	y := []float64{2, 0, 1, 0, 2}
	assert.Equal(t, [][]int{{1, 3}, {2}, {0, 4}}, Strata(y))
}

func TestStrata_Quantiles(t *testing.T) {
	// 20 distinct values: breaks 1, 5.75, 10.5, 15.25, 20
	y := make([]float64, 20)
	for i := range y {
		y[19-i] = float64(i + 1)
	}

	groups := Strata(y)
	require.Len(t, groups, 4)
	for g, rows := range groups {
		require.Len(t, rows, 5)
		for _, r := range rows {
			v := y[r]
			assert.Truef(t, v > float64(5*g) && v <= float64(5*g+5), "value %v in group %d", v, g)
		}
	}
}

func TestStrata_DuplicateBreaks(t *testing.T) {
	// 11 distinct values, most rows tied at 0
	y := make([]float64, 40)
	for i := 30; i < 40; i++ {
		y[i] = float64(i - 29)
	}
	y[0] = -1

	groups := Strata(y)
	total := 0
	for _, g := range groups {
		assert.NotEmpty(t, g)
		total += len(g)
	}
	assert.Equal(t, len(y), total)
	assert.Less(t, len(groups), 4)
}
