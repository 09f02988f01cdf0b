package dataset

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary は列ごとの要約統計量（五数要約・平均・標準偏差）
type ColumnSummary struct {
	Name   string
	N      int
	Mean   float64
	Std    float64 // 不偏標準偏差 (n-1)
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Describe は全列の要約統計量を列の順に返す
func Describe(t *Table) []ColumnSummary {
	r, c := t.Dims()
	out := make([]ColumnSummary, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, t.data)
		out[j] = summarize(t.columns[j], col)
	}
	return out
}

func summarize(name string, values []float64) ColumnSummary {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		std = 0
	}
	return ColumnSummary{
		Name:   name,
		N:      len(sorted),
		Mean:   mean,
		Std:    std,
		Min:    sorted[0],
		Q1:     quantile(0.25, sorted),
		Median: quantile(0.5, sorted),
		Q3:     quantile(0.75, sorted),
		Max:    sorted[len(sorted)-1],
	}
}

// quantile は Hyndman-Fan type 7 の線形補間で分位点を計算する。
// sorted は昇順に並んでいること。
func quantile(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Quantile は値の分位点 p を返す（R type 7）
func Quantile(p float64, values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantile(p, sorted)
}

// Correlation はピアソン相関行列
type Correlation struct {
	Columns []string
	Matrix  *mat.SymDense
}

// CorrelationPair は二列の相関係数
type CorrelationPair struct {
	A, B string
	R    float64
}

// Correlate は表の全列の相関行列を計算する
func Correlate(t *Table) (*Correlation, error) {
	r, _ := t.Dims()
	if r < 2 {
		return nil, errors.NewValueError("Correlate", "need at least two rows")
	}
	var m mat.SymDense
	stat.CorrelationMatrix(&m, t.data, nil)
	return &Correlation{Columns: t.Columns(), Matrix: &m}, nil
}

// At は列名で相関係数を引く
func (c *Correlation) At(a, b string) (float64, error) {
	i, j := -1, -1
	for k, name := range c.Columns {
		if name == a {
			i = k
		}
		if name == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, errors.NewValidationError("column", "no such column", a+","+b)
	}
	return c.Matrix.At(i, j), nil
}

// With は target と他の全列との相関を絶対値の降順で返す
func (c *Correlation) With(target string) ([]CorrelationPair, error) {
	ti := -1
	for k, name := range c.Columns {
		if name == target {
			ti = k
		}
	}
	if ti < 0 {
		return nil, errors.NewValidationError("column", "no such column", target)
	}
	pairs := make([]CorrelationPair, 0, len(c.Columns)-1)
	for k, name := range c.Columns {
		if k == ti {
			continue
		}
		pairs = append(pairs, CorrelationPair{A: target, B: name, R: c.Matrix.At(ti, k)})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	return pairs, nil
}
