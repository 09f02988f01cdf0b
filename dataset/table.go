// Package dataset は空白区切りの表形式データの読み込みと探索的集計を提供する。
//
// Table は列名と数値行列の組で、読み込み時の列名と順序をそのまま保持する。
// 学習・分割の各段は Table から必要な行列を取り出し、元の Table を変更しない。
package dataset

import (
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Table は名前付き数値列からなる表
type Table struct {
	columns []string
	index   map[string]int
	data    *mat.Dense
}

// NewTable は列名とデータ行列から Table を作成する。
// 列名の重複や列数の不一致はエラーになる。data はコピーされない。
func NewTable(columns []string, data *mat.Dense) (*Table, error) {
	if data == nil {
		return nil, errors.NewModelError("NewTable", "empty data", errors.ErrEmptyData)
	}
	_, c := data.Dims()
	if len(columns) != c {
		return nil, errors.NewDimensionMismatchError("NewTable", len(columns), c, 1)
	}
	index := make(map[string]int, len(columns))
	for j, name := range columns {
		if _, dup := index[name]; dup {
			return nil, errors.NewValidationError("columns", "duplicate column name", name)
		}
		index[name] = j
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, index: index, data: data}, nil
}

// Dims は (行数, 列数) を返す
func (t *Table) Dims() (int, int) {
	return t.data.Dims()
}

// Columns は列名のコピーを読み込み順で返す
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Data は表全体の行列を返す。呼び出し側は変更してはならない
func (t *Table) Data() *mat.Dense {
	return t.data
}

// ColumnIndex は列名の位置を返す
func (t *Table) ColumnIndex(name string) (int, error) {
	j, ok := t.index[name]
	if !ok {
		return -1, errors.NewValidationError("column", "no such column", name)
	}
	return j, nil
}

// Column は列の値のコピーを返す
func (t *Table) Column(name string) ([]float64, error) {
	j, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	r, _ := t.data.Dims()
	out := make([]float64, r)
	mat.Col(out, j, t.data)
	return out, nil
}

// XY は応答列 response を取り除いた特徴量行列と応答ベクトルを返す。
// features は X の列名で、元の順序を保つ。
func (t *Table) XY(response string) (X *mat.Dense, y []float64, features []string, err error) {
	target, err := t.ColumnIndex(response)
	if err != nil {
		return nil, nil, nil, err
	}
	r, c := t.data.Dims()
	if c < 2 {
		return nil, nil, nil, errors.NewValueError("Table.XY", "table needs at least one feature besides the response")
	}

	X = mat.NewDense(r, c-1, nil)
	y = make([]float64, r)
	features = make([]string, 0, c-1)
	for j, name := range t.columns {
		if j != target {
			features = append(features, name)
		}
	}
	for i := 0; i < r; i++ {
		k := 0
		for j := 0; j < c; j++ {
			if j == target {
				y[i] = t.data.At(i, j)
				continue
			}
			X.Set(i, k, t.data.At(i, j))
			k++
		}
	}
	return X, y, features, nil
}

// Subset は指定した行だけを持つ新しい Table を返す（行の順序は rows の順）。
func (t *Table) Subset(rows []int) (*Table, error) {
	r, c := t.data.Dims()
	if len(rows) == 0 {
		return nil, errors.NewModelError("Table.Subset", "empty row set", errors.ErrEmptyData)
	}
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		if row < 0 || row >= r {
			return nil, errors.NewValidationError("rows", "row index out of range", row)
		}
		out.SetRow(i, t.data.RawRowView(row))
	}
	return &Table{columns: t.Columns(), index: t.index, data: out}, nil
}

// SubsetRows は行列 X から指定行を取り出した新しい行列を返す
func SubsetRows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(row, j))
		}
	}
	return out
}

// SubsetValues は y から指定位置の値を取り出す
func SubsetValues(y []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = y[row]
	}
	return out
}

// ColumnVector は y を n×1 の行列に変換する
func ColumnVector(y []float64) *mat.Dense {
	v := make([]float64, len(y))
	copy(v, y)
	return mat.NewDense(len(v), 1, v)
}

// Values は n×1 行列の値をスライスとして取り出す
func Values(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}
