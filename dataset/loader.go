package dataset

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Load は空白（スペースまたはタブ）区切りでヘッダ行を持つ表を読み込む。
//
// 使用例:
//
//	table, err := dataset.Load("data/uscrime.txt")
//	X, y, features, err := table.XY("Crime")
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLoadError(path, 0, "cannot open file", err)
	}
	defer f.Close()
	return read(f, path)
}

// Read は r から表を読み込む。エラーメッセージにはパスの代わりに "<reader>" が入る
func Read(r io.Reader) (*Table, error) {
	return read(r, "")
}

func read(r io.Reader, path string) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		header []string
		values []float64
		rows   int
		lineNo int
	)
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if header == nil {
			header = make([]string, len(fields))
			seen := make(map[string]bool, len(fields))
			for j, f := range fields {
				name := strings.Trim(f, `"'`)
				if seen[name] {
					return nil, errors.NewLoadError(path, lineNo, "duplicate column name "+strconv.Quote(name), nil)
				}
				seen[name] = true
				header[j] = name
			}
			continue
		}

		if len(fields) != len(header) {
			return nil, errors.NewLoadError(path, lineNo,
				"expected "+strconv.Itoa(len(header))+" columns, got "+strconv.Itoa(len(fields)), nil)
		}
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.NewLoadError(path, lineNo, "column "+strconv.Quote(header[j])+" is not numeric", err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewLoadError(path, lineNo, "column "+strconv.Quote(header[j])+" has a missing or infinite value", nil)
			}
			values = append(values, v)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewLoadError(path, lineNo, "read failed", err)
	}
	if header == nil {
		return nil, errors.NewLoadError(path, 0, "missing header row", nil)
	}
	if rows == 0 {
		return nil, errors.NewLoadError(path, 0, "no data rows", errors.ErrEmptyData)
	}

	table, err := NewTable(header, mat.NewDense(rows, len(header), values))
	if err != nil {
		return nil, errors.NewLoadError(path, 0, "invalid table", err)
	}
	return table, nil
}
