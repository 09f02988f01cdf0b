package metrics

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/statlab/pkg/errors"
)

// Accuracy は正解率（一致した予測の割合）を計算する
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ConfusionMatrix は混同行列。Counts[i][j] は正解 Labels[i] を
// Labels[j] と予測したサンプル数
type ConfusionMatrix struct {
	Labels []float64
	Counts [][]int
}

// ClassStats はあるクラスを陽性とみなした場合の集計
type ClassStats struct {
	Label       float64
	TP          int
	FP          int
	FN          int
	TN          int
	Sensitivity float64 // TP / (TP + FN)
	Specificity float64 // TN / (TN + FP)
}

// NewConfusionMatrix は正解と予測から混同行列を作る。
// ラベルは両方に現れる値の和集合を昇順に並べたもの
func NewConfusionMatrix(yTrue, yPred []float64) (*ConfusionMatrix, error) {
	if err := checkPair("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, err
	}

	seen := make(map[float64]struct{})
	for i := range yTrue {
		seen[yTrue[i]] = struct{}{}
		seen[yPred[i]] = struct{}{}
	}
	labels := make([]float64, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Float64s(labels)

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[index[yTrue[i]]][index[yPred[i]]]++
	}

	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// Total はサンプル数を返す
func (c *ConfusionMatrix) Total() int {
	total := 0
	for _, row := range c.Counts {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Accuracy は対角成分の割合を返す
func (c *ConfusionMatrix) Accuracy() float64 {
	diag := 0
	for i := range c.Counts {
		diag += c.Counts[i][i]
	}
	return errors.SafeDivide(float64(diag), float64(c.Total()))
}

// Stats は label を陽性クラスとした TP/FP/FN/TN と感度・特異度を返す。
// 分母が0の指標は0とし、UndefinedMetricWarning を出す
func (c *ConfusionMatrix) Stats(label float64) (ClassStats, error) {
	k := -1
	for i, l := range c.Labels {
		if l == label {
			k = i
			break
		}
	}
	if k < 0 {
		return ClassStats{}, errors.NewValueError("ConfusionMatrix.Stats", fmt.Sprintf("label %v not present", label))
	}

	s := ClassStats{Label: label}
	for i, row := range c.Counts {
		for j, v := range row {
			switch {
			case i == k && j == k:
				s.TP += v
			case i == k:
				s.FN += v
			case j == k:
				s.FP += v
			default:
				s.TN += v
			}
		}
	}

	if s.TP+s.FN > 0 {
		s.Sensitivity = float64(s.TP) / float64(s.TP+s.FN)
	} else {
		errors.Warn(errors.NewUndefinedMetricWarning("sensitivity", "no true samples of the positive class", 0))
	}
	if s.TN+s.FP > 0 {
		s.Specificity = float64(s.TN) / float64(s.TN+s.FP)
	} else {
		errors.Warn(errors.NewUndefinedMetricWarning("specificity", "no true samples of the negative class", 0))
	}
	return s, nil
}

// PerClass はすべてのラベルについて Stats を返す
func (c *ConfusionMatrix) PerClass() []ClassStats {
	out := make([]ClassStats, 0, len(c.Labels))
	for _, l := range c.Labels {
		s, _ := c.Stats(l)
		out = append(out, s)
	}
	return out
}
