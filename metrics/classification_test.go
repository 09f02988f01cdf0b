package metrics

import (
	"math"
	"testing"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "all correct",
			yTrue: []float64{0, 1, 1, 0},
			yPred: []float64{0, 1, 1, 0},
			want:  1.0,
		},
		{
			name:  "half correct",
			yTrue: []float64{0, 1, 1, 0},
			yPred: []float64{1, 1, 0, 0},
			want:  0.5,
		},
		{
			name:    "length mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0},
			wantErr: true,
		},
		{
			name:    "empty",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Accuracy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := []float64{1, 1, 1, 0, 0, 0, 0, 1}
	yPred := []float64{1, 0, 1, 0, 0, 1, 0, 1}

	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		t.Fatalf("NewConfusionMatrix() error = %v", err)
	}

	if len(cm.Labels) != 2 || cm.Labels[0] != 0 || cm.Labels[1] != 1 {
		t.Fatalf("Labels = %v, want [0 1]", cm.Labels)
	}
	// rows: truth, cols: predicted
	want := [][]int{{3, 1}, {1, 3}}
	for i := range want {
		for j := range want[i] {
			if cm.Counts[i][j] != want[i][j] {
				t.Errorf("Counts[%d][%d] = %d, want %d", i, j, cm.Counts[i][j], want[i][j])
			}
		}
	}
	if cm.Total() != 8 {
		t.Errorf("Total() = %d, want 8", cm.Total())
	}
	if math.Abs(cm.Accuracy()-0.75) > 1e-12 {
		t.Errorf("Accuracy() = %v, want 0.75", cm.Accuracy())
	}

	s, err := cm.Stats(1)
	if err != nil {
		t.Fatal(err)
	}
	if s.TP != 3 || s.FN != 1 || s.FP != 1 || s.TN != 3 {
		t.Errorf("Stats(1) = %+v", s)
	}
	if math.Abs(s.Sensitivity-0.75) > 1e-12 || math.Abs(s.Specificity-0.75) > 1e-12 {
		t.Errorf("Sensitivity/Specificity = %v/%v, want 0.75/0.75", s.Sensitivity, s.Specificity)
	}

	if _, err := cm.Stats(2); err == nil {
		t.Error("Stats() for absent label should fail")
	}
	if len(cm.PerClass()) != 2 {
		t.Errorf("PerClass() len = %d, want 2", len(cm.PerClass()))
	}
}

func TestConfusionMatrix_PredictedOnlyLabel(t *testing.T) {
	cm, err := NewConfusionMatrix([]float64{0, 0}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := cm.Stats(1)
	if s.FP != 1 || s.TP != 0 || s.Sensitivity != 0 {
		t.Errorf("Stats(1) = %+v", s)
	}
}
