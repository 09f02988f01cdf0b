package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/sklearn/model_selection"
	"github.com/YuminosukeSato/statlab/sklearn/svm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Overlay(t *testing.T) {
	path := writeConfig(t, `
seed: 42
cv:
  method: repeatedcv
  folds: 5
  repeats: 2
grids:
  svm:
    kernels: [linear, polynomial]
    costs: [1, 10]
    degrees: [2]
`)
	cfg, err := LoadConfig(path, DefaultCreditConfig())
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "R1", cfg.Response)
	assert.Equal(t, 0.8, cfg.SplitFraction)
	assert.Equal(t, 5, cfg.CV.Folds)
	assert.Equal(t, []svm.Params{
		{Kernel: svm.Linear, Cost: 1},
		{Kernel: svm.Linear, Cost: 10},
		{Kernel: svm.Polynomial, Cost: 1, Degree: 2},
		{Kernel: svm.Polynomial, Cost: 10, Degree: 2},
	}, cfg.Grids.SVM.Params())
	// untouched sections keep their defaults
	assert.Equal(t, NeighborsGrid{From: 1, To: 25}, cfg.Grids.Neighbors)

	scheme, err := cfg.CV.Scheme()
	require.NoError(t, err)
	assert.Equal(t, model_selection.RepeatedKFold{Folds: 5, Repeats: 2, Stratified: true}, scheme)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad fraction", "split_fraction: 1.5\n"},
		{"bad method", "cv:\n  method: bootstrap\n"},
		{"bad kernel", "grids:\n  svm:\n    kernels: [sigmoid]\n    costs: [1]\n"},
		{"bad cost", "grids:\n  svm:\n    kernels: [linear]\n    costs: [0]\n"},
		{"bad neighbors", "grids:\n  neighbors:\n    from: 5\n    to: 2\n"},
		{"malformed", "seed: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body), DefaultCreditConfig())
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), DefaultCrimeConfig())
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "split_fraction: 0\n"), DefaultCrimeConfig())
	var fracErr *errors.InvalidFractionError
	assert.True(t, errors.As(err, &fracErr))
}

func TestDefaultConfigsValidate(t *testing.T) {
	assert.NoError(t, DefaultCrimeConfig().Validate())
	assert.NoError(t, DefaultCreditConfig().Validate())

	scheme, err := DefaultCrimeConfig().CV.Scheme()
	require.NoError(t, err)
	assert.Equal(t, model_selection.LeaveOneOut{}, scheme)
}
