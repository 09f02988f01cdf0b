package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCrimeFile(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("M\tSo\tEd\tPo1\tCrime\n")
	for i := 0; i < 47; i++ {
		x := float64(i)
		m := 13 + 2*math.Sin(x)
		so := float64(i % 2)
		ed := 10 + math.Cos(1.7*x)
		po1 := 7 + 3*math.Sin(0.3*x+1)
		crime := 700 + 30*m - 40*ed + 90*po1 + 25*math.Sin(5*x)
		fmt.Fprintf(&b, "%.3f\t%.0f\t%.3f\t%.3f\t%.1f\n", m, so, ed, po1, crime)
	}
	path := filepath.Join(t.TempDir(), "uscrime.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCrime(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"crime", "-data", writeCrimeFile(t), "-no-color", "-log-level", "error", "-seed", "3"}, &out)
	if err != nil {
		t.Fatalf("run returned %v", err)
	}
	for _, want := range []string{"Crime report", "PCR cross-validation", "Model comparison"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no sub-command", nil},
		{"unknown sub-command", []string{"weather"}},
		{"missing data flag", []string{"crime", "-log-level", "error"}},
		{"missing file", []string{"credit", "-data", filepath.Join(t.TempDir(), "nope.txt"), "-log-level", "error"}},
		{"bad level", []string{"crime", "-data", "x", "-log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tt.args, &out); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
