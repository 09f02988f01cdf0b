package report

import (
	"bytes"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/pkg/log"
	"github.com/YuminosukeSato/statlab/sklearn/svm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func crimeTable(t *testing.T) *dataset.Table {
	t.Helper()
	const n = 47
	rng := rand.New(rand.NewPCG(5, 5))
	data := mat.NewDense(n, 6, nil)
	for i := 0; i < n; i++ {
		f := []float64{
			10 + 3*rng.NormFloat64(),
			5 + rng.NormFloat64(),
			100 + 20*rng.NormFloat64(),
			rng.Float64(),
		}
		f = append(f, 0.8*f[0]+0.5*rng.NormFloat64())
		crime := 900 + 40*f[0] - 60*f[1] + 2*f[2] + 30*rng.NormFloat64()
		data.SetRow(i, append(f, crime))
	}
	table, err := dataset.NewTable([]string{"M", "Ed", "Po1", "Prob", "Po2", "Crime"}, data)
	require.NoError(t, err)
	return table
}

func creditTable(t *testing.T) *dataset.Table {
	t.Helper()
	const n = 150
	rng := rand.New(rand.NewPCG(9, 9))
	data := mat.NewDense(n, 5, nil)
	for i := 0; i < n; i++ {
		a, b, c, d := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.Float64()*3
		label := 0.0
		if a+0.5*b+0.6*rng.NormFloat64() > 0 {
			label = 1
		}
		data.SetRow(i, []float64{a, b, c, d, label})
	}
	table, err := dataset.NewTable([]string{"A2", "A3", "A8", "A9", "R1"}, data)
	require.NoError(t, err)
	return table
}

func smallCreditConfig() Config {
	cfg := DefaultCreditConfig()
	cfg.CV = CVConfig{Method: "repeatedcv", Folds: 5, Repeats: 1, Stratified: true}
	cfg.Grids = Grids{
		SVM:        SVMGrid{Kernels: []svm.Kernel{svm.Linear, svm.Gaussian}, Costs: []float64{0.1, 1}, Bandwidths: []float64{0.5}},
		Neighbors:  NeighborsGrid{From: 1, To: 7},
		ElasticNet: ElasticNetGrid{Alphas: []float64{0, 1}, Lambdas: []float64{0.01, 0.1}},
	}
	cfg.Parallel = 2
	return cfg
}

func quietLogger() log.Logger {
	l, _ := log.NewTestLogger(log.LevelError)
	return l
}

func TestRunCrime(t *testing.T) {
	table := crimeTable(t)
	cfg := DefaultCrimeConfig()
	cfg.OutputDir = t.TempDir()

	res, err := RunCrime(table, cfg, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 47, len(res.Split.Train)+len(res.Split.Test))
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.PCR.Grid, 5)
	for _, row := range res.PCR.Grid {
		assert.True(t, row.Converged)
	}
	assert.Equal(t, len(res.Split.Train), res.PCR.CV.NFits)
	require.Len(t, res.Coefficients, 5)
	assert.Equal(t, "M", res.Coefficients[0].Feature)
	require.Len(t, res.Comparison, 2)
	assert.Len(t, res.PCRTest.Predictions, len(res.Split.Test))
	assert.Greater(t, res.OLSSummary.RSquared, 0.5)

	// the scree data sums to one
	sum := 0.0
	for _, v := range res.PCA.ExplainedVarianceRatio() {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-9)

	require.NotEmpty(t, res.Plots)
	for _, p := range res.Plots {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestRunCrime_Deterministic(t *testing.T) {
	table := crimeTable(t)
	cfg := DefaultCrimeConfig()
	cfg.CV = CVConfig{Method: "repeatedcv", Folds: 5, Repeats: 2}

	a, err := RunCrime(table, cfg, quietLogger())
	require.NoError(t, err)
	cfg.Parallel = 3
	b, err := RunCrime(table, cfg, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, a.Split, b.Split)
	assert.Equal(t, a.PCR.Best, b.PCR.Best)
	assert.Equal(t, a.PCR.Grid, b.PCR.Grid)
	assert.Equal(t, a.Coefficients, b.Coefficients)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunCrime_CollinearFeature(t *testing.T) {
	base := crimeTable(t)
	r, c := base.Dims()
	data := mat.NewDense(r, c+1, nil)
	m, po1 := base.Data().ColView(0), base.Data().ColView(2)
	for i := 0; i < r; i++ {
		row := append(mat.Row(nil, i, base.Data()), po1.AtVec(i)+2*m.AtVec(i))
		data.SetRow(i, row)
	}
	table, err := dataset.NewTable(append(base.Columns(), "Po3"), data)
	require.NoError(t, err)

	cfg := DefaultCrimeConfig()
	cfg.OutputDir = t.TempDir()
	res, err := RunCrime(table, cfg, quietLogger())
	require.NoError(t, err)

	assert.False(t, res.OLS.Selected())
	assert.Nil(t, res.OLSSummary)
	assert.Nil(t, res.OLSTest)
	require.Len(t, res.Comparison, 2)
	assert.True(t, res.Comparison[0].Excluded)

	// six features but only five independent directions
	require.Len(t, res.PCR.Grid, 5)
	for _, row := range res.PCR.Grid {
		assert.True(t, row.Converged, row.Params)
	}
	assert.Len(t, res.Coefficients, 6)
	assert.Len(t, res.Plots, 4)

	var buf bytes.Buffer
	NewPrinter(&buf, false).Crime(res)
	assert.Contains(t, buf.String(), "excluded")
}

func TestMaxComponents(t *testing.T) {
	cfg := DefaultCrimeConfig()
	assert.Equal(t, 5, maxComponents(cfg, 5, 42))
	assert.Equal(t, 3, maxComponents(cfg, 5, 5))
	cfg.Grids.MaxComponents = 2
	assert.Equal(t, 2, maxComponents(cfg, 5, 42))
	assert.Equal(t, 1, maxComponents(cfg, 0, 42))
}

func TestRunCrime_Errors(t *testing.T) {
	table := crimeTable(t)

	cfg := DefaultCrimeConfig()
	cfg.SplitFraction = 1
	_, err := RunCrime(table, cfg, quietLogger())
	assert.Error(t, err)

	cfg = DefaultCrimeConfig()
	cfg.Response = "Missing"
	_, err = RunCrime(table, cfg, quietLogger())
	assert.Error(t, err)
}

func TestRunCredit(t *testing.T) {
	table := creditTable(t)
	cfg := smallCreditConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "plots")

	res, err := RunCredit(table, cfg, quietLogger())
	require.NoError(t, err)

	require.Len(t, res.Families, 4)
	names := []string{}
	for _, fr := range res.Families {
		names = append(names, fr.Family)
		assert.GreaterOrEqual(t, fr.Score, 0.5)
		assert.LessOrEqual(t, fr.Score, 1.0)
	}
	assert.Equal(t, []string{"SVM", "k-NN", "Logistic regression", "Elastic net"}, names)
	assert.Len(t, res.Families[0].Grid, 4)
	assert.Len(t, res.Families[1].Grid, 7)
	assert.Len(t, res.Families[3].Grid, 4)
	assert.Greater(t, res.SupportVectors, 0)

	for _, fr := range res.Families {
		assert.LessOrEqual(t, fr.Score, res.Winner.Score+1e-12)
	}
	assert.Equal(t, len(res.Split.Test), res.WinnerTest.Confusion.Total())
	require.Len(t, res.Comparison, 4)

	// 80/20 stratified: each class keeps roughly its share in the test rows
	y, err := table.Column("R1")
	require.NoError(t, err)
	ones := 0
	for _, r := range res.Split.Test {
		if y[r] == 1 {
			ones++
		}
	}
	total := 0
	for _, v := range y {
		if v == 1 {
			total++
		}
	}
	assert.InDelta(t, float64(total)*0.2, float64(ones), 1)

	for _, p := range res.Plots {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	assert.Len(t, res.Plots, 4)
}

// separableCreditTable splits its classes on A2 with a wide margin, so the
// unpenalized logistic likelihood has no finite maximum.
func separableCreditTable(t *testing.T, n int) *dataset.Table {
	t.Helper()
	rng := rand.New(rand.NewPCG(13, 13))
	data := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		a := (2*label - 1) * (1 + math.Abs(rng.NormFloat64()))
		data.SetRow(i, []float64{a, rng.NormFloat64(), label})
	}
	table, err := dataset.NewTable([]string{"A2", "A3", "R1"}, data)
	require.NoError(t, err)
	return table
}

func TestRunCredit_FamilyWithoutConvergedPoint(t *testing.T) {
	cfg := smallCreditConfig()
	res, err := RunCredit(separableCreditTable(t, 60), cfg, quietLogger())
	require.NoError(t, err)

	require.Len(t, res.Families, 4)
	logistic := res.Families[2]
	assert.Equal(t, "Logistic regression", logistic.Family)
	assert.False(t, logistic.Selected())
	assert.Equal(t, -1, logistic.Index)
	assert.Equal(t, 1, logistic.Excluded)
	assert.True(t, res.Comparison[2].Excluded)
	assert.True(t, math.IsNaN(res.Comparison[2].TestScore))

	require.NotNil(t, res.Winner)
	assert.NotEqual(t, "Logistic regression", res.Winner.Family)
	assert.True(t, res.Families[0].Selected())

	var buf bytes.Buffer
	NewPrinter(&buf, false).Credit(res)
	assert.Contains(t, buf.String(), "excluded: no grid point converged")
}

func TestRunCredit_NeighborsRangeBeyondTrainingFold(t *testing.T) {
	cfg := smallCreditConfig()
	cfg.Grids.Neighbors = NeighborsGrid{From: 20, To: 25}

	table, err := creditTable(t).Subset(seq(20))
	require.NoError(t, err)
	res, err := RunCredit(table, cfg, quietLogger())
	require.NoError(t, err)

	require.Len(t, res.Families, 4)
	knn := res.Families[1]
	assert.Equal(t, "k-NN", knn.Family)
	assert.False(t, knn.Selected())
	assert.Empty(t, knn.Grid)
	assert.True(t, res.Comparison[1].Excluded)
	require.NotNil(t, res.Winner)
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestCurvesFromGrid(t *testing.T) {
	rows := []GridRow{
		{Params: "unpenalized", Converged: true, Score: 0.8},
		{Params: "k=1", Series: "k-NN", X: 1, Converged: true, Score: 0.7},
		{Params: "k=2", Series: "k-NN", X: 2, Converged: false},
		{Params: "k=3", Series: "k-NN", X: 3, Converged: true, Score: 0.75},
		{Params: "cost=0", Series: "linear", X: math.Inf(-1), Converged: true},
	}
	curves := CurvesFromGrid(rows)
	require.Len(t, curves, 1)
	assert.Equal(t, "k-NN", curves[0].Name)
	assert.Equal(t, []float64{1, 3}, curves[0].X)
	assert.Equal(t, []float64{0.7, 0.75}, curves[0].Y)

	assert.Empty(t, CurvesFromGrid(rows[:1]))
}

func TestPrinter(t *testing.T) {
	crime, err := RunCrime(crimeTable(t), DefaultCrimeConfig(), quietLogger())
	require.NoError(t, err)
	credit, err := RunCredit(creditTable(t), smallCreditConfig(), quietLogger())
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewPrinter(&buf, false)
	p.Crime(crime)
	p.Credit(credit)
	out := buf.String()

	for _, want := range []string{
		"Crime report",
		"Linear regression (training rows)",
		"Residual standard error",
		"PCR cross-validation (loocv)",
		"<- selected",
		"Model comparison",
		"Credit report",
		"support vectors:",
		"truth\\pred",
		"sensitivity",
	} {
		assert.Contains(t, out, want)
	}
	assert.False(t, strings.Contains(out, "\x1b["), "uncolored output contains escape codes")
}

func TestEvaluateRegressor(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []float64{2, 4, 6, 9}
	ev, err := EvaluateRegressor(doubler{}, X, y)
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 4, 6, 8}, ev.Predictions)
	assert.Equal(t, []float64{0, 0, 0, 1}, ev.Residuals)
	assert.InDelta(t, 0.5, ev.RMSE, 1e-12)
	assert.InDelta(t, 0.25, ev.MAE, 1e-12)
	assert.InDelta(t, 1-1.0/26.75, ev.R2, 1e-12)
	assert.Equal(t, 1.0, ev.Summary.Max)

	_, err = EvaluateRegressor(doubler{}, X, y[:3])
	assert.Error(t, err)
}

func TestEvaluateClassifier(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 0.4, 0.6, 1})
	y := []float64{0, 1, 1, 1}
	ev, err := EvaluateClassifier(threshold{}, X, y)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 1, 1}, ev.Predictions)
	assert.InDelta(t, 0.75, ev.Accuracy, 1e-12)
	assert.Equal(t, [][]int{{1, 0}, {1, 2}}, ev.Confusion.Counts)
}

type doubler struct{}

func (doubler) Predict(X mat.Matrix) (mat.Matrix, error) {
	var out mat.Dense
	out.Scale(2, X)
	return &out, nil
}

type threshold struct{}

func (threshold) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, math.Round(X.At(i, 0)))
	}
	return out, nil
}
