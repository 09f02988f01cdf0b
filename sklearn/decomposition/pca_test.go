package decomposition

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(n, d int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			// 列ごとにスケールを変えて標準化の効果を見る
			X.Set(i, j, rng.NormFloat64()*float64(j+1)+float64(j))
		}
	}
	// 列間に相関を入れる
	for i := 0; i < n; i++ {
		X.Set(i, 1, X.At(i, 1)+0.8*X.At(i, 0))
	}
	return X
}

func TestPCA_VarianceOrderingAndOrthonormality(t *testing.T) {
	X := randomMatrix(40, 5, 7)

	pca := NewPCA()
	require.NoError(t, pca.Fit(X))
	require.Equal(t, 5, pca.NComponents())

	v := pca.Variance()
	for i := 1; i < len(v); i++ {
		assert.GreaterOrEqual(t, v[i-1], v[i], "variance must be non-increasing")
	}

	// scaled PCA: total variance equals the number of columns
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	assert.InDelta(t, 5.0, sum, 1e-9)

	R := pca.Rotation()
	var rtr mat.Dense
	rtr.Mul(R.T(), R)
	assert.True(t, mat.EqualApprox(&rtr, eye(5), 1e-10), "rotation columns must be orthonormal")

	cum := pca.CumulativeVarianceRatio()
	assert.InDelta(t, 1.0, cum[len(cum)-1], 1e-10)
}

func TestPCA_ScoresVarianceMatchesComponentVariance(t *testing.T) {
	X := randomMatrix(30, 3, 11)
	pca := NewPCA()
	require.NoError(t, pca.Fit(X))

	scores := pca.Scores()
	n, k := scores.Dims()
	v := pca.Variance()
	for j := 0; j < k; j++ {
		col := mat.Col(nil, j, scores)
		ss := 0.0
		for _, x := range col {
			ss += x * x
		}
		assert.InDelta(t, v[j], ss/float64(n-1), 1e-9)
	}

	transformed, err := pca.Transform(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(transformed, scores, 1e-10))
}

func TestPCA_RoundTrip(t *testing.T) {
	for _, scale := range []bool{true, false} {
		X := randomMatrix(25, 4, 3)
		pca := NewPCA(WithScale(scale))
		scores, err := pca.FitTransform(X)
		require.NoError(t, err)

		back, err := pca.InverseTransform(scores)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(back, X, 1e-6), "scale=%v: reconstruction differs", scale)
	}
}

func TestPCA_PerfectlyCorrelatedColumns(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
		5, 10,
		6, 12,
	})

	pca := NewPCA()
	require.NoError(t, pca.Fit(X))
	assert.Equal(t, 1, pca.NComponents())
	assert.InDelta(t, 1.0, pca.ExplainedVarianceRatio()[0], 1e-9)

	R := pca.Rotation()
	assert.InDelta(t, 1/math.Sqrt2, R.At(0, 0), 1e-9)
	assert.InDelta(t, 1/math.Sqrt2, R.At(1, 0), 1e-9)
}

func TestPCA_SignConvention(t *testing.T) {
	X := randomMatrix(20, 3, 5)
	pca := NewPCA()
	require.NoError(t, pca.Fit(X))

	R := pca.Rotation()
	d, k := R.Dims()
	for c := 0; c < k; c++ {
		best := 0.0
		for j := 0; j < d; j++ {
			if math.Abs(R.At(j, c)) > math.Abs(best) {
				best = R.At(j, c)
			}
		}
		assert.Greater(t, best, 0.0, "component %d", c)
	}
}

func TestPCA_Errors(t *testing.T) {
	constant := mat.NewDense(3, 2, []float64{1, 5, 2, 5, 3, 5})
	err := NewPCA().Fit(constant)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve), "constant column with scaling: got %v", err)

	// 中心化のみなら定数列は許される
	assert.NoError(t, NewPCA(WithScale(false)).Fit(constant))

	_, err = NewPCA().Transform(constant)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	pca := NewPCA()
	require.NoError(t, pca.Fit(randomMatrix(10, 3, 1)))
	_, err = pca.Transform(mat.NewDense(2, 2, nil))
	var dm *errors.DimensionMismatchError
	assert.True(t, errors.As(err, &dm))

	_, err = pca.InverseTransform(mat.NewDense(2, 4, nil))
	assert.True(t, errors.As(err, &dm))
}

func TestPCA_NComponentsLimit(t *testing.T) {
	pca := NewPCA(WithNComponents(2))
	require.NoError(t, pca.Fit(randomMatrix(15, 4, 9)))
	assert.Equal(t, 2, pca.NComponents())
	r, c := pca.Scores().Dims()
	assert.Equal(t, 15, r)
	assert.Equal(t, 2, c)
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func TestPCA_WithoutCentering(t *testing.T) {
	X := randomMatrix(25, 3, 11)
	pca := NewPCA(WithCenter(false), WithScale(false))
	require.NoError(t, pca.Fit(X))

	assert.Equal(t, []float64{0, 0, 0}, pca.Center())
	assert.Equal(t, []float64{1, 1, 1}, pca.Scale())
	assert.Equal(t, false, pca.GetParams()["center"])

	// uncentred scores are the raw rows projected on the rotation
	var want mat.Dense
	want.Mul(X, pca.Rotation())
	assert.True(t, mat.EqualApprox(&want, pca.Scores(), 1e-10))

	Z, err := pca.Transform(X)
	require.NoError(t, err)
	back, err := pca.InverseTransform(Z)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-8))
}
