package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Coefficient は係数表の1行
type Coefficient struct {
	Term     string
	Estimate float64
	StdError float64
	TValue   float64
	PValue   float64 // 両側 t 検定
}

// Summary は最小二乗推定の推測統計量。
// 残差自由度が0のとき標準誤差以降の値は NaN になる
type Summary struct {
	Coefficients     []Coefficient
	Residuals        []float64
	ResidualStdError float64
	DF               int // 残差自由度 n - m
	RSquared         float64
	AdjRSquared      float64
	FStatistic       float64
	FNumDF           int
	FPValue          float64
}

// summarize は設計行列 A、その QR 分解の上三角 R、推定値から Summary を作る。
// Cov(β) = σ² (AᵀA)⁻¹ = σ² R⁻¹ R⁻ᵀ
func summarize(A *mat.Dense, R *mat.TriDense, beta, y []float64, intercept bool, names []string) *Summary {
	n, m := A.Dims()

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(A, mat.NewVecDense(m, beta))

	residuals := make([]float64, n)
	var rss float64
	for i := range residuals {
		residuals[i] = y[i] - fitted.AtVec(i)
		rss += residuals[i] * residuals[i]
	}

	var mean float64
	if intercept {
		for _, v := range y {
			mean += v
		}
		mean /= float64(n)
	}
	var tss float64
	for _, v := range y {
		tss += (v - mean) * (v - mean)
	}

	df := n - m
	s := &Summary{
		Coefficients: make([]Coefficient, m),
		Residuals:    residuals,
		DF:           df,
		FNumDF:       m,
	}
	if intercept {
		s.FNumDF = m - 1
	}
	if tss > 0 {
		s.RSquared = 1 - rss/tss
	}

	sigma2 := math.NaN()
	if df > 0 {
		sigma2 = rss / float64(df)
		denom := float64(n)
		if intercept {
			denom = float64(n - 1)
		}
		s.AdjRSquared = 1 - (1-s.RSquared)*denom/float64(df)
	} else {
		s.AdjRSquared = math.NaN()
	}
	s.ResidualStdError = math.Sqrt(sigma2)

	var rinv mat.TriDense
	invErr := rinv.InverseTri(R)
	var cov mat.Dense
	if invErr == nil {
		cov.Mul(&rinv, rinv.T())
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	for j := 0; j < m; j++ {
		c := Coefficient{Term: names[j], Estimate: beta[j]}
		c.StdError, c.TValue, c.PValue = math.NaN(), math.NaN(), math.NaN()
		if df > 0 && invErr == nil {
			c.StdError = math.Sqrt(sigma2 * cov.At(j, j))
			c.TValue = beta[j] / c.StdError
			c.PValue = 2 * tdist.Survival(math.Abs(c.TValue))
		}
		s.Coefficients[j] = c
	}

	s.FStatistic, s.FPValue = math.NaN(), math.NaN()
	if df > 0 && s.FNumDF > 0 && rss > 0 {
		s.FStatistic = ((tss - rss) / float64(s.FNumDF)) / (rss / float64(df))
		fdist := distuv.F{D1: float64(s.FNumDF), D2: float64(df)}
		s.FPValue = fdist.Survival(s.FStatistic)
	}
	return s
}

// Term は名前が name の係数行を返す
func (s *Summary) Term(name string) (Coefficient, bool) {
	for _, c := range s.Coefficients {
		if c.Term == name {
			return c, true
		}
	}
	return Coefficient{}, false
}
