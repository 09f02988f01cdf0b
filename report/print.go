package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/linear"
	"github.com/YuminosukeSato/statlab/metrics"
	"github.com/fatih/color"
)

// Printer はレポートを端末向けの表として書き出す
type Printer struct {
	w io.Writer

	header func(a ...any) string
	good   func(a ...any) string
	bad    func(a ...any) string
	dim    func(a ...any) string
}

// NewPrinter は w に書く Printer を作る。colored が false ならエスケープシーケンスを出さない
func NewPrinter(w io.Writer, colored bool) *Printer {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &Printer{
		w:      w,
		header: mk(color.FgCyan, color.Bold),
		good:   mk(color.FgGreen),
		bad:    mk(color.FgRed),
		dim:    mk(color.FgHiBlack),
	}
}

func (p *Printer) printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

func (p *Printer) section(title string) {
	p.printf("\n%s\n%s\n", p.header(title), strings.Repeat("=", len([]rune(title))))
}

// Crime はクライムレポートを書き出す
func (p *Printer) Crime(res *CrimeResult) {
	p.printf("%s run %s\n", p.header("Crime report"), p.dim(res.RunID))
	p.printf("%d rows, %d features, response %q\n", res.Rows, len(res.Features), res.Config.Response)

	p.section("Summary statistics")
	p.Summary(res.Summary)
	p.section("Correlation with " + res.Config.Response)
	p.Correlations(res.Correlations)
	p.section("Split")
	p.printf("train %d rows, test %d rows (fraction %.2f, seed %d)\n",
		len(res.Split.Train), len(res.Split.Test), res.Config.SplitFraction, res.Config.Seed)

	p.section("Linear regression (training rows)")
	if res.OLSSummary != nil {
		p.OLSSummary(res.OLSSummary)
	} else {
		p.printf("%s\n", p.bad("excluded: "+res.OLS.Grid[0].Err))
	}

	p.section("Principal components")
	ratio, cum := res.PCA.ExplainedVarianceRatio(), res.PCA.CumulativeVarianceRatio()
	sd := res.PCA.StdDev()
	p.printf("%-6s %12s %12s %12s\n", "", "Std.Dev", "Proportion", "Cumulative")
	for i := range ratio {
		p.printf("%-6s %12.4f %12.4f %12.4f\n", fmt.Sprintf("PC%d", i+1), sd[i], ratio[i], cum[i])
	}

	p.section("PCR cross-validation (" + res.PCR.Scheme + ")")
	p.Grid(res.PCR, "R²")

	p.section("PCR coefficients in original units")
	p.printf("%-14s %14.6f\n", "(Intercept)", res.Intercept)
	for _, c := range res.Coefficients {
		p.printf("%-14s %14.6f\n", c.Feature, c.Estimate)
	}

	p.section("Test rows")
	if res.OLSTest != nil {
		p.Regression("Linear regression", res.OLSTest)
	}
	p.Regression("PCR", res.PCRTest)

	p.section("Model comparison")
	p.Comparison(res.Comparison)
	p.Plots(res.Plots)
}

// Credit はクレジットレポートを書き出す
func (p *Printer) Credit(res *CreditResult) {
	p.printf("%s run %s\n", p.header("Credit report"), p.dim(res.RunID))
	p.printf("%d rows, %d features, response %q\n", res.Rows, len(res.Features), res.Config.Response)

	p.section("Summary statistics")
	p.Summary(res.Summary)
	p.section("Correlation with " + res.Config.Response)
	p.Correlations(res.Correlations)
	p.section("Split")
	p.printf("train %d rows, test %d rows (fraction %.2f, seed %d)\n",
		len(res.Split.Train), len(res.Split.Test), res.Config.SplitFraction, res.Config.Seed)

	for _, fr := range res.Families {
		p.section(fr.Family + " cross-validation (" + fr.Scheme + ")")
		p.Grid(fr, "accuracy")
		if fr.Family == "SVM" && fr.Selected() {
			p.printf("support vectors: %d\n", res.SupportVectors)
		}
	}

	p.section("Model comparison")
	p.Comparison(res.Comparison)

	p.section("Winner on test rows: " + res.Winner.Family + " " + res.Winner.Best)
	p.Confusion(res.WinnerTest.Confusion)
	p.Plots(res.Plots)
}

// Summary は列ごとの要約統計量の表
func (p *Printer) Summary(rows []dataset.ColumnSummary) {
	p.printf("%-10s %10s %10s %10s %10s %10s %10s %10s\n", "", "Min", "1st Qu.", "Median", "Mean", "3rd Qu.", "Max", "Std.Dev")
	for _, s := range rows {
		p.printf("%-10s %10.4g %10.4g %10.4g %10.4g %10.4g %10.4g %10.4g\n",
			s.Name, s.Min, s.Q1, s.Median, s.Mean, s.Q3, s.Max, s.Std)
	}
}

// Correlations は応答との相関を絶対値の大きい順に並べる
func (p *Printer) Correlations(pairs []dataset.CorrelationPair) {
	for _, c := range pairs {
		p.printf("%-10s %8.4f\n", c.B, c.R)
	}
}

// OLSSummary は係数表と当てはまりの統計量
func (p *Printer) OLSSummary(s *linear.Summary) {
	p.printf("%-14s %12s %12s %8s %10s\n", "", "Estimate", "Std. Error", "t value", "Pr(>|t|)")
	for _, c := range s.Coefficients {
		p.printf("%-14s %12.5g %12.5g %8.3f %10.4g %s\n",
			c.Term, c.Estimate, c.StdError, c.TValue, c.PValue, significance(c.PValue))
	}
	p.printf("%s\n", p.dim("Signif. codes: 0 '***' 0.001 '**' 0.01 '*' 0.05 '.' 0.1 ' ' 1"))
	p.printf("Residual standard error: %.4g on %d degrees of freedom\n", s.ResidualStdError, s.DF)
	p.printf("Multiple R-squared: %.4f, Adjusted R-squared: %.4f\n", s.RSquared, s.AdjRSquared)
	p.printf("F-statistic: %.4g on %d and %d DF, p-value: %.4g\n", s.FStatistic, s.FNumDF, s.DF, s.FPValue)
}

func significance(pv float64) string {
	switch {
	case pv < 0.001:
		return "***"
	case pv < 0.01:
		return "**"
	case pv < 0.05:
		return "*"
	case pv < 0.1:
		return "."
	default:
		return ""
	}
}

// Grid はグリッド点ごとの交差検証結果。選ばれた点に印を付ける
func (p *Printer) Grid(fr *FamilyResult, metric string) {
	p.printf("%-36s %10s %10s\n", "", metric, "SD")
	for i, r := range fr.Grid {
		if !r.Converged {
			p.printf("%-36s %s\n", r.Params, p.bad("excluded: "+r.Err))
			continue
		}
		line := fmt.Sprintf("%-36s %10.4f %10.4f", r.Params, r.Score, r.Std)
		if i == fr.Index {
			line = p.good(line + "  <- selected")
		}
		p.printf("%s\n", line)
	}
	if fr.Ties > 0 {
		p.printf("%s\n", p.dim(fmt.Sprintf("%d tied point(s) resolved toward the simpler setting", fr.Ties)))
	}
	if fr.Excluded > 0 {
		p.printf("%s\n", p.bad(fmt.Sprintf("%d point(s) excluded from selection", fr.Excluded)))
	}
}

// Regression はテスト行での回帰評価
func (p *Printer) Regression(name string, ev *RegressorEvaluation) {
	s := ev.Summary
	p.printf("%s: R² %.4f, RMSE %.4g, MAE %.4g\n", name, ev.R2, ev.RMSE, ev.MAE)
	p.printf("  residuals: min %.4g, 1Q %.4g, median %.4g, 3Q %.4g, max %.4g\n", s.Min, s.Q1, s.Median, s.Q3, s.Max)
}

// Comparison は族ごとの最良点の比較表
func (p *Printer) Comparison(rows []ComparisonRow) {
	p.printf("%-20s %-32s %10s %10s %10s\n", "model", "selected", "CV", "SD", "test")
	best := -1
	for i, r := range rows {
		if !r.Excluded && (best < 0 || r.CVScore > rows[best].CVScore) {
			best = i
		}
	}
	for i, r := range rows {
		if r.Excluded {
			p.printf("%-20s %s\n", r.Model, p.bad("excluded: no grid point converged"))
			continue
		}
		line := fmt.Sprintf("%-20s %-32s %10.4f %10.4f %10.4f", r.Model, r.Params, r.CVScore, r.CVStd, r.TestScore)
		if i == best {
			line = p.good(line)
		}
		p.printf("%s\n", line)
	}
	if len(rows) > 0 {
		p.printf("%s\n", p.dim("metric: "+rows[0].Metric))
	}
}

// Confusion は混同行列（行が実測、列が予測）とクラスごとの統計量
func (p *Printer) Confusion(cm *metrics.ConfusionMatrix) {
	p.printf("%-12s", "truth\\pred")
	for _, l := range cm.Labels {
		p.printf(" %8g", l)
	}
	p.printf("\n")
	for i, l := range cm.Labels {
		p.printf("%-12g", l)
		for j := range cm.Labels {
			cell := fmt.Sprintf(" %8d", cm.Counts[i][j])
			if i == j {
				cell = p.good(cell)
			}
			p.printf("%s", cell)
		}
		p.printf("\n")
	}
	p.printf("accuracy %.4f\n", cm.Accuracy())
	for _, s := range cm.PerClass() {
		p.printf("class %g: TP %d FP %d FN %d TN %d, sensitivity %.4f, specificity %.4f\n",
			s.Label, s.TP, s.FP, s.FN, s.TN, s.Sensitivity, s.Specificity)
	}
}

// Plots は書き出した図のパス
func (p *Printer) Plots(paths []string) {
	if len(paths) == 0 {
		return
	}
	p.section("Plots")
	for _, path := range paths {
		p.printf("%s\n", path)
	}
}
