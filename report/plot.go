package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/statlab/dataset"
	"github.com/YuminosukeSato/statlab/pkg/errors"
	"github.com/YuminosukeSato/statlab/sklearn/decomposition"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Curve は CV 曲線の系列1本
type Curve struct {
	Name string
	X, Y []float64
}

// CurvesFromGrid は収束したグリッド点を Series ごとに最初の出現順でまとめる。
// Series を持たない点（横軸のない族）と横軸が有限でない点は除く
func CurvesFromGrid(rows []GridRow) []Curve {
	var curves []Curve
	index := make(map[string]int)
	for _, r := range rows {
		if !r.Converged || r.Series == "" || math.IsInf(r.X, 0) || math.IsNaN(r.X) {
			continue
		}
		i, ok := index[r.Series]
		if !ok {
			i = len(curves)
			index[r.Series] = i
			curves = append(curves, Curve{Name: r.Series})
		}
		curves[i].X = append(curves[i].X, r.X)
		curves[i].Y = append(curves[i].Y, r.Score)
	}
	return curves
}

// SaveCurves は CV 曲線を PNG に書き出す
func SaveCurves(path, title, xLabel, yLabel string, curves []Curve) error {
	if len(curves) == 0 {
		return errors.NewValueError("SaveCurves", "no curves to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	for i, c := range curves {
		xys := make(plotter.XYs, len(c.X))
		for k := range c.X {
			xys[k] = plotter.XY{X: c.X[k], Y: c.Y[k]}
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return errors.Wrapf(err, "curve %s", c.Name)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		if len(curves) > 1 {
			p.Legend.Add(c.Name, line, points)
		}
	}
	p.Legend.Top = true
	return save(p, path, 7*vg.Inch, 5*vg.Inch)
}

// SaveScree は主成分ごとの寄与率（棒）と累積寄与率（折れ線）を描く
func SaveScree(path string, pca *decomposition.PCA) error {
	ratio := pca.ExplainedVarianceRatio()
	if len(ratio) == 0 {
		return errors.NewValueError("SaveScree", "PCA has no components")
	}
	p := plot.New()
	p.Title.Text = "Scree plot"
	p.X.Label.Text = "component"
	p.Y.Label.Text = "proportion of variance"
	p.Y.Min, p.Y.Max = 0, 1

	bars, err := plotter.NewBarChart(plotter.Values(ratio), vg.Points(14))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)

	cum := pca.CumulativeVarianceRatio()
	xys := make(plotter.XYs, len(cum))
	names := make([]string, len(cum))
	for i, v := range cum {
		xys[i] = plotter.XY{X: float64(i), Y: v}
		names[i] = fmt.Sprintf("PC%d", i+1)
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(1)
	points.Color = plotutil.Color(1)
	p.Add(line, points)
	p.Legend.Add("individual", bars)
	p.Legend.Add("cumulative", line, points)
	p.Legend.Left = true
	p.Legend.Top = true
	p.NominalX(names...)
	return save(p, path, 7*vg.Inch, 5*vg.Inch)
}

// SavePredicted は実測値に対する予測値の散布図と y = x の線を描く
func SavePredicted(path, title string, truth, pred []float64) error {
	if len(truth) != len(pred) || len(truth) == 0 {
		return errors.NewDimensionMismatchError("SavePredicted", len(truth), len(pred), 0)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(truth))
	for i := range truth {
		xys[i] = plotter.XY{X: truth[i], Y: pred[i]}
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)

	lo := math.Min(floats.Min(truth), floats.Min(pred))
	hi := math.Max(floats.Max(truth), floats.Max(pred))
	ident := plotter.NewFunction(func(x float64) float64 { return x })
	ident.Color = color.RGBA{R: 200, G: 30, B: 30, A: 180}
	ident.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ident)
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min, p.Y.Max = lo, hi
	return save(p, path, 6*vg.Inch, 6*vg.Inch)
}

// SavePairs は columns の全組み合わせの散布図行列を描く。対角はヒストグラム
func SavePairs(path string, table *dataset.Table, columns []string) error {
	m := len(columns)
	if m < 2 {
		return errors.NewValueError("SavePairs", "need at least two columns")
	}
	values := make([][]float64, m)
	for i, name := range columns {
		v, err := table.Column(name)
		if err != nil {
			return err
		}
		values[i] = v
	}

	plots := make([][]*plot.Plot, m)
	for i := 0; i < m; i++ {
		plots[i] = make([]*plot.Plot, m)
		for j := 0; j < m; j++ {
			p := plot.New()
			if i == m-1 {
				p.X.Label.Text = columns[j]
			}
			if j == 0 {
				p.Y.Label.Text = columns[i]
			}
			if i == j {
				h, err := plotter.NewHist(plotter.Values(values[i]), 12)
				if err != nil {
					return err
				}
				h.FillColor = plotutil.Color(2)
				p.Add(h)
			} else {
				xys := make(plotter.XYs, len(values[j]))
				for k := range values[j] {
					xys[k] = plotter.XY{X: values[j][k], Y: values[i][k]}
				}
				s, err := plotter.NewScatter(xys)
				if err != nil {
					return err
				}
				s.GlyphStyle.Radius = vg.Points(1.5)
				s.GlyphStyle.Color = plotutil.Color(0)
				p.Add(s)
			}
			plots[i][j] = p
		}
	}

	side := vg.Length(m) * 2 * vg.Inch
	img := vgimg.New(side, side)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      m,
		Cols:      m,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			plots[i][j].Draw(canvases[i][j])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func save(p *plot.Plot, path string, w, h vg.Length) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(w, h, path)
}

// pairsColumns は応答と、応答との相関が強い順に n 個の特徴量
func pairsColumns(response string, corr []dataset.CorrelationPair, n int) []string {
	cols := []string{response}
	for i := 0; i < len(corr) && i < n; i++ {
		cols = append(cols, corr[i].B)
	}
	return cols
}

func crimePlots(dir string, table *dataset.Table, res *CrimeResult, yTest []float64) ([]string, error) {
	var written []string
	out := func(name string) string {
		path := filepath.Join(dir, name)
		written = append(written, path)
		return path
	}

	if err := SavePairs(out("crime_pairs.png"), table, pairsColumns(res.Config.Response, res.Correlations, res.Config.PairsFeatures)); err != nil {
		return nil, err
	}
	if err := SaveScree(out("crime_scree.png"), res.PCA); err != nil {
		return nil, err
	}
	if err := SaveCurves(out("crime_pcr_cv.png"), "PCR cross-validated R²", "components", "R²", CurvesFromGrid(res.PCR.Grid)); err != nil {
		return nil, err
	}
	if err := SavePredicted(out("crime_pcr_test.png"), "PCR on test rows", yTest, res.PCRTest.Predictions); err != nil {
		return nil, err
	}
	if res.OLSTest != nil {
		if err := SavePredicted(out("crime_ols_test.png"), "Linear regression on test rows", yTest, res.OLSTest.Predictions); err != nil {
			return nil, err
		}
	}
	return written, nil
}

func creditPlots(dir string, table *dataset.Table, res *CreditResult) ([]string, error) {
	var written []string
	path := filepath.Join(dir, "credit_pairs.png")
	if err := SavePairs(path, table, pairsColumns(res.Config.Response, res.Correlations, res.Config.PairsFeatures)); err != nil {
		return nil, err
	}
	written = append(written, path)

	xLabels := map[string]string{
		"SVM":         "log10(cost)",
		"k-NN":        "k",
		"Elastic net": "log10(lambda)",
	}
	for _, fr := range res.Families {
		curves := CurvesFromGrid(fr.Grid)
		if len(curves) == 0 {
			continue
		}
		path := filepath.Join(dir, "credit_"+fileName(fr.Family)+"_cv.png")
		if err := SaveCurves(path, fr.Family+" cross-validated accuracy", xLabels[fr.Family], "accuracy", curves); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

func fileName(family string) string {
	out := make([]rune, 0, len(family))
	for _, r := range family {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+'a'-'A')
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
