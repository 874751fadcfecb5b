package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"sleepstage-eval/internal/metrics"
)

const (
	plotWidth    = 7 * vg.Inch
	plotHeight   = 6 * vg.Inch
	colorBarSize = 1.2 * vg.Inch
)

var (
	blueLight = color.RGBA{R: 247, G: 251, B: 255, A: 255}
	blueDark  = color.RGBA{R: 8, G: 48, B: 107, A: 255}
)

// PlotFiles names the two heatmaps written by PlotConfusionPair.
var PlotFiles = [2]string{"confusion_matrix.png", "confusion_matrix_normalized.png"}

// PlotConfusionPair renders the raw and row-normalized heatmaps into dir
// and returns their paths.
func PlotConfusionPair(cm *metrics.Confusion, classes []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create plot dir: %w", err)
	}
	paths := make([]string, 0, 2)
	titles := [2]string{"Confusion matrix, without normalization", "Normalized confusion matrix"}
	for i, normalize := range []bool{false, true} {
		path := filepath.Join(dir, PlotFiles[i])
		if err := PlotConfusion(cm, classes, normalize, titles[i], path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// PlotConfusion draws one annotated heatmap with a color bar and writes it
// as PNG. Row 0 is drawn at the top.
func PlotConfusion(cm *metrics.Confusion, classes []string, normalize bool, title, path string) error {
	var m *mat.Dense
	format := "%.0f"
	if normalize {
		m = cm.Normalized()
		format = "%.2f"
	} else {
		m = cm.Counts()
	}
	n, _ := m.Dims()
	if len(classes) != n {
		return fmt.Errorf("report: %d class names for a %dx%d matrix", len(classes), n, n)
	}

	maxVal := mat.Max(m)
	scaleMax := maxVal
	if scaleMax <= 0 {
		scaleMax = 1
	}

	cmap, err := moreland.NewLuminance([]color.Color{blueLight, blueDark})
	if err != nil {
		return fmt.Errorf("report: color map: %w", err)
	}
	cmap.SetMin(0)
	cmap.SetMax(scaleMax)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"

	hm := plotter.NewHeatMap(grid{m: m, n: n}, cmap.Palette(255))
	hm.Min = 0
	hm.Max = scaleMax
	p.Add(hm)

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i, name := range classes {
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	cells, err := annotations(m, n, format, maxVal/2)
	if err != nil {
		return err
	}
	p.Add(cells)

	bar := plot.New()
	bar.HideX()
	bar.Y.Padding = 0
	bar.Add(&plotter.ColorBar{ColorMap: cmap, Vertical: true, Colors: 255})

	img := vgimg.New(plotWidth, plotHeight)
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -colorBarSize, 0, 0))
	bar.Draw(draw.Crop(dc, plotWidth-colorBarSize, 0, vg.Inch/2, -vg.Inch/2))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return f.Close()
}

// annotations labels every cell, switching to white text on dark cells.
func annotations(m *mat.Dense, n int, format string, thresh float64) (*plotter.Labels, error) {
	xys := make(plotter.XYs, 0, n*n)
	texts := make([]string, 0, n*n)
	values := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := m.At(i, j)
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(n - 1 - i)})
			texts = append(texts, fmt.Sprintf(format, v))
			values = append(values, v)
		}
	}
	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, fmt.Errorf("report: annotations: %w", err)
	}
	for i, v := range values {
		lbls.TextStyle[i].XAlign = draw.XCenter
		lbls.TextStyle[i].YAlign = draw.YCenter
		if v > thresh {
			lbls.TextStyle[i].Color = color.White
		} else {
			lbls.TextStyle[i].Color = color.Black
		}
	}
	return lbls, nil
}

// grid adapts a square matrix to plotter.GridXYZ with row 0 on top.
type grid struct {
	m *mat.Dense
	n int
}

func (g grid) Dims() (c, r int)   { return g.n, g.n }
func (g grid) Z(c, r int) float64 { return g.m.At(g.n-1-r, c) }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }
