package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
)

var ErrUnsupportedFormat = errors.New("unsupported plot format")

// CombinedFile is the base name of the side-by-side chart.
const CombinedFile = "combined_metrics_comparison"

const dpi = 300

type errPoints struct {
	plotter.XYs
	plotter.YErrors
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// barPlot draws mean ± SD bars for one metric. Tick labels carry the group
// size and are rotated once there are more than rotateAfter treatments.
func barPlot(stats []GroupStats, metric, heading, xLabel, yLabel string, rotateAfter int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = heading
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	n := len(stats)
	means := make(plotter.Values, n)
	pts := errPoints{XYs: make(plotter.XYs, n), YErrors: make(plotter.YErrors, n)}
	labelPos := make(plotter.XYs, n)
	labelText := make([]string, n)
	ticks := make([]string, n)

	for i, s := range stats {
		mean, std := finiteOrZero(s.Mean), finiteOrZero(s.Std)
		means[i] = mean
		pts.XYs[i] = plotter.XY{X: float64(i), Y: mean}
		pts.YErrors[i].Low, pts.YErrors[i].High = std, std
		labelPos[i] = plotter.XY{X: float64(i), Y: mean + std + math.Abs(mean)*0.01}
		labelText[i] = fmt.Sprintf("%.2f", mean)
		ticks[i] = fmt.Sprintf("%s\nn=%d", s.Treatment, s.N)
	}

	bars, err := plotter.NewBarChart(means, vg.Points(28))
	if err != nil {
		return nil, fmt.Errorf("%s bars: %w", metric, err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Points(1)

	errBars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, fmt.Errorf("%s error bars: %w", metric, err)
	}
	errBars.CapWidth = vg.Points(10)

	values, err := plotter.NewLabels(plotter.XYLabels{XYs: labelPos, Labels: labelText})
	if err != nil {
		return nil, fmt.Errorf("%s labels: %w", metric, err)
	}
	for i := range values.TextStyle {
		values.TextStyle[i].XAlign = text.XCenter
		values.TextStyle[i].YAlign = text.YBottom
	}

	p.Add(bars, errBars, values)
	p.NominalX(ticks...)
	if n > rotateAfter {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = text.XRight
	}
	return p, nil
}

// PlotTreatmentMeans writes <metric>_by_treatment.<format> for every metric
// present in stats and returns the files written.
func PlotTreatmentMeans(stats []GroupStats, metrics []string, dir string, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	for _, metric := range metrics {
		group := ForMetric(stats, metric)
		if len(group) == 0 {
			continue
		}
		t := title(metric)
		p, err := barPlot(group, metric,
			"Mean "+t+" by Treatment Condition", "Treatment Condition", "Mean "+t, 5)
		if err != nil {
			return written, err
		}

		for _, format := range formats {
			path := filepath.Join(dir, metric+"_by_treatment."+format)
			if err := render([]*plot.Plot{p}, 10*vg.Inch, 6*vg.Inch, path, format); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

// PlotCombined draws the metrics side by side in one figure.
func PlotCombined(stats []GroupStats, metrics []string, dir string, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var plots []*plot.Plot
	for _, metric := range metrics {
		group := ForMetric(stats, metric)
		if len(group) == 0 {
			continue
		}
		t := title(metric)
		p, err := barPlot(group, metric, "Mean "+t, "Treatment", t, 3)
		if err != nil {
			return nil, err
		}
		plots = append(plots, p)
	}
	if len(plots) == 0 {
		return nil, nil
	}

	var written []string
	width := vg.Length(5*len(plots)) * vg.Inch
	for _, format := range formats {
		path := filepath.Join(dir, CombinedFile+"."+format)
		if err := render(plots, width, 5*vg.Inch, path, format); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// render tiles plots in one row onto a canvas of the given format.
func render(plots []*plot.Plot, w, h vg.Length, path, format string) error {
	var c vg.CanvasWriterTo
	switch format {
	case "png":
		c = vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))}
	case "pdf":
		c = vgpdf.New(w, h)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)
	for j, p := range plots {
		p.Draw(canvases[0][j])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
