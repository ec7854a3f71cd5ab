// Package chart draws the clustering error curves with gonum/plot.
package chart

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/modelselect/pkg/errors"
	"github.com/YuminosukeSato/modelselect/selection"
)

// 既定の画像サイズ
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// ElbowPlot builds a plot with one line per family (k against distortion)
// and a cross on each selected elbow.
func ElbowPlot(curves []selection.FamilyCurve) (*plot.Plot, error) {
	if len(curves) == 0 {
		return nil, errors.NewValidationError("curves", "nothing to plot", 0)
	}

	p := plot.New()
	p.Title.Text = "Elbow selection"
	p.X.Label.Text = "k"
	p.Y.Label.Text = "Distortion"
	p.Legend.Top = true

	elbows := make(plotter.XYs, 0, len(curves))
	for i, fc := range curves {
		if len(fc.Curve) == 0 {
			return nil, errors.NewValidationError("curves", "empty curve", fc.Algorithm.String())
		}
		pts := make(plotter.XYs, len(fc.Curve))
		for j, pt := range fc.Curve {
			pts[j].X = float64(pt.K)
			pts[j].Y = pt.Error
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "chart: %s curve", fc.Algorithm)
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(legendLabel(fc), line, points)

		elbows = append(elbows, plotter.XY{X: float64(fc.Elbow.K), Y: fc.Elbow.Error})
	}

	marks, err := plotter.NewScatter(elbows)
	if err != nil {
		return nil, errors.Wrap(err, "chart: elbows")
	}
	marks.Shape = draw.CrossGlyph{}
	marks.Radius = vg.Points(6)
	p.Add(marks)
	p.Add(plotter.NewGrid())
	return p, nil
}

func legendLabel(fc selection.FamilyCurve) string {
	label := fmt.Sprintf("%s (k=%d)", fc.Algorithm, fc.Elbow.K)
	if fc.Elbow.Fallback {
		label += " fallback"
	}
	return label
}

// SaveElbow writes the elbow chart to path. The format follows the file
// extension (png, svg, pdf, ...).
func SaveElbow(path string, curves []selection.FamilyCurve) error {
	p, err := ElbowPlot(curves)
	if err != nil {
		return err
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.Wrapf(err, "chart: save %s", path)
	}
	return nil
}

// WriteElbow renders the chart in the given format ("png", "svg", ...) to w.
func WriteElbow(w io.Writer, format string, curves []selection.FamilyCurve) error {
	p, err := ElbowPlot(curves)
	if err != nil {
		return err
	}
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		return errors.NewValidationError("format", "image format is required", format)
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, format)
	if err != nil {
		return errors.Wrapf(err, "chart: %s", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "chart: write")
	}
	return nil
}

// FormatOf returns the image format implied by path.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
