// Package chart renders frequency traces, fitted models and spectra as images.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ignazhar/radaurio/algorithms/spectral"
	"github.com/ignazhar/radaurio/logging"
)

// ErrNothingToPlot is returned for an empty trace or spectrogram
var ErrNothingToPlot = errors.New("nothing to plot")

// Curve is a model that can be evaluated at trace indices 0..n-1
type Curve interface {
	Curve(n int) []float64
}

var (
	traceFill = color.RGBA{R: 70, G: 130, B: 180, A: 160}
	modelLine = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	frameLine = color.RGBA{R: 38, G: 139, B: 210, A: 255}
)

const (
	width  = 8 * vg.Inch
	height = 4 * vg.Inch
)

// Render draws the trace as a filled area and, when model is non-nil, the
// model prediction on the same indices. The image format follows the
// extension of path (png, svg, pdf, jpg, ...).
func Render(path string, trace []float64, model Curve) error {
	if len(trace) == 0 {
		return ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = "Dominant frequency"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "bin"

	observed, err := plotter.NewLine(points(trace))
	if err != nil {
		return fmt.Errorf("trace series: %w", err)
	}
	observed.FillColor = traceFill
	observed.Color = traceFill
	p.Add(observed)
	p.Legend.Add("observed", observed)

	if model != nil {
		fitted, err := plotter.NewLine(points(model.Curve(len(trace))))
		if err != nil {
			return fmt.Errorf("model series: %w", err)
		}
		fitted.Color = modelLine
		fitted.Width = vg.Points(2)
		p.Add(fitted)
		p.Legend.Add("model", fitted)
	}

	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	logging.Debug("Chart written", logging.Fields{
		"component": "chart",
		"path":      path,
		"points":    len(trace),
		"model":     model != nil,
	})
	return nil
}

// RenderSpectrogram writes one PNG per frame into dir, named frame_0000.png
// onwards, and returns the written paths in frame order.
func RenderSpectrogram(dir string, s *spectral.Spectrogram) ([]string, error) {
	if s == nil || s.Len() == 0 || s.Bins() == 0 {
		return nil, ErrNothingToPlot
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, s.Len())
	for i, frame := range s.Frames {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Frame %d", i)
		p.X.Label.Text = "bin"
		p.Y.Label.Text = "magnitude"

		line, err := plotter.NewLine(points(frame))
		if err != nil {
			return paths, fmt.Errorf("frame %d: %w", i, err)
		}
		line.Color = frameLine
		p.Add(line)

		path := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))
		if err := p.Save(width, height, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	logging.Debug("Spectrogram frames written", logging.Fields{
		"component": "chart",
		"dir":       dir,
		"frames":    len(paths),
	})
	return paths, nil
}

// points drops non-finite values, which the plotters reject
func points(ys []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(ys))
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i), Y: y})
	}
	return xys
}
