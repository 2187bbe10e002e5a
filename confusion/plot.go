package confusion

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// figureFormats lists the file extensions Plot can save to
var figureFormats = []string{".png", ".pdf", ".eps", ".svg"}

// matrixGrid adapts a dense matrix to the heat map grid interface,
// flipping rows so the first matrix row is drawn at the top
type matrixGrid struct {
	m *mat.Dense
}

func (g matrixGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g matrixGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g matrixGrid) X(c int) float64 { return float64(c) }

func (g matrixGrid) Y(r int) float64 { return float64(r) }

// classTicks places one axis tick per cell, labelled with the class name
type classTicks struct {
	labels []string
}

func (t classTicks) Ticks(min, max float64) []plot.Tick {

	ticks := make([]plot.Tick, 0, len(t.labels))

	for i, label := range t.labels {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: label})
	}

	return ticks
}

// Plot saves the confusion matrix as a heat map figure.  Cell colors
// follow the row normalized percentages and each cell is annotated with
// its raw count.  The figure format is taken from the path extension,
// which must be one of .png, .pdf, .eps or .svg.
func Plot(path string, m *Matrix, keepUnmatched bool) error {

	ext := strings.ToLower(filepath.Ext(path))
	supported := false

	for _, format := range figureFormats {
		if ext == format {
			supported = true
			break
		}
	}

	if !supported {
		return fmt.Errorf("unsupported figure format %q, want one of %s",
			ext, strings.Join(figureFormats, " "))
	}

	labels := m.Classes()

	if keepUnmatched {
		labels = append(labels, Unmatched)
	}

	show := len(labels)

	colors := mat.NewDense(show, show, nil)
	norm := m.Normalized()

	for i := 0; i < show; i++ {
		for j := 0; j < show; j++ {
			colors.Set(i, j, norm.At(i, j))
		}
	}

	p := plot.New()
	p.Title.Text = "Confusion matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Ground truth"

	heat := plotter.NewHeatMap(matrixGrid{colors}, palette.Heat(48, 1))
	heat.Min = 0
	heat.Max = 100
	p.Add(heat)

	p.X.Tick.Marker = classTicks{labels}

	flipped := make([]string, show)

	for i, label := range labels {
		flipped[show-1-i] = label
	}

	p.Y.Tick.Marker = classTicks{flipped}

	cells, err := cellCounts(m, show)

	if err != nil {
		return err
	}

	p.Add(cells)

	side := vg.Length(3+show) * vg.Inch

	if err := p.Save(side, side, path); err != nil {
		return fmt.Errorf("error saving figure %s: %w", path, err)
	}

	return nil
}

// cellCounts builds the count annotations drawn over the heat map cells
func cellCounts(m *Matrix, show int) (*plotter.Labels, error) {

	var xys plotter.XYs
	var texts []string

	for i := 0; i < show; i++ {
		for j := 0; j < show; j++ {
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(show - 1 - i)})
			texts = append(texts, fmt.Sprintf("%.0f", m.At(i, j)))
		}
	}

	cells, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})

	if err != nil {
		return nil, fmt.Errorf("error building cell labels: %w", err)
	}

	for i := range cells.TextStyle {
		cells.TextStyle[i].XAlign = draw.XCenter
		cells.TextStyle[i].YAlign = draw.YCenter
	}

	return cells, nil
}
