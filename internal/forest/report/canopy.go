package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/treeseg/internal/forest/l3raster"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
)

// ErrEmptyRaster is returned when there is nothing to plot.
var ErrEmptyRaster = errors.New("raster is empty")

// canopyGrid adapts a HeightRaster to plotter.GridXYZ. Columns map to x
// and rows to y, both at cell centres.
type canopyGrid struct {
	r *l3raster.HeightRaster
}

func (g canopyGrid) Dims() (c, r int) { return g.r.Cols, g.r.Rows }

func (g canopyGrid) Z(c, r int) float64 { return g.r.Height(r, c) }

func (g canopyGrid) X(c int) float64 {
	x, _ := g.r.CellCenter(0, c)
	return x
}

func (g canopyGrid) Y(r int) float64 {
	_, y := g.r.CellCenter(r, 0)
	return y
}

// treeTopXYs exposes tree-top positions as plotter.XYer.
type treeTopXYs []l4treetops.TreeTop

func (t treeTopXYs) Len() int { return len(t) }

func (t treeTopXYs) XY(i int) (x, y float64) {
	return t[i].Position.X, t[i].Position.Y
}

// NewCanopyPlot builds the canopy height model heatmap with tree tops
// overlaid as crosses.
func NewCanopyPlot(r *l3raster.HeightRaster, tops []l4treetops.TreeTop) (*plot.Plot, error) {
	if r == nil || r.Empty() {
		return nil, ErrEmptyRaster
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Canopy height model (%d x %d, %.2f m cells)", r.Rows, r.Cols, r.CellSize)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	hm := plotter.NewHeatMap(canopyGrid{r: r}, palette.Heat(32, 1))
	hm.Min = 0
	hm.Max = r.MaxHeight()
	if hm.Max <= hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	if len(tops) > 0 {
		sc, err := plotter.NewScatter(treeTopXYs(tops))
		if err != nil {
			return nil, fmt.Errorf("tree top scatter: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Color = color.RGBA{R: 0, G: 90, B: 255, A: 255}
		p.Add(sc)
		p.Legend.Add("tree tops", sc)
	}
	return p, nil
}

// PlotCanopy renders the canopy plot to path. The image format follows the
// file extension (.png, .svg, .pdf).
func PlotCanopy(r *l3raster.HeightRaster, tops []l4treetops.TreeTop, path string) error {
	p, err := NewCanopyPlot(r, tops)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save canopy plot %s: %w", path, err)
	}
	diagf("canopy plot written to %s", path)
	return nil
}
