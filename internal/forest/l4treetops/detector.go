package l4treetops

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l3raster"
	"github.com/banshee-data/treeseg/internal/forest/spatial"
)

// Constants for detector configuration
const (
	// DefaultMinTreeHeight is the lowest cell height, in metres, that can seed a tree.
	DefaultMinTreeHeight = 2.0
	// DefaultWindowSize is the half-width, in cells, of the local-maximum window.
	DefaultWindowSize = 3
)

// TreeTop is a crown seed. Index is the tree identifier.
type TreeTop struct {
	Index      int       // Position in the tree-top list
	PointIndex int       // Arena index of the representative point
	Position   r3.Vector // Copy of the representative point's position
	Row, Col   int       // Raster cell that produced the seed
}

// Params configures tree-top detection.
type Params struct {
	CellSize      float64 // Raster resolution (metres)
	MinTreeHeight float64 // Minimum cell height to be considered
	WindowSize    int     // Half-width of the neighborhood in cells
}

// DefaultParams returns the production detection parameters.
func DefaultParams() Params {
	return Params{
		CellSize:      l3raster.DefaultCellSize,
		MinTreeHeight: DefaultMinTreeHeight,
		WindowSize:    DefaultWindowSize,
	}
}

// CellRef addresses a raster cell.
type CellRef struct {
	Row, Col int
}

// Detector finds tree tops in a classified point store.
type Detector struct {
	params       Params
	neighborhood spatial.Builder
}

// NewDetector returns a detector. A nil builder selects the R-tree index.
func NewDetector(params Params, neighborhood spatial.Builder) *Detector {
	if neighborhood == nil {
		neighborhood = spatial.BuilderFor(true)
	}
	return &Detector{params: params, neighborhood: neighborhood}
}

// Params returns the detector configuration.
func (d *Detector) Params() Params { return d.params }

// Detect builds the height raster, finds its local maxima and records one
// tree top per accepted cell. Each accepted tree top flags its point with
// IsTreeTop. The raster is returned for diagnostics only.
func (d *Detector) Detect(store *l1points.PointStore) ([]TreeTop, *l3raster.HeightRaster) {
	raster := l3raster.Build(store, d.params.CellSize)
	if raster.Empty() {
		diagf("detected 0 tree tops (empty raster)")
		return nil, raster
	}

	cells := LocalMaxima(raster, d.params.MinTreeHeight, d.params.WindowSize)
	nb := d.neighborhood(store, store.NonGround())

	var tops []TreeTop
	for _, c := range cells {
		cx, cy := raster.CellCenter(c.Row, c.Col)
		best, ok := nearestWithin(store, nb, cx, cy, d.params.CellSize)
		if !ok {
			tracef("cell (%d,%d): no point within %.2f m of centre", c.Row, c.Col, d.params.CellSize)
			continue
		}
		if !store.MarkTreeTop(best) {
			tracef("cell (%d,%d): point %d already seeds a tree", c.Row, c.Col, best)
			continue
		}
		tops = append(tops, TreeTop{
			Index:      len(tops),
			PointIndex: best,
			Position:   store.At(best).Position,
			Row:        c.Row,
			Col:        c.Col,
		})
	}

	diagf("detected %d tree tops from %d local maxima", len(tops), len(cells))
	return tops, raster
}

// LocalMaxima returns the cells, in row-major order, whose height is at
// least minHeight and strictly greater than every other cell within window
// cells. Cells closer than window to any edge are never evaluated. Equal
// heights disqualify, so a flat-topped patch yields no maximum at all.
func LocalMaxima(r *l3raster.HeightRaster, minHeight float64, window int) []CellRef {
	var out []CellRef
	for row := window; row < r.Rows-window; row++ {
		for col := window; col < r.Cols-window; col++ {
			if r.Height(row, col) < minHeight {
				continue
			}
			if IsLocalMaximum(r, row, col, window) {
				out = append(out, CellRef{Row: row, Col: col})
			}
		}
	}
	return out
}

// IsLocalMaximum reports whether every other cell in the
// (2*window+1)^2 neighborhood of (row, col) is strictly lower. The whole
// window must lie inside the raster.
func IsLocalMaximum(r *l3raster.HeightRaster, row, col, window int) bool {
	center := r.Height(row, col)
	for dr := -window; dr <= window; dr++ {
		for dc := -window; dc <= window; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if r.Height(row+dr, col+dc) >= center {
				return false
			}
		}
	}
	return true
}

// nearestWithin returns the point closest to (x, y) whose horizontal
// distance is strictly below limit. Candidates arrive in arena order and
// only a strictly smaller distance replaces the best, so the first point
// wins exact ties.
func nearestWithin(store *l1points.PointStore, nb spatial.Neighborhood, x, y, limit float64) (int, bool) {
	best := -1
	bestDist := math.MaxFloat64
	for _, i := range nb.Within2D(x, y, limit) {
		p := store.At(i)
		dist := l1points.Distance2D(p.X(), p.Y(), x, y)
		if dist < limit && dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best, best >= 0
}
