package l3raster

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
)

// DefaultCellSize is the default raster resolution in metres.
const DefaultCellSize = 0.5

// MaxCells caps the number of raster cells one run may allocate.
const MaxCells = 1 << 28

// Bounds is an axis-aligned bounding box in the horizontal plane.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// NonGroundBounds returns the bounding box of all non-ground points. ok is
// false when there are none.
func NonGroundBounds(store *l1points.PointStore) (b Bounds, ok bool) {
	for _, p := range store.Points() {
		if p.IsGround {
			continue
		}
		if !ok {
			b = Bounds{MinX: p.X(), MaxX: p.X(), MinY: p.Y(), MaxY: p.Y()}
			ok = true
			continue
		}
		b.MinX = math.Min(b.MinX, p.X())
		b.MaxX = math.Max(b.MaxX, p.X())
		b.MinY = math.Min(b.MinY, p.Y())
		b.MaxY = math.Max(b.MaxY, p.Y())
	}
	return b, ok
}

// Cell is a single raster cell.
type Cell struct {
	MaxHeight  float64
	PointCount int
}

// HeightRaster stores the maximum non-ground height per cell.
// Rows run along y (northing), columns along x (easting).
type HeightRaster struct {
	Bounds   Bounds
	CellSize float64
	Rows     int
	Cols     int

	heights *mat.Dense // nil when the raster is empty
	counts  []int      // len = Rows * Cols
}

// Build bins the non-ground points of store into a raster with the given
// cell size. Cells start at height 0. An empty non-ground set yields an
// empty raster, as does an extent that is not finite or would need more
// than MaxCells cells.
func Build(store *l1points.PointStore, cellSize float64) *HeightRaster {
	r := &HeightRaster{CellSize: cellSize}

	b, ok := NonGroundBounds(store)
	if !ok || cellSize <= 0 {
		diagf("raster empty: no non-ground points")
		return r
	}

	cols, okCols := gridSpan(b.MaxX-b.MinX, cellSize)
	rows, okRows := gridSpan(b.MaxY-b.MinY, cellSize)
	if !okCols || !okRows || rows > MaxCells/cols {
		opsf("raster empty: extent %g x %g m at %.2f m cells cannot be rasterized",
			b.MaxX-b.MinX, b.MaxY-b.MinY, cellSize)
		return r
	}

	r.Bounds = b
	r.Cols = cols
	r.Rows = rows
	r.heights = mat.NewDense(r.Rows, r.Cols, nil)
	r.counts = make([]int, r.Rows*r.Cols)

	for _, p := range store.Points() {
		if p.IsGround {
			continue
		}
		row, col, in := r.CellOf(p.X(), p.Y())
		if !in {
			continue
		}
		if p.Z() > r.heights.At(row, col) {
			r.heights.Set(row, col, p.Z())
		}
		r.counts[r.Idx(row, col)]++
	}

	diagf("raster size: %d x %d (cell %.2f m, %d occupied)", r.Rows, r.Cols, cellSize, r.OccupiedCells())
	return r
}

// gridSpan returns floor(extent/cellSize)+1, or false when the quotient is
// not finite or exceeds MaxCells.
func gridSpan(extent, cellSize float64) (int, bool) {
	n := math.Floor(extent / cellSize)
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n >= MaxCells {
		return 0, false
	}
	return int(n) + 1, true
}

// Empty reports whether the raster has no cells.
func (r *HeightRaster) Empty() bool { return r.Rows == 0 || r.Cols == 0 }

// Idx returns the flat index of a cell: idx = row*Cols + col.
func (r *HeightRaster) Idx(row, col int) int { return row*r.Cols + col }

// InBounds reports whether (row, col) addresses a cell.
func (r *HeightRaster) InBounds(row, col int) bool {
	return row >= 0 && row < r.Rows && col >= 0 && col < r.Cols
}

// CellOf maps a horizontal position to its cell.
func (r *HeightRaster) CellOf(x, y float64) (row, col int, ok bool) {
	if r.Empty() {
		return 0, 0, false
	}
	col = int(math.Floor((x - r.Bounds.MinX) / r.CellSize))
	row = int(math.Floor((y - r.Bounds.MinY) / r.CellSize))
	return row, col, r.InBounds(row, col)
}

// Height returns the maximum height stored in a cell.
func (r *HeightRaster) Height(row, col int) float64 {
	return r.heights.At(row, col)
}

// At returns the cell at (row, col).
func (r *HeightRaster) At(row, col int) Cell {
	return Cell{MaxHeight: r.heights.At(row, col), PointCount: r.counts[r.Idx(row, col)]}
}

// CellCenter returns the plot coordinates of the centre of a cell.
func (r *HeightRaster) CellCenter(row, col int) (x, y float64) {
	x = r.Bounds.MinX + (float64(col)+0.5)*r.CellSize
	y = r.Bounds.MinY + (float64(row)+0.5)*r.CellSize
	return x, y
}

// Heights exposes the height matrix (rows x cols). Nil for an empty raster.
func (r *HeightRaster) Heights() mat.Matrix {
	if r.heights == nil {
		return nil
	}
	return r.heights
}

// OccupiedCells returns the number of cells holding at least one point.
func (r *HeightRaster) OccupiedCells() int {
	n := 0
	for _, c := range r.counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// MaxHeight returns the tallest cell height, or 0 for an empty raster.
func (r *HeightRaster) MaxHeight() float64 {
	if r.heights == nil {
		return 0
	}
	return mat.Max(r.heights)
}
