package l4treetops

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l3raster"
	"github.com/banshee-data/treeseg/internal/forest/spatial"
)

// gridStore places one point on the lower-left corner of every cell of a
// rows x cols raster with 0.5 m cells, so cell (r, c) has height h[r][c]
// and holds arena point r*cols+c.
func gridStore(h [][]float64) *l1points.PointStore {
	var xyz []float64
	for r, row := range h {
		for c, z := range row {
			xyz = append(xyz, float64(c)*0.5, float64(r)*0.5, z)
		}
	}
	return l1points.FromXYZ(xyz...)
}

func flat(rows, cols int, z float64) [][]float64 {
	h := make([][]float64, rows)
	for r := range h {
		h[r] = make([]float64, cols)
		for c := range h[r] {
			h[r][c] = z
		}
	}
	return h
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 0.5, p.CellSize)
	assert.Equal(t, 2.0, p.MinTreeHeight)
	assert.Equal(t, 3, p.WindowSize)
}

func TestDetect_EmptyStore(t *testing.T) {
	tops, raster := NewDetector(DefaultParams(), nil).Detect(l1points.NewPointStore(nil))
	assert.Empty(t, tops)
	assert.True(t, raster.Empty())
}

func TestDetect_SinglePeak(t *testing.T) {
	h := flat(9, 9, 5)
	h[4][4] = 10
	store := gridStore(h)

	tops, raster := NewDetector(DefaultParams(), nil).Detect(store)
	require.Equal(t, 9, raster.Rows)
	require.Equal(t, 9, raster.Cols)
	require.Len(t, tops, 1)

	// The cell centre is equidistant from four corner points; the first in
	// storage order (the cell's own point) wins.
	want := TreeTop{Index: 0, PointIndex: 4*9 + 4, Position: store.At(40).Position, Row: 4, Col: 4}
	if diff := cmp.Diff(want, tops[0]); diff != "" {
		t.Errorf("tree top mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, store.At(40).IsTreeTop)
}

func TestDetect_EqualNeighborsDisqualifyBoth(t *testing.T) {
	h := flat(9, 10, 5)
	h[4][4] = 10
	h[4][5] = 10

	tops, _ := NewDetector(DefaultParams(), nil).Detect(gridStore(h))
	assert.Empty(t, tops, "a flat-topped pair must yield no tree top")
}

func TestDetect_FlatPlateauYieldsNothing(t *testing.T) {
	h := flat(12, 12, 4)
	for r := 4; r < 8; r++ {
		for c := 4; c < 8; c++ {
			h[r][c] = 9
		}
	}
	tops, _ := NewDetector(DefaultParams(), nil).Detect(gridStore(h))
	assert.Empty(t, tops)
}

func TestDetect_BorderCellsNeverEvaluated(t *testing.T) {
	h := flat(9, 9, 5)
	h[1][1] = 20 // within window of the edge
	h[8][4] = 20 // on the edge
	tops, _ := NewDetector(DefaultParams(), nil).Detect(gridStore(h))
	assert.Empty(t, tops)
}

func TestDetect_BelowMinimumHeight(t *testing.T) {
	h := flat(9, 9, 1.0)
	h[4][4] = 1.9
	tops, _ := NewDetector(DefaultParams(), nil).Detect(gridStore(h))
	assert.Empty(t, tops)

	p := DefaultParams()
	p.MinTreeHeight = 1.9
	tops, _ = NewDetector(p, nil).Detect(gridStore(h))
	assert.Len(t, tops, 1, "minimum height is inclusive")
}

func TestDetect_RowMajorOrder(t *testing.T) {
	h := flat(15, 15, 3)
	h[10][4] = 12
	h[4][10] = 8

	tops, _ := NewDetector(DefaultParams(), nil).Detect(gridStore(h))
	require.Len(t, tops, 2)
	assert.Equal(t, CellRef{Row: 4, Col: 10}, CellRef{Row: tops[0].Row, Col: tops[0].Col})
	assert.Equal(t, CellRef{Row: 10, Col: 4}, CellRef{Row: tops[1].Row, Col: tops[1].Col})
	assert.Equal(t, 0, tops[0].Index)
	assert.Equal(t, 1, tops[1].Index)
}

func TestDetect_SharedPointIsRecordedOnce(t *testing.T) {
	// Window 0 accepts both cells; the point at (0.5, 0.25) is nearest to
	// both cell centres, so only the first cell produces a tree top.
	store := l1points.FromXYZ(
		0.0, 0.0, 3,
		0.5, 0.25, 5,
	)
	p := Params{CellSize: 0.5, MinTreeHeight: 2, WindowSize: 0}

	tops, raster := NewDetector(p, nil).Detect(store)
	require.Equal(t, 1, raster.Rows)
	require.Equal(t, 2, raster.Cols)
	require.Len(t, tops, 1)
	assert.Equal(t, 1, tops[0].PointIndex)
	assert.Equal(t, 0, tops[0].Col)
}

func TestDetect_IgnoresGroundPoints(t *testing.T) {
	h := flat(9, 9, 5)
	h[4][4] = 10
	store := gridStore(h)
	store.SetGround(40, true)

	tops, _ := NewDetector(DefaultParams(), nil).Detect(store)
	assert.Empty(t, tops, "peak point is ground, so the cell keeps the plateau height")
}

func TestLocalMaxima_BorderExclusionProperty(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	h := make([][]float64, 20)
	for r := range h {
		h[r] = make([]float64, 25)
		for c := range h[r] {
			h[r][c] = 2 + rnd.Float64()*10
		}
	}
	raster := l3raster.Build(gridStore(h), 0.5)

	for _, w := range []int{1, 2, 3} {
		for _, c := range LocalMaxima(raster, 2, w) {
			if c.Row < w || c.Row >= raster.Rows-w || c.Col < w || c.Col >= raster.Cols-w {
				t.Errorf("window %d: cell %+v within the border band", w, c)
			}
			assert.True(t, IsLocalMaximum(raster, c.Row, c.Col, w))
		}
	}
}

func TestDetect_IndexMatchesScan(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	var xyz []float64
	for i := 0; i < 2000; i++ {
		xyz = append(xyz, rnd.Float64()*30, rnd.Float64()*30, 2+rnd.Float64()*15)
	}

	a := l1points.FromXYZ(xyz...)
	b := l1points.FromXYZ(xyz...)
	topsA, _ := NewDetector(DefaultParams(), spatial.BuilderFor(true)).Detect(a)
	topsB, _ := NewDetector(DefaultParams(), spatial.BuilderFor(false)).Detect(b)

	require.NotEmpty(t, topsA)
	if diff := cmp.Diff(topsB, topsA); diff != "" {
		t.Errorf("index and scan disagree (-scan +index):\n%s", diff)
	}
}

func TestDetect_DiagLogging(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(nil, &buf, nil)
	defer SetLogWriters(nil, nil, nil)

	h := flat(9, 9, 5)
	h[4][4] = 10
	NewDetector(DefaultParams(), nil).Detect(gridStore(h))

	assert.True(t, strings.Contains(buf.String(), "detected 1 tree tops"), buf.String())
}
