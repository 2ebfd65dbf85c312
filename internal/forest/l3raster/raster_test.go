package l3raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
)

func TestBuild_EmptyStore(t *testing.T) {
	r := Build(l1points.NewPointStore(nil), 0.5)
	assert.True(t, r.Empty())
	assert.Nil(t, r.Heights())
	assert.Equal(t, 0, r.OccupiedCells())
	assert.Equal(t, 0.0, r.MaxHeight())

	_, _, ok := r.CellOf(0, 0)
	assert.False(t, ok)
}

func TestBuild_AllGround(t *testing.T) {
	store := l1points.FromXYZ(0, 0, 0, 1, 1, 0)
	store.SetGround(0, true)
	store.SetGround(1, true)

	r := Build(store, 0.5)
	assert.True(t, r.Empty(), "ground points never enter the raster")
}

func TestBuild_UnrepresentableExtentIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		xyz  []float64
	}{
		{"extent overflows", []float64{1e308, 0, 5, -1e308, 0, 5}},
		{"extent exceeds cell cap", []float64{1e12, 0, 5, -1e12, 0, 5}},
		{"too many cells in total", []float64{0, 0, 5, 1e5, 1e5, 5}},
		{"infinite coordinate", []float64{0, 0, 5, math.Inf(1), 1, 5}},
		{"nan coordinate", []float64{math.NaN(), 0, 5, 1, 1, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r *HeightRaster
			require.NotPanics(t, func() { r = Build(l1points.FromXYZ(tt.xyz...), 0.5) })
			assert.True(t, r.Empty())
			assert.Nil(t, r.Heights())
			assert.Equal(t, 0.0, r.MaxHeight())
		})
	}
}

func TestGridSpan(t *testing.T) {
	n, ok := gridSpan(2.3, 0.5)
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = gridSpan(math.Inf(1), 0.5)
	assert.False(t, ok)
	_, ok = gridSpan(math.NaN(), 0.5)
	assert.False(t, ok)
	_, ok = gridSpan(float64(MaxCells), 1)
	assert.False(t, ok)
}

func TestBuild_Dimensions(t *testing.T) {
	// Non-ground extent 2.3 x 1.0 at 0.5 m cells: floor(4.6)+1 = 5 cols, floor(2)+1 = 3 rows.
	store := l1points.FromXYZ(
		10.0, 20.0, 3,
		12.3, 21.0, 4,
		-50, -50, 0, // ground, outside the box
	)
	store.SetGround(2, true)

	r := Build(store, 0.5)
	require.False(t, r.Empty())
	assert.Equal(t, 5, r.Cols)
	assert.Equal(t, 3, r.Rows)
	assert.Equal(t, Bounds{MinX: 10, MaxX: 12.3, MinY: 20, MaxY: 21}, r.Bounds)

	rows, cols := r.Heights().Dims()
	assert.Equal(t, r.Rows, rows)
	assert.Equal(t, r.Cols, cols)
}

func TestBuild_MaxHeightAndCounts(t *testing.T) {
	store := l1points.FromXYZ(
		0.0, 0.0, 3.0,
		0.1, 0.2, 7.5, // same cell as point 0
		0.4, 0.4, 5.0, // same cell
		1.0, 0.0, 2.0, // col 2
		1.0, 1.0, 1.0, // row 2, col 2
	)

	r := Build(store, 0.5)
	require.Equal(t, 3, r.Rows)
	require.Equal(t, 3, r.Cols)

	c := r.At(0, 0)
	assert.Equal(t, 7.5, c.MaxHeight)
	assert.Equal(t, 3, c.PointCount)

	assert.Equal(t, 2.0, r.Height(0, 2))
	assert.Equal(t, 1.0, r.Height(2, 2))

	// Untouched cells keep the zero initial height.
	assert.Equal(t, Cell{}, r.At(1, 1))

	assert.Equal(t, 3, r.OccupiedCells())
	assert.Equal(t, 7.5, r.MaxHeight())
}

// Two points with the same floor((x-minX)/cs) and floor((y-minY)/cs) always
// share a cell, and the cell height is the maximum of their heights.
func TestBuild_CellAssignmentIsDeterministic(t *testing.T) {
	cs := 0.5
	xyz := []float64{}
	for i := 0; i < 40; i++ {
		x := float64(i%7)*0.37 - 1.1
		y := float64(i%5)*0.29 + 3.3
		z := float64((i*13)%11) + 2
		xyz = append(xyz, x, y, z)
	}
	store := l1points.FromXYZ(xyz...)
	r := Build(store, cs)

	want := map[[2]int]float64{}
	for _, p := range store.Points() {
		col := int(math.Floor((p.X() - r.Bounds.MinX) / cs))
		row := int(math.Floor((p.Y() - r.Bounds.MinY) / cs))
		key := [2]int{row, col}

		gotRow, gotCol, ok := r.CellOf(p.X(), p.Y())
		require.True(t, ok)
		assert.Equal(t, key, [2]int{gotRow, gotCol})

		want[key] = math.Max(want[key], p.Z())
	}
	for key, h := range want {
		assert.Equal(t, h, r.Height(key[0], key[1]), "cell %v", key)
	}
}

func TestBuild_SinglePoint(t *testing.T) {
	r := Build(l1points.FromXYZ(5, 5, 9), 0.5)
	require.Equal(t, 1, r.Rows)
	require.Equal(t, 1, r.Cols)
	assert.Equal(t, 9.0, r.Height(0, 0))
}

func TestHeightRaster_CellCenter(t *testing.T) {
	r := Build(l1points.FromXYZ(0, 0, 1, 2, 2, 1), 0.5)

	x, y := r.CellCenter(0, 0)
	assert.Equal(t, 0.25, x)
	assert.Equal(t, 0.25, y)

	x, y = r.CellCenter(2, 3)
	assert.Equal(t, 1.75, x)
	assert.Equal(t, 1.25, y)
}

func TestHeightRaster_Idx(t *testing.T) {
	r := &HeightRaster{Rows: 3, Cols: 4}
	assert.Equal(t, 0, r.Idx(0, 0))
	assert.Equal(t, 6, r.Idx(1, 2))
	assert.True(t, r.InBounds(2, 3))
	assert.False(t, r.InBounds(3, 0))
	assert.False(t, r.InBounds(0, -1))
}
