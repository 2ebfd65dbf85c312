package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
)

func TestWriteSegmentation_SkipsGroundKeepsOrder(t *testing.T) {
	store := l1points.FromXYZ(
		1.5, 2, 7.25,
		0, 0, 0,
		-3, 4.125, 6,
		10, 10, 5,
	)
	store.SetGround(1, true)
	store.Assign(0, 2)
	store.Assign(2, 0)

	var buf bytes.Buffer
	n, err := WriteSegmentation(&buf, store)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "1.5 2 7.25 2\n-3 4.125 6 0\n10 10 5 -1\n", buf.String())
}

func TestWriteTreeTops(t *testing.T) {
	tops := []l4treetops.TreeTop{
		{Index: 0, Position: r3.Vector{X: 0.4, Y: 0.4, Z: 9.88}},
		{Index: 1, Position: r3.Vector{X: 20.4, Y: 20.4, Z: 9.88}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTreeTops(&buf, tops))
	assert.Equal(t, "0.4 0.4 9.88 0\n20.4 20.4 9.88 1\n", buf.String())
}

func TestWriteXYZ_RoundTripsThroughReader(t *testing.T) {
	positions := []r3.Vector{
		{X: 0.1, Y: 0.2, Z: 0.30000000000000004},
		{X: -1e-7, Y: 123456.789, Z: 3},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXYZ(&buf, positions))

	store, err := l1points.ReadXYZ(&buf)
	require.NoError(t, err)
	require.Equal(t, len(positions), store.Len())
	for i, want := range positions {
		assert.Equal(t, want, store.At(i).Position)
	}
}

func TestSaveFiles(t *testing.T) {
	dir := t.TempDir()
	store := l1points.FromXYZ(1, 2, 3, 4, 5, 6)
	store.Assign(1, 0)

	seg := filepath.Join(dir, "segmented.txt")
	require.NoError(t, SaveSegmentation(seg, store))
	data, err := os.ReadFile(seg)
	require.NoError(t, err)
	assert.Equal(t, "1 2 3 -1\n4 5 6 0\n", string(data))

	tops := filepath.Join(dir, "tops.txt")
	require.NoError(t, SaveTreeTops(tops, []l4treetops.TreeTop{{Index: 0, Position: store.At(1).Position}}))
	data, err = os.ReadFile(tops)
	require.NoError(t, err)
	assert.Equal(t, "4 5 6 0\n", string(data))

	xyz := filepath.Join(dir, "sample.xyz")
	require.NoError(t, SaveXYZ(xyz, []r3.Vector{{X: 1, Y: 1, Z: 1}}))
	data, err = os.ReadFile(xyz)
	require.NoError(t, err)
	assert.Equal(t, "1 1 1\n", string(data))
}

func TestSave_UnwritablePath(t *testing.T) {
	store := l1points.FromXYZ(1, 2, 3)
	store.Assign(0, 0)
	bad := filepath.Join(t.TempDir(), "missing", "dir", "out.txt")

	err := SaveSegmentation(bad, store)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputUnwritable))
	assert.Equal(t, 0, store.TreeID(0), "in-memory labels are not rolled back")

	assert.ErrorIs(t, SaveTreeTops(bad, nil), ErrOutputUnwritable)
	assert.ErrorIs(t, SaveXYZ(bad, nil), ErrOutputUnwritable)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteSegmentation_PropagatesWriterError(t *testing.T) {
	store := l1points.FromXYZ(1, 2, 3)
	_, err := WriteSegmentation(failWriter{}, store)
	assert.Error(t, err)
}
