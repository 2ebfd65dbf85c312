// Package export writes segmentation results as line-oriented text files.
//
// Segmentation files hold one "x y z treeId" line per non-ground point in
// arena order. Tree-top files hold one "x y z index" line per tree top in
// detection order, where index is the tree id used in the segmentation
// file. Coordinates use the shortest decimal form that round-trips.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
)

// ErrOutputUnwritable is returned when an output file cannot be created or
// written. In-memory results are left untouched.
var ErrOutputUnwritable = errors.New("output unwritable")

func appendCoord(buf []byte, v r3.Vector) []byte {
	buf = strconv.AppendFloat(buf, v.X, 'g', -1, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, v.Y, 'g', -1, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, v.Z, 'g', -1, 64)
	return buf
}

// WriteSegmentation writes every non-ground point of store as
// "x y z treeId" and returns the number of lines written.
func WriteSegmentation(w io.Writer, store *l1points.PointStore) (int, error) {
	bw := bufio.NewWriter(w)
	var line []byte
	n := 0
	for _, p := range store.Points() {
		if p.IsGround {
			continue
		}
		line = appendCoord(line[:0], p.Position)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(p.TreeID), 10)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// WriteTreeTops writes one "x y z index" line per tree top.
func WriteTreeTops(w io.Writer, tops []l4treetops.TreeTop) error {
	bw := bufio.NewWriter(w)
	var line []byte
	for _, t := range tops {
		line = appendCoord(line[:0], t.Position)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(t.Index), 10)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteXYZ writes positions as "x y z" lines, the format ReadXYZ parses.
func WriteXYZ(w io.Writer, positions []r3.Vector) error {
	bw := bufio.NewWriter(w)
	var line []byte
	for _, p := range positions {
		line = appendCoord(line[:0], p)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// saveFile creates path, hands it to write and wraps any failure in
// ErrOutputUnwritable.
func saveFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		opsf("cannot create %s: %v", path, err)
		return fmt.Errorf("%w: %s: %w", ErrOutputUnwritable, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %s: %w", ErrOutputUnwritable, path, cerr)
		}
	}()

	if err := write(f); err != nil {
		opsf("write %s failed: %v", path, err)
		return fmt.Errorf("%w: %s: %w", ErrOutputUnwritable, path, err)
	}
	return nil
}

// SaveSegmentation writes the segmentation file to path.
func SaveSegmentation(path string, store *l1points.PointStore) error {
	var lines int
	err := saveFile(path, func(w io.Writer) error {
		var werr error
		lines, werr = WriteSegmentation(w, store)
		return werr
	})
	if err != nil {
		return err
	}
	diagf("wrote %d segmented points to %s", lines, path)
	return nil
}

// SaveTreeTops writes the tree-top file to path.
func SaveTreeTops(path string, tops []l4treetops.TreeTop) error {
	err := saveFile(path, func(w io.Writer) error { return WriteTreeTops(w, tops) })
	if err != nil {
		return err
	}
	diagf("wrote %d tree tops to %s", len(tops), path)
	return nil
}

// SaveXYZ writes a point file to path.
func SaveXYZ(path string, positions []r3.Vector) error {
	err := saveFile(path, func(w io.Writer) error { return WriteXYZ(w, positions) })
	if err != nil {
		return err
	}
	diagf("wrote %d points to %s", len(positions), path)
	return nil
}
