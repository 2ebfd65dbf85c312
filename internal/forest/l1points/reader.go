package l1points

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// ErrInputUnavailable is returned when a point file cannot be opened.
var ErrInputUnavailable = errors.New("point cloud input unavailable")

// ReadXYZ parses whitespace-separated "x y z" records. Parsing stops at the
// end of the stream or at the first token that is not a finite real number
// (inf and nan included); a trailing record with fewer than three values is
// dropped. Only I/O
// failures are returned as errors.
func ReadXYZ(r io.Reader) (*PointStore, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	var pts []Point
	var rec [3]float64
	n := 0
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			tracef("stopped at token %q after %d points", sc.Text(), len(pts))
			break
		}
		rec[n] = v
		n++
		if n == 3 {
			pts = append(pts, NewPoint(rec[0], rec[1], rec[2]))
			n = 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read points: %w", err)
	}
	return &PointStore{points: pts}, nil
}

// LoadXYZFile opens path and parses it with ReadXYZ.
func LoadXYZFile(path string) (*PointStore, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInputUnavailable, path, err)
	}
	defer f.Close()

	store, err := ReadXYZ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	diagf("loaded %d points from %s", store.Len(), path)
	return store, nil
}
