// Package synthetic generates small forest point clouds for tests, demos
// and the sample-file mode of the CLI.
package synthetic

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
)

// Span is a half-open range of arena indices.
type Span struct {
	Start, End int
}

// Len returns the number of indices in the span.
func (s Span) Len() int { return s.End - s.Start }

// Contains reports whether i lies in the span.
func (s Span) Contains(i int) bool { return i >= s.Start && i < s.End }

// Sample is a generated cloud. Crown points come first, one contiguous span
// per crown, followed by the ground points.
type Sample struct {
	Positions []r3.Vector
	Crowns    []Span
	Ground    Span
}

// Store returns a fresh point store over the sample positions.
func (s *Sample) Store() *l1points.PointStore {
	return l1points.FromPositions(s.Positions)
}

// CrownOf returns the crown that generated arena point i, or -1 for ground.
func (s *Sample) CrownOf(i int) int {
	for k, sp := range s.Crowns {
		if sp.Contains(i) {
			return k
		}
	}
	return -1
}

func (s *Sample) addCrown(pts []r3.Vector) {
	start := len(s.Positions)
	s.Positions = append(s.Positions, pts...)
	s.Crowns = append(s.Crowns, Span{Start: start, End: len(s.Positions)})
}

func (s *Sample) addGround(pts []r3.Vector) {
	start := len(s.Positions)
	s.Positions = append(s.Positions, pts...)
	s.Ground = Span{Start: start, End: len(s.Positions)}
}

// Ring sample layout.
const (
	RingCrownCount     = 3
	RingPointsPerCrown = 100
	RingCrownSpacing   = 20.0
	GroundPointCount   = 50
	GroundSpacing      = 2.0
)

// RingCrowns returns the classic three-crown sample: each crown is 100
// points on a spiral of up to 20 rings around (20k, 20k) with heights
// between 5.0 and 7.7 m, followed by 50 ground points at z=0 along the
// diagonal.
func RingCrowns() *Sample {
	s := &Sample{}
	for t := 0; t < RingCrownCount; t++ {
		cx := float64(t) * RingCrownSpacing
		cy := cx
		pts := make([]r3.Vector, 0, RingPointsPerCrown)
		for i := 0; i < RingPointsPerCrown; i++ {
			angle := float64(i) * 2 * math.Pi / RingPointsPerCrown
			radius := float64(i%20) * 0.5
			pts = append(pts, r3.Vector{
				X: cx + radius*math.Cos(angle),
				Y: cy + radius*math.Sin(angle),
				Z: 5.0 + float64(i%10)*0.3,
			})
		}
		s.addCrown(pts)
	}
	s.addGround(GroundLine(GroundPointCount, GroundSpacing))
	return s
}

// GroundLine returns n points at z=0 spaced along the x=y diagonal.
func GroundLine(n int, spacing float64) []r3.Vector {
	pts := make([]r3.Vector, n)
	for i := range pts {
		d := float64(i) * spacing
		pts[i] = r3.Vector{X: d, Y: d, Z: 0}
	}
	return pts
}

// DomeOptions shapes DomeCrowns.
type DomeOptions struct {
	Centers [][2]float64 // Crown centres (x, y)
	Radius  float64      // Crown radius in metres
	Step    float64      // Grid spacing of crown points
	Base    float64      // Height of the crown rim
	Height  float64      // Height of the apex above the rim
	Jitter  float64      // Horizontal noise amplitude; 0 keeps a regular grid
	Seed    int64        // Seed for Jitter
}

// DefaultDomeOptions returns three 4 m domes along the diagonal, 28 m apart.
func DefaultDomeOptions() DomeOptions {
	return DomeOptions{
		Centers: [][2]float64{{0, 0}, {20, 20}, {40, 40}},
		Radius:  4.0,
		Step:    0.4,
		Base:    4.0,
		Height:  6.0,
	}
}

// DomeCrowns returns dense paraboloid crowns, z = Base + Height*(1-(r/R)^2),
// sampled on a square grid clipped to the crown radius, followed by the
// standard ground line. Each crown has a single highest raster cell, so
// detection yields one tree top per dome.
func DomeCrowns(opts DomeOptions) *Sample {
	var rng *rand.Rand
	if opts.Jitter > 0 {
		rng = rand.New(rand.NewSource(opts.Seed))
	}
	n := int(opts.Radius / opts.Step)

	s := &Sample{}
	for _, c := range opts.Centers {
		var pts []r3.Vector
		for iy := -n; iy <= n; iy++ {
			for ix := -n; ix <= n; ix++ {
				x := float64(ix) * opts.Step
				y := float64(iy) * opts.Step
				if rng != nil {
					x += (rng.Float64()*2 - 1) * opts.Jitter
					y += (rng.Float64()*2 - 1) * opts.Jitter
				}
				r := math.Hypot(x, y)
				if r > opts.Radius {
					continue
				}
				rr := r / opts.Radius
				pts = append(pts, r3.Vector{
					X: c[0] + x,
					Y: c[1] + y,
					Z: opts.Base + opts.Height*(1-rr*rr),
				})
			}
		}
		s.addCrown(pts)
	}
	s.addGround(GroundLine(GroundPointCount, GroundSpacing))
	return s
}
