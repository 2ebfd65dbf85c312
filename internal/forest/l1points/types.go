package l1points

import (
	"math"

	"github.com/golang/geo/r3"
)

// Unassigned is the TreeID of a point that belongs to no tree.
const Unassigned = -1

// Point is a single laser return with its segmentation labels.
type Point struct {
	Position  r3.Vector // Plot frame position (metres)
	IsGround  bool      // Set by the ground classifier
	IsTreeTop bool      // Set when the point seeds a crown
	TreeID    int       // Index into the tree-top list, or Unassigned
}

// NewPoint returns an unlabeled point at (x, y, z).
func NewPoint(x, y, z float64) Point {
	return Point{Position: r3.Vector{X: x, Y: y, Z: z}, TreeID: Unassigned}
}

// X returns the easting of the point.
func (p Point) X() float64 { return p.Position.X }

// Y returns the northing of the point.
func (p Point) Y() float64 { return p.Position.Y }

// Z returns the height of the point.
func (p Point) Z() float64 { return p.Position.Z }

// Distance returns the 3-D Euclidean distance between two points.
func (p Point) Distance(q Point) float64 {
	return p.Position.Distance(q.Position)
}

// Distance2D returns the horizontal distance between two points.
func (p Point) Distance2D(q Point) float64 {
	return Distance2D(p.Position.X, p.Position.Y, q.Position.X, q.Position.Y)
}

// Distance2D returns the planar distance between (x1, y1) and (x2, y2).
func Distance2D(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return math.Sqrt(dx*dx + dy*dy)
}
