package l1points

import "github.com/golang/geo/r3"

// PointStore is a fixed-size arena of points. A point's index is its
// identity for the whole run: the arena never grows, shrinks or reorders
// after construction, so indices held by later layers stay valid. Only the
// label fields (IsGround, IsTreeTop, TreeID) are mutated.
//
// PointStore is not safe for concurrent use; a run owns its store.
type PointStore struct {
	points []Point
}

// NewPointStore copies pts into a new arena.
func NewPointStore(pts []Point) *PointStore {
	cp := make([]Point, len(pts))
	copy(cp, pts)
	return &PointStore{points: cp}
}

// FromPositions builds an arena of unlabeled points.
func FromPositions(positions []r3.Vector) *PointStore {
	pts := make([]Point, len(positions))
	for i, v := range positions {
		pts[i] = Point{Position: v, TreeID: Unassigned}
	}
	return &PointStore{points: pts}
}

// FromXYZ builds an arena from flat x, y, z triples. Trailing values that
// do not form a full triple are ignored.
func FromXYZ(xyz ...float64) *PointStore {
	n := len(xyz) / 3
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		pts[i] = NewPoint(xyz[3*i], xyz[3*i+1], xyz[3*i+2])
	}
	return &PointStore{points: pts}
}

// Len returns the number of points in the arena.
func (s *PointStore) Len() int { return len(s.points) }

// At returns a copy of point i.
func (s *PointStore) At(i int) Point { return s.points[i] }

// Points returns the backing slice. Callers must treat it as read-only.
func (s *PointStore) Points() []Point { return s.points }

// SetGround sets the ground flag of point i.
func (s *PointStore) SetGround(i int, ground bool) { s.points[i].IsGround = ground }

// MarkTreeTop flags point i as a crown seed. It reports false when the
// point was already a tree top.
func (s *PointStore) MarkTreeTop(i int) bool {
	if s.points[i].IsTreeTop {
		return false
	}
	s.points[i].IsTreeTop = true
	return true
}

// Assign sets the tree identifier of point i.
func (s *PointStore) Assign(i, treeID int) { s.points[i].TreeID = treeID }

// TreeID returns the tree identifier of point i.
func (s *PointStore) TreeID(i int) int { return s.points[i].TreeID }

// NonGround returns the indices of all non-ground points in storage order.
func (s *PointStore) NonGround() []int {
	idx := make([]int, 0, len(s.points))
	for i := range s.points {
		if !s.points[i].IsGround {
			idx = append(idx, i)
		}
	}
	return idx
}

// GroundCount returns the number of points flagged as ground.
func (s *PointStore) GroundCount() int {
	n := 0
	for i := range s.points {
		if s.points[i].IsGround {
			n++
		}
	}
	return n
}

// AssignedCount returns the number of non-ground points with a tree.
func (s *PointStore) AssignedCount() int {
	n := 0
	for i := range s.points {
		if !s.points[i].IsGround && s.points[i].TreeID != Unassigned {
			n++
		}
	}
	return n
}

// ResetAssignments sets every point back to Unassigned and clears the
// tree-top flags. Ground flags are kept.
func (s *PointStore) ResetAssignments() {
	for i := range s.points {
		s.points[i].TreeID = Unassigned
		s.points[i].IsTreeTop = false
	}
}

// Distance returns the 3-D distance between points i and j.
func (s *PointStore) Distance(i, j int) float64 {
	return s.points[i].Distance(s.points[j])
}

// Distance2D returns the horizontal distance between points i and j.
func (s *PointStore) Distance2D(i, j int) float64 {
	return s.points[i].Distance2D(s.points[j])
}
