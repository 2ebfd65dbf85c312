package l5crowns

import (
	"fmt"
	"math"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
	"github.com/banshee-data/treeseg/internal/forest/spatial"
)

// Segmenter assigns non-ground points to tree crowns.
type Segmenter struct {
	params       Params
	neighborhood spatial.Builder
}

// NewSegmenter returns a segmenter. A nil builder selects the R-tree index.
func NewSegmenter(params Params, neighborhood spatial.Builder) *Segmenter {
	if neighborhood == nil {
		neighborhood = spatial.BuilderFor(true)
	}
	return &Segmenter{params: params, neighborhood: neighborhood}
}

// Params returns the segmenter configuration.
func (s *Segmenter) Params() Params { return s.params }

// NeighborhoodFor builds the neighbor index over the non-ground points of
// store. The index stays valid while positions and ground flags are fixed.
func (s *Segmenter) NeighborhoodFor(store *l1points.PointStore) spatial.Neighborhood {
	return s.neighborhood(store, store.NonGround())
}

// Segment runs all four stages and mutates TreeID on the non-ground points
// of store. Non-ground TreeIDs are reset first. With no tree tops nothing is
// assigned and ErrNoTreeTops is returned.
func (s *Segmenter) Segment(store *l1points.PointStore, tops []l4treetops.TreeTop) (*Result, error) {
	if len(tops) == 0 {
		opsf("segmentation skipped: %v", ErrNoTreeTops)
		return nil, fmt.Errorf("region growing: %w", ErrNoTreeTops)
	}

	for _, i := range store.NonGround() {
		store.Assign(i, l1points.Unassigned)
	}
	nb := s.NeighborhoodFor(store)
	res := &Result{}

	res.Stage1Assigned = s.AssignNearestTreeTop(store, tops, s.params.MaxCrownRadius)
	diagf("stage 1: %d points assigned to the nearest tree top", res.Stage1Assigned)

	res.Rounds = s.Grow(store, nb, len(tops))
	diagf("stage 2: %d points grown in %d rounds", res.Stage2Assigned(), len(res.Rounds))

	res.Stage3Assigned = s.AssignNearestAssigned(store, nb)
	diagf("stage 3: %d points adopted from the nearest assigned point", res.Stage3Assigned)

	res.Stage4Assigned = s.AssignNearestTreeTop(store, tops, fallbackRadiusFactor*s.params.MaxCrownRadius)
	diagf("stage 4: %d points assigned by the relaxed tree-top pass", res.Stage4Assigned)

	res.TreePointCounts, res.Unassigned = Tally(store, len(tops))
	diagf("segmentation complete: %d trees, %d reassigned, %d unassigned",
		len(tops), res.Reassigned(), res.Unassigned)
	return res, nil
}

// AssignNearestTreeTop gives every unassigned non-ground point the tree
// whose top is horizontally nearest, provided that distance is <= maxDist.
// Exact ties go to the lower tree index. Stage 1 and Stage 4 both use it.
// Returns the number of points assigned.
func (s *Segmenter) AssignNearestTreeTop(store *l1points.PointStore, tops []l4treetops.TreeTop, maxDist float64) int {
	if len(tops) == 0 {
		return 0
	}
	assigned := 0
	for i, p := range store.Points() {
		if p.IsGround || p.TreeID != l1points.Unassigned {
			continue
		}
		tree, dist := nearestTreeTop(p, tops)
		if tree >= 0 && dist <= maxDist {
			store.Assign(i, tree)
			assigned++
		}
	}
	return assigned
}

// nearestTreeTop returns the index of the horizontally nearest tree top.
func nearestTreeTop(p l1points.Point, tops []l4treetops.TreeTop) (int, float64) {
	best := -1
	bestDist := math.MaxFloat64
	for k := range tops {
		dist := l1points.Distance2D(p.X(), p.Y(), tops[k].Position.X, tops[k].Position.Y)
		if dist < bestDist {
			bestDist = dist
			best = k
		}
	}
	return best, bestDist
}

// SnapshotFrontiers returns one Frontier per tree, in ascending tree order,
// holding the non-ground points currently assigned to that tree.
func SnapshotFrontiers(store *l1points.PointStore, numTrees int) []Frontier {
	frontiers := make([]Frontier, numTrees)
	for k := range frontiers {
		frontiers[k].TreeID = k
	}
	for i, p := range store.Points() {
		if p.IsGround {
			continue
		}
		if p.TreeID >= 0 && p.TreeID < numTrees {
			frontiers[p.TreeID].Points = append(frontiers[p.TreeID].Points, i)
		}
	}
	return frontiers
}

// Grow runs Stage 2: up to MaxIterations flood-fill rounds, stopping after
// the first round that assigns nothing. Returns the stats of every round
// that ran.
func (s *Segmenter) Grow(store *l1points.PointStore, nb spatial.Neighborhood, numTrees int) []RoundStats {
	var rounds []RoundStats
	changed := true
	for round := 1; changed && round <= s.params.MaxIterations; round++ {
		frontiers := SnapshotFrontiers(store, numTrees)
		perTree := s.GrowRound(store, nb, frontiers)

		total := 0
		for _, n := range perTree {
			total += n
		}
		changed = total > 0
		rounds = append(rounds, RoundStats{Round: round, Assigned: total, PerTree: perTree})
		if changed {
			tracef("round %d: %d points grown", round, total)
		}
	}
	return rounds
}

// GrowRound expands every frontier by one ring. Frontiers are processed in
// the order given (ascending tree id from SnapshotFrontiers) and each
// frontier point is visited once. Points claimed during the round are not
// appended to any frontier, but TreeID is read live, so a later tree never
// claims a point an earlier tree took in the same round. Returns the points
// claimed per tree, indexed by tree id.
func (s *Segmenter) GrowRound(store *l1points.PointStore, nb spatial.Neighborhood, frontiers []Frontier) []int {
	perTree := make([]int, len(frontiers))
	for _, f := range frontiers {
		visited := make(map[int]struct{}, len(f.Points))
		for _, cur := range f.Points {
			if _, dup := visited[cur]; dup {
				continue
			}
			visited[cur] = struct{}{}

			from := store.At(cur)
			for _, j := range nb.Within2D(from.X(), from.Y(), s.params.GrowthDistance) {
				to := store.At(j)
				if to.IsGround || to.TreeID != l1points.Unassigned {
					continue
				}
				if !s.CanGrow(from, to) {
					continue
				}
				store.Assign(j, f.TreeID)
				if f.TreeID >= 0 && f.TreeID < len(perTree) {
					perTree[f.TreeID]++
				}
			}
		}
	}
	return perTree
}

// CanGrow reports whether a crown point may claim a neighbor: the 3-D step
// is within GrowthDistance, the horizontal step within MaxCrownRadius, and
// an upward step is no steeper than GrowthAngleDeg. Downward and level steps
// are never limited by the angle, and neither is a near-vertical step whose
// horizontal length is 0.01 m or less.
func (s *Segmenter) CanGrow(from, to l1points.Point) bool {
	if from.Distance(to) > s.params.GrowthDistance {
		return false
	}
	dist2D := from.Distance2D(to)
	if dist2D > s.params.MaxCrownRadius {
		return false
	}
	if dist2D > minAngleDist2D {
		angle := math.Atan2(to.Z()-from.Z(), dist2D) * 180.0 / math.Pi
		if angle > s.params.GrowthAngleDeg {
			return false
		}
	}
	return true
}

// AssignNearestAssigned runs Stage 3. Each unassigned non-ground point, in
// arena order, adopts the tree of the assigned point with the smallest 3-D
// distance among those within 1.5 crown radii horizontally. The first
// candidate in arena order wins exact ties. Points assigned earlier in the
// pass are candidates for later ones. Returns the number of points assigned.
func (s *Segmenter) AssignNearestAssigned(store *l1points.PointStore, nb spatial.Neighborhood) int {
	radius := mopUpRadiusFactor * s.params.MaxCrownRadius
	assigned := 0
	for i := 0; i < store.Len(); i++ {
		p := store.At(i)
		if p.IsGround || p.TreeID != l1points.Unassigned {
			continue
		}

		tree := l1points.Unassigned
		minDist := math.MaxFloat64
		for _, j := range nb.Within2D(p.X(), p.Y(), radius) {
			c := store.At(j)
			if c.IsGround || c.TreeID == l1points.Unassigned {
				continue
			}
			if d := p.Distance(c); d < minDist {
				minDist = d
				tree = c.TreeID
			}
		}
		if tree != l1points.Unassigned {
			store.Assign(i, tree)
			assigned++
		}
	}
	return assigned
}

// Tally counts the non-ground points per tree. Points whose TreeID is not a
// valid tree index count as unassigned.
func Tally(store *l1points.PointStore, numTrees int) (counts []int, unassigned int) {
	counts = make([]int, numTrees)
	for _, p := range store.Points() {
		if p.IsGround {
			continue
		}
		if p.TreeID >= 0 && p.TreeID < numTrees {
			counts[p.TreeID]++
		} else {
			unassigned++
		}
	}
	return counts, unassigned
}
