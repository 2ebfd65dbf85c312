package l5crowns

import "errors"

// Constants for region growing configuration
const (
	// DefaultMaxCrownRadius is the largest horizontal extent of one crown in metres.
	DefaultMaxCrownRadius = 15.0
	// DefaultGrowthDistance is the 3-D reach of one growth step in metres.
	DefaultGrowthDistance = 1.5
	// DefaultGrowthAngleDeg is the steepest upward growth step in degrees.
	DefaultGrowthAngleDeg = 60.0
	// DefaultMaxIterations caps the number of flood-fill rounds.
	DefaultMaxIterations = 20

	// minAngleDist2D is the horizontal distance below which the growth angle
	// is not evaluated.
	minAngleDist2D = 0.01
	// mopUpRadiusFactor scales the crown radius for Stage 3.
	mopUpRadiusFactor = 1.5
	// fallbackRadiusFactor scales the crown radius for Stage 4.
	fallbackRadiusFactor = 3.0
)

// ErrNoTreeTops is returned when segmentation is asked to run without seeds.
var ErrNoTreeTops = errors.New("no tree tops detected")

// Params configures region growing.
type Params struct {
	MaxCrownRadius float64 // Stage 1 radius; Stages 3 and 4 scale it
	GrowthDistance float64 // Maximum 3-D step during Stage 2
	GrowthAngleDeg float64 // Maximum upward slope during Stage 2
	MaxIterations  int     // Stage 2 round cap; 0 disables flood fill
}

// DefaultParams returns the production region-growing parameters.
func DefaultParams() Params {
	return Params{
		MaxCrownRadius: DefaultMaxCrownRadius,
		GrowthDistance: DefaultGrowthDistance,
		GrowthAngleDeg: DefaultGrowthAngleDeg,
		MaxIterations:  DefaultMaxIterations,
	}
}

// Frontier is one tree's seed set for a single Stage 2 round: the points
// assigned to the tree when the round began, in arena order. Frontiers are
// snapshots and are not modified while the round runs.
type Frontier struct {
	TreeID int
	Points []int
}

// RoundStats records the growth of one Stage 2 round.
type RoundStats struct {
	Round    int   // 1-based round number
	Assigned int   // Points claimed during the round
	PerTree  []int // Points claimed per tree, indexed by tree id
}

// Result summarises a segmentation run.
type Result struct {
	Stage1Assigned  int          // Points assigned to the nearest tree top
	Rounds          []RoundStats // Stage 2 rounds that ran, including the final idle round
	Stage3Assigned  int          // Points adopted from the nearest assigned point
	Stage4Assigned  int          // Points given to a tree top in the relaxed pass
	TreePointCounts []int        // Final points per tree, indexed by tree id
	Unassigned      int          // Non-ground points left without a tree
}

// Stage2Assigned returns the total number of points claimed by flood fill.
func (r *Result) Stage2Assigned() int {
	n := 0
	for _, rs := range r.Rounds {
		n += rs.Assigned
	}
	return n
}

// Reassigned returns the points placed by the Stage 3 and 4 passes.
func (r *Result) Reassigned() int {
	return r.Stage3Assigned + r.Stage4Assigned
}
