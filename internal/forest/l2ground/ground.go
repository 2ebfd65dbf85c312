package l2ground

import (
	"math"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
)

// DefaultGroundThreshold is the height above the lowest return, in metres,
// at or below which a point is classified as ground.
const DefaultGroundThreshold = 0.5

// Classifier flags ground points in place.
type Classifier interface {
	// Classify sets IsGround on every point and returns the ground count.
	Classify(store *l1points.PointStore) int
}

// HeightThresholdClassifier marks every point with
// z <= min(z) + ThresholdM as ground. Designed for plots with roughly
// level terrain where the lowest return sits on the forest floor.
type HeightThresholdClassifier struct {
	// ThresholdM is the band above the lowest return treated as ground.
	ThresholdM float64

	// Statistics (optional, for tuning and validation)
	pointsProcessed int64
	pointsGround    int64
	lastMinZ        float64
}

// NewHeightThresholdClassifier constructs a classifier with the given band.
func NewHeightThresholdClassifier(thresholdM float64) *HeightThresholdClassifier {
	return &HeightThresholdClassifier{ThresholdM: thresholdM, lastMinZ: math.NaN()}
}

// DefaultHeightThresholdClassifier returns a classifier with the 0.5 m band.
func DefaultHeightThresholdClassifier() *HeightThresholdClassifier {
	return NewHeightThresholdClassifier(DefaultGroundThreshold)
}

// Classify implements Classifier. An empty store is a no-op.
func (c *HeightThresholdClassifier) Classify(store *l1points.PointStore) int {
	n := store.Len()
	if n == 0 {
		return 0
	}

	pts := store.Points()
	minZ := pts[0].Z()
	for i := 1; i < n; i++ {
		if z := pts[i].Z(); z < minZ {
			minZ = z
		}
	}

	limit := minZ + c.ThresholdM
	ground := 0
	for i := 0; i < n; i++ {
		isGround := pts[i].Z() <= limit
		store.SetGround(i, isGround)
		if isGround {
			ground++
		}
	}

	c.pointsProcessed += int64(n)
	c.pointsGround += int64(ground)
	c.lastMinZ = minZ

	diagf("ground points: %d of %d (minZ=%.3f, limit=%.3f)", ground, n, minZ, limit)
	return ground
}

// Stats returns accumulated counters and the minimum z of the last run.
// lastMinZ is NaN until Classify has seen a non-empty store.
func (c *HeightThresholdClassifier) Stats() (processed, ground int64, lastMinZ float64) {
	return c.pointsProcessed, c.pointsGround, c.lastMinZ
}

// ResetStats clears accumulated statistics counters.
func (c *HeightThresholdClassifier) ResetStats() {
	c.pointsProcessed = 0
	c.pointsGround = 0
	c.lastMinZ = math.NaN()
}
