// Package pipeline composes the segmentation layers into a single run:
// ground classification, height raster and tree-top detection, then
// four-stage region growing.
//
// A run is single-threaded and synchronous. All state is owned by the
// caller's PointStore and the returned Result; nothing is shared between
// runs.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/treeseg/internal/config"
	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l2ground"
	"github.com/banshee-data/treeseg/internal/forest/l3raster"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
	"github.com/banshee-data/treeseg/internal/forest/l5crowns"
	"github.com/banshee-data/treeseg/internal/forest/report"
	"github.com/banshee-data/treeseg/internal/forest/spatial"
)

// ErrNilStore is returned when Run is called without a point store.
var ErrNilStore = errors.New("pipeline: nil point store")

// Config holds the parameters of every stage.
type Config struct {
	GroundThreshold float64
	Detection       l4treetops.Params
	Growth          l5crowns.Params
	UseSpatialIndex bool
}

// DefaultConfig returns the production parameters.
func DefaultConfig() Config {
	return Config{
		GroundThreshold: l2ground.DefaultGroundThreshold,
		Detection:       l4treetops.DefaultParams(),
		Growth:          l5crowns.DefaultParams(),
		UseSpatialIndex: true,
	}
}

// ConfigFromSettings maps a loaded SegmentationConfig onto stage
// parameters. Unset fields take their defaults.
func ConfigFromSettings(c *config.SegmentationConfig) Config {
	if c == nil {
		c = config.EmptySegmentationConfig()
	}
	return Config{
		GroundThreshold: c.GetGroundThreshold(),
		Detection: l4treetops.Params{
			CellSize:      c.GetCellSize(),
			MinTreeHeight: c.GetMinTreeHeight(),
			WindowSize:    c.GetWindowSize(),
		},
		Growth: l5crowns.Params{
			MaxCrownRadius: c.GetMaxCrownRadius(),
			GrowthDistance: c.GetGrowthDistance(),
			GrowthAngleDeg: c.GetGrowthAngleDeg(),
			MaxIterations:  c.GetMaxIterations(),
		},
		UseSpatialIndex: c.GetUseSpatialIndex(),
	}
}

// StageTimings records wall time per stage.
type StageTimings struct {
	Ground       time.Duration
	Detection    time.Duration
	Segmentation time.Duration
	Total        time.Duration
}

// Result describes one completed run. The per-point labels live in the
// PointStore passed to Run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Config    Config

	TotalPoints  int
	GroundPoints int

	Raster   *l3raster.HeightRaster
	TreeTops []l4treetops.TreeTop

	// Segmentation is nil when SegmentationSkipped is set.
	Segmentation        *l5crowns.Result
	SegmentationSkipped bool

	Crowns     []report.CrownSummary
	Unassigned int
	Timings    StageTimings
}

// RasterDims returns the rows and columns of the height raster.
func (r *Result) RasterDims() (rows, cols int) {
	if r.Raster == nil {
		return 0, 0
	}
	return r.Raster.Rows, r.Raster.Cols
}

// Run executes the full pipeline on store, mutating its ground flags,
// tree-top flags and tree ids. Earlier labels are cleared first, so the
// same store can be run again with different parameters.
//
// Zero tree tops is not an error: segmentation is skipped, every point
// stays unassigned and the result reports SegmentationSkipped.
func Run(store *l1points.PointStore, cfg Config) (*Result, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	start := time.Now()
	res := &Result{
		RunID:       uuid.NewString(),
		StartedAt:   start,
		Config:      cfg,
		TotalPoints: store.Len(),
	}
	opsf("run %s: %d points", res.RunID, res.TotalPoints)

	store.ResetAssignments()
	builder := spatial.BuilderFor(cfg.UseSpatialIndex)

	t := time.Now()
	res.GroundPoints = l2ground.NewHeightThresholdClassifier(cfg.GroundThreshold).Classify(store)
	res.Timings.Ground = time.Since(t)

	t = time.Now()
	res.TreeTops, res.Raster = l4treetops.NewDetector(cfg.Detection, builder).Detect(store)
	res.Timings.Detection = time.Since(t)
	diagf("run %s: %d ground points, raster %d x %d, %d tree tops",
		res.RunID, res.GroundPoints, res.Raster.Rows, res.Raster.Cols, len(res.TreeTops))

	t = time.Now()
	seg, err := l5crowns.NewSegmenter(cfg.Growth, builder).Segment(store, res.TreeTops)
	res.Timings.Segmentation = time.Since(t)
	switch {
	case errors.Is(err, l5crowns.ErrNoTreeTops):
		opsf("run %s: no tree tops detected, segmentation skipped", res.RunID)
		res.SegmentationSkipped = true
		_, res.Unassigned = l5crowns.Tally(store, 0)
	case err != nil:
		return nil, fmt.Errorf("run %s: %w", res.RunID, err)
	default:
		res.Segmentation = seg
		res.Unassigned = seg.Unassigned
	}

	res.Crowns = report.Summarize(store, res.TreeTops)
	report.LogSummary(res.Crowns, res.Unassigned)
	res.Timings.Total = time.Since(start)
	opsf("run %s: %d trees, %d unassigned, %.3fs",
		res.RunID, len(res.TreeTops), res.Unassigned, res.Timings.Total.Seconds())
	return res, nil
}
