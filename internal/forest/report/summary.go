// Package report turns a finished segmentation into per-crown statistics,
// a canopy height image and an interactive crown scatter page.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
)

// CrownSummary describes the points assigned to one tree.
type CrownSummary struct {
	TreeID      int
	Points      int
	MeanHeight  float64
	P95Height   float64
	MaxHeight   float64
	CrownRadius float64 // Largest horizontal distance from the tree top
	CentroidX   float64
	CentroidY   float64
}

// Summarize returns one CrownSummary per tree top, in tree-id order. Trees
// that ended up with no points report zero statistics.
func Summarize(store *l1points.PointStore, tops []l4treetops.TreeTop) []CrownSummary {
	xs := make([][]float64, len(tops))
	ys := make([][]float64, len(tops))
	zs := make([][]float64, len(tops))
	for _, p := range store.Points() {
		if p.IsGround || p.TreeID < 0 || p.TreeID >= len(tops) {
			continue
		}
		xs[p.TreeID] = append(xs[p.TreeID], p.X())
		ys[p.TreeID] = append(ys[p.TreeID], p.Y())
		zs[p.TreeID] = append(zs[p.TreeID], p.Z())
	}

	out := make([]CrownSummary, len(tops))
	for k, top := range tops {
		s := CrownSummary{TreeID: top.Index, Points: len(zs[k])}
		if s.Points > 0 {
			sorted := append([]float64(nil), zs[k]...)
			sort.Float64s(sorted)
			s.MeanHeight = stat.Mean(sorted, nil)
			s.P95Height = stat.Quantile(0.95, stat.Empirical, sorted, nil)
			s.MaxHeight = floats.Max(sorted)
			s.CentroidX = stat.Mean(xs[k], nil)
			s.CentroidY = stat.Mean(ys[k], nil)
			for i := range xs[k] {
				d := l1points.Distance2D(xs[k][i], ys[k][i], top.Position.X, top.Position.Y)
				s.CrownRadius = math.Max(s.CrownRadius, d)
			}
		}
		out[k] = s
	}
	return out
}

// LogSummary writes the end-of-run report: one diag line per tree and the
// unassigned total on the ops stream.
func LogSummary(summaries []CrownSummary, unassigned int) {
	for _, s := range summaries {
		diagf("tree %d: %d points, max height %.2f m, crown radius %.2f m",
			s.TreeID, s.Points, s.MaxHeight, s.CrownRadius)
	}
	opsf("segmented %d trees, %d points unassigned", len(summaries), unassigned)
}

// WriteSummaryTable prints summaries as an aligned text table.
func WriteSummaryTable(w io.Writer, summaries []CrownSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "tree\tpoints\tmean z\tp95 z\tmax z\tradius\tcentroid x\tcentroid y\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			s.TreeID, s.Points, s.MeanHeight, s.P95Height, s.MaxHeight,
			s.CrownRadius, s.CentroidX, s.CentroidY)
	}
	return tw.Flush()
}
