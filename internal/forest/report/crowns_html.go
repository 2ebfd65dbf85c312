package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
	"github.com/banshee-data/treeseg/internal/forest/l4treetops"
)

// maxScatterPoints bounds the payload of the crown scatter; larger clouds
// are strided.
const maxScatterPoints = 20000

// NewCrownScatter builds a plan-view scatter with one series per tree, one
// for unassigned points and one for the tree tops. Point values are
// [x, y, z].
func NewCrownScatter(store *l1points.PointStore, tops []l4treetops.TreeTop) *charts.Scatter {
	nonGround := store.NonGround()
	stride := 1
	if len(nonGround) > maxScatterPoints {
		stride = len(nonGround)/maxScatterPoints + 1
	}

	perTree := make([][]opts.ScatterData, len(tops))
	var unassigned []opts.ScatterData
	for k := 0; k < len(nonGround); k += stride {
		p := store.At(nonGround[k])
		d := opts.ScatterData{Value: []interface{}{p.X(), p.Y(), p.Z()}}
		if p.TreeID >= 0 && p.TreeID < len(tops) {
			perTree[p.TreeID] = append(perTree[p.TreeID], d)
		} else {
			unassigned = append(unassigned, d)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tree crowns", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Segmented crowns", Subtitle: fmt.Sprintf("trees=%d points=%d stride=%d", len(tops), len(nonGround), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25, Scale: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30, Scale: opts.Bool(true)}),
	)

	for k, pts := range perTree {
		scatter.AddSeries(fmt.Sprintf("tree %d", k), pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}
	if len(unassigned) > 0 {
		scatter.AddSeries("unassigned", unassigned, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}

	topData := make([]opts.ScatterData, 0, len(tops))
	for _, t := range tops {
		topData = append(topData, opts.ScatterData{
			Value:  []interface{}{t.Position.X, t.Position.Y, t.Position.Z},
			Symbol: "triangle",
		})
	}
	scatter.AddSeries("tree tops", topData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	return scatter
}

// NewCrownSizeBar builds a bar chart of points per tree.
func NewCrownSizeBar(summaries []CrownSummary) *charts.Bar {
	names := make([]string, 0, len(summaries))
	data := make([]opts.BarData, 0, len(summaries))
	for _, s := range summaries {
		names = append(names, fmt.Sprintf("%d", s.TreeID))
		data = append(data, opts.BarData{Value: s.Points})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Points per tree"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).AddSeries("points", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

// RenderCrownsHTML writes a self-contained page with the crown scatter and
// the points-per-tree bar chart.
func RenderCrownsHTML(w io.Writer, store *l1points.PointStore, tops []l4treetops.TreeTop) error {
	page := components.NewPage()
	page.PageTitle = "Single-tree segmentation"
	page.AddCharts(
		NewCrownScatter(store, tops),
		NewCrownSizeBar(Summarize(store, tops)),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render crowns page: %w", err)
	}
	return nil
}
