// Package spatial provides horizontal radius queries over a subset of the
// point arena.
//
// Every implementation returns candidates in ascending arena index order.
// Callers that pick a minimum with a strict "<" comparison therefore keep
// the tie-break of a plain scan over the arena: the first point in storage
// order wins an exact distance tie, whatever structure answered the query.
package spatial

import (
	"sort"

	"github.com/peterstace/simplefeatures/rtree"

	"github.com/banshee-data/treeseg/internal/forest/l1points"
)

// Neighborhood answers radius queries over a fixed set of arena points.
type Neighborhood interface {
	// Within2D returns the member indices whose horizontal distance to
	// (x, y) is <= radius, in ascending index order.
	Within2D(x, y, radius float64) []int
}

// Builder constructs a Neighborhood over members, which must be sorted.
type Builder func(store *l1points.PointStore, members []int) Neighborhood

// BuilderFor returns the R-tree builder when useIndex is set and the
// linear-scan builder otherwise.
func BuilderFor(useIndex bool) Builder {
	if useIndex {
		return func(store *l1points.PointStore, members []int) Neighborhood {
			return NewRTreeIndex(store, members)
		}
	}
	return func(store *l1points.PointStore, members []int) Neighborhood {
		return NewLinearScan(store, members)
	}
}

// LinearScan tests every member on each query. O(n) per query; kept as the
// reference behaviour and for very small plots.
type LinearScan struct {
	store   *l1points.PointStore
	members []int
}

// NewLinearScan returns a scan over members.
func NewLinearScan(store *l1points.PointStore, members []int) *LinearScan {
	return &LinearScan{store: store, members: members}
}

// Within2D implements Neighborhood.
func (ls *LinearScan) Within2D(x, y, radius float64) []int {
	var out []int
	for _, i := range ls.members {
		p := ls.store.At(i)
		if l1points.Distance2D(p.X(), p.Y(), x, y) <= radius {
			out = append(out, i)
		}
	}
	return out
}

// RTreeIndex answers queries from a bulk-loaded R-tree of point boxes.
type RTreeIndex struct {
	store *l1points.PointStore
	tree  *rtree.RTree
}

// NewRTreeIndex bulk loads members into an R-tree. Points are stored as
// degenerate boxes keyed by arena index.
func NewRTreeIndex(store *l1points.PointStore, members []int) *RTreeIndex {
	items := make([]rtree.BulkItem, len(members))
	for k, i := range members {
		p := store.At(i)
		items[k] = rtree.BulkItem{
			Box:      rtree.Box{MinX: p.X(), MinY: p.Y(), MaxX: p.X(), MaxY: p.Y()},
			RecordID: i,
		}
	}
	return &RTreeIndex{store: store, tree: rtree.BulkLoad(items)}
}

// Within2D implements Neighborhood. The search box is padded slightly so
// points exactly on the radius are never lost to box-edge rounding; the
// exact distance test is applied afterwards.
func (ix *RTreeIndex) Within2D(x, y, radius float64) []int {
	pad := radius*1e-9 + 1e-12
	box := rtree.Box{
		MinX: x - radius - pad,
		MinY: y - radius - pad,
		MaxX: x + radius + pad,
		MaxY: y + radius + pad,
	}

	var out []int
	_ = ix.tree.RangeSearch(box, func(recordID int) error {
		p := ix.store.At(recordID)
		if l1points.Distance2D(p.X(), p.Y(), x, y) <= radius {
			out = append(out, recordID)
		}
		return nil
	})
	sort.Ints(out)
	return out
}
