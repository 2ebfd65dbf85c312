// Package l1points owns Layer 1 (Points) of the segmentation data model.
//
// Responsibilities: the fixed-size point arena shared by every later
// layer, and parsing of whitespace-separated "x y z" point files.
// Key types: Point, PointStore.
//
// Dependency rule: L1 depends on nothing else in internal/forest.
package l1points
