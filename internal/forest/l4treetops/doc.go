// Package l4treetops owns Layer 4 (Tree tops) of the segmentation data
// model.
//
// Responsibilities: scanning the canopy height raster for strict local
// maxima and mapping each accepted cell back to one representative point,
// the crown seed. Key types: TreeTop, Detector.
//
// The tree-top list is built once in row-major scan order and is never
// modified afterwards; a tree top's index in the list is the tree
// identifier used by every later layer.
//
// Dependency rule: L4 may depend on L1-L3.
package l4treetops
