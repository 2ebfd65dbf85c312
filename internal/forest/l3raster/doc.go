// Package l3raster owns Layer 3 (Raster) of the segmentation data model.
//
// Responsibilities: binning non-ground points into a regular grid over
// their bounding box and keeping the maximum height per cell (a canopy
// height model). Key types: Bounds, Cell, HeightRaster.
//
// The raster is derived deterministically from the current non-ground
// points and a cell size. It exists for the duration of tree-top
// detection and is never persisted.
//
// Dependency rule: L3 may depend on L1-L2.
package l3raster
