// Package forest groups the single-tree segmentation layers.
//
// The layers run strictly in order and each depends only on the layers
// below it:
//
//	l1points   point arena, XYZ reader
//	l2ground   height-threshold ground classification
//	l3raster   canopy height raster over non-ground points
//	l4treetops local-maximum tree-top detection
//	l5crowns   four-stage region growing
//
// pipeline is the composition root. export, report and storage/sqlite
// consume pipeline results and are never imported by the layers.
package forest
