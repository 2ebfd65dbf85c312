// Package l5crowns owns Layer 5 (Crowns) of the segmentation data model.
//
// Responsibilities: assigning every non-ground point to a tree crown by
// region growing from the tree tops found in L4. Key types: Params,
// Frontier, Segmenter, Result.
//
// Segmentation runs four stages in order and never skips one:
//
//  1. nearest tree top within the crown radius
//  2. bounded multi-round flood fill, one ring per round
//  3. nearest already-assigned point within 1.5 crown radii
//  4. nearest tree top within 3 crown radii
//
// Trees are processed in ascending identifier order inside a Stage 2
// round and assignments are read live, so a point reachable from two trees
// in the same round goes to the lower identifier. That ordering is part of
// the contract.
//
// Dependency rule: L5 may depend on L1-L4.
package l5crowns
