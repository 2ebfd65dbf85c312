// Package l2ground owns Layer 2 (Ground) of the segmentation data model.
//
// Responsibilities: flagging ground returns so that later layers can
// ignore them. The classifier is a single height threshold above the
// lowest return; it does not model slope or terrain curvature.
//
// Dependency rule: L2 may depend on L1 only.
package l2ground
