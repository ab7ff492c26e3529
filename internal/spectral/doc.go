// Package spectral holds the value types shared by every layer of the
// spectral reconstruction stack.
//
// Layers (leaves first):
//
//	l1index     neighbour queries over n-dimensional points
//	l2cluster   density clustering over any l1index.Index
//	l3tracks    points -> Track
//	l4multipeak Track -> MultiPeakTrack
//	l5events    MultiPeakTrack -> Event
//	pipeline    acquisition boundaries, flush, sink fan-out
//
// Dependency rule: a layer may import spectral and lower layers, never a
// higher one. Only pipeline imports every layer. No SQL lives in the
// layer packages; persistence belongs to storage/sqlite.
package spectral
