// Package l3tracks owns Layer 3 (Tracks) of the spectral data model.
//
// Responsibilities: rescaling an acquisition's points so that the
// per-axis tolerances form a unit sphere, driving the Layer 2 clustering
// engine, and turning each cluster into a Track with a power-weighted
// line fit.
// Key types: Assembler, Config, Result.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3tracks
