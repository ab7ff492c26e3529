// Package l4multipeak owns Layer 4 (Multi-peak tracks) of the spectral
// data model.
//
// Responsibilities: grouping simultaneous tracks (sidebands) whose start
// or end times coincide within the sideband tolerance, using a sweep over
// time-ordered tracks with a short list of open groups.
// Key types: Builder.
//
// Ordering: tracks must arrive in non-decreasing start time. Builder.Add
// rejects a track that starts before the latest accepted start with
// spectral.ErrOutOfOrder; Build sorts a whole batch first.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4multipeak
