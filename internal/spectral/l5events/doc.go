// Package l5events owns Layer 5 (Events) of the spectral data model.
//
// Responsibilities: joining multi-peak tracks into events. Two strategies
// are offered behind Strategy:
//
//   - Sweep (primary): a tolerance sweep over time-ordered multi-peak
//     tracks. A multi-peak track joins an open event when its mean start
//     lies within the jump tolerance of one of the event's recorded end
//     times; an incoming track that reaches two open events merges them.
//   - Density: DBSCAN over 4-D track bounding boxes with the TrackGap
//     metric; each cluster becomes one event whose multi-peak tracks are
//     rebuilt by Layer 4 inside the cluster.
//
// Ordering: Builder.Add rejects a multi-peak track whose mean start
// precedes the latest accepted one with spectral.ErrOutOfOrder, because a
// closed event must stay closed. BuildEvents sorts a whole batch first.
//
// Dependency rule: L5 may depend on L1-L4, but never on the pipeline.
package l5events
