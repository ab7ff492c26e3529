// Package l2cluster owns Layer 2 (Density Clustering) of the spectral
// stack: a DBSCAN engine that runs over any l1index.Index.
//
// Border points reachable from two clusters go to whichever cluster is
// discovered first while iterating point ids 0..n-1. The policy is
// order-dependent but reproducible, and callers rely on it.
//
// Dependency rule: l2cluster may depend on l1index, never on l3+.
package l2cluster
