// Package l1index owns Layer 1 (Distance Index) of the spectral stack.
//
// Responsibilities: answering "which points lie within radius r of point
// i" over n-dimensional points. Three interchangeable backends share the
// Index contract and must return identical neighbour sets for the same
// input: a dense symmetric matrix, a sparse adjacency graph restricted to
// a bounded index gap, and a k-d tree.
//
// Dependency rule: l1index depends only on spectral. No SQL.
package l1index
