// Package pipeline provides the batch/acquisition controller for the
// spectral assembly layers.
//
// The controller keeps at most one open acquisition per component. It
// detects acquisition boundaries (a record for a new acquisition id, or
// an explicit end-of-acquisition), then flushes the component through
// L3 (tracks), L4 (multi-peak tracks) and L5 (events) and hands the
// results to a spectral.Sink. Independent components are flushed
// concurrently; a failure in one component never stops the others from
// being emitted. The pipeline does not own domain logic, it delegates
// to the layer packages.
package pipeline
