package spectral

import "errors"

var (
	// ErrOutOfRange is returned when a point id outside [0, n) is queried.
	ErrOutOfRange = errors.New("point id out of range")
	// ErrOutOfOrder is returned by the sweep builders when input is not
	// presented in non-decreasing time order.
	ErrOutOfOrder = errors.New("input not in time order")
	// ErrEmptyCluster marks a cluster with no points.
	ErrEmptyCluster = errors.New("empty cluster")
	// ErrDimensionMismatch is returned when points, radii, or a metric
	// disagree on dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidConfig wraps configuration errors detected at setup.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidRecord marks an upstream record missing a required field
	// or violating its own invariants.
	ErrInvalidRecord = errors.New("invalid record")
)
