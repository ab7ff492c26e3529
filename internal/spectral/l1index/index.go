package l1index

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// Index answers fixed-radius neighbour queries over a built point set.
//
// Neighbors returns every point id whose distance from id is <= radius,
// including id itself, in ascending id order. An id outside [0, Len())
// yields spectral.ErrOutOfRange.
type Index interface {
	Len() int
	Neighbors(id int, radius float64) ([]int, error)
}

// Metric measures the squared distance between two points. Backends
// compare squared distances against radius² so that every backend sees
// bit-identical values for the same pair.
type Metric interface {
	SquaredDistance(a, b []float64) float64
	// Dims returns the dimensionality the metric requires, or 0 for any.
	Dims() int
}

// Euclidean is the standard L2 metric in any number of dimensions.
type Euclidean struct{}

func (Euclidean) SquaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func (Euclidean) Dims() int { return 0 }

// Axes of a track bounding box as seen by TrackGap.
const (
	AxisStartTime = iota
	AxisStartFreq
	AxisEndTime
	AxisEndFreq
	trackGapDims
)

// TrackGap measures the gap between two track bounding boxes laid out as
// (startTime, startFreq, endTime, endFreq). The earlier-starting track is
// taken as the reference; the time gap is the later start minus the
// earlier end, clamped at zero, and the frequency gap is taken between
// the same two endpoints. Overlapping tracks are at distance zero.
type TrackGap struct{}

func (TrackGap) SquaredDistance(a, b []float64) float64 {
	earlier, later := a, b
	if b[AxisStartTime] < a[AxisStartTime] {
		earlier, later = b, a
	}
	dt := later[AxisStartTime] - earlier[AxisEndTime]
	if dt <= 0 {
		return 0
	}
	df := later[AxisStartFreq] - earlier[AxisEndFreq]
	return dt*dt + df*df
}

func (TrackGap) Dims() int { return trackGapDims }

// Backend names an Index implementation.
type Backend string

const (
	BackendDense  Backend = "dense"
	BackendSparse Backend = "sparse"
	BackendKDTree Backend = "kdtree"
)

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendDense, BackendSparse, BackendKDTree:
		return b, nil
	}
	return "", fmt.Errorf("unknown distance backend %q", s)
}

// Options configures Build.
type Options struct {
	Backend Backend
	Metric  Metric // nil means Euclidean
	// MaxIndexGap bounds the forward search of the sparse backend.
	// Zero or negative means unbounded.
	MaxIndexGap int
}

// Build constructs the requested backend over points. Fewer than one
// point yields an empty index.
func Build(points [][]float64, opts Options) (Index, error) {
	metric := opts.Metric
	if metric == nil {
		metric = Euclidean{}
	}
	switch opts.Backend {
	case BackendDense, "":
		return NewDense(points, metric)
	case BackendSparse:
		return NewSparse(points, metric, opts.MaxIndexGap)
	case BackendKDTree:
		if _, ok := metric.(Euclidean); !ok {
			return nil, fmt.Errorf("kdtree backend supports only the Euclidean metric: %w", spectral.ErrInvalidConfig)
		}
		return NewKDTree(points)
	}
	return nil, fmt.Errorf("unknown distance backend %q: %w", opts.Backend, spectral.ErrInvalidConfig)
}

// checkPoints verifies that every point has the same, metric-compatible,
// finite dimensionality and returns it.
func checkPoints(points [][]float64, metric Metric) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	dims := len(points[0])
	if want := metric.Dims(); want != 0 && dims != want {
		return 0, fmt.Errorf("metric needs %d dims, points have %d: %w", want, dims, spectral.ErrDimensionMismatch)
	}
	for i, p := range points {
		if len(p) != dims {
			return 0, fmt.Errorf("point %d has %d dims, expected %d: %w", i, len(p), dims, spectral.ErrDimensionMismatch)
		}
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("point %d has non-finite coordinate %v", i, v)
			}
		}
	}
	return dims, nil
}

func checkID(id, n int) error {
	if id < 0 || id >= n {
		return fmt.Errorf("neighbour query for id %d of %d: %w", id, n, spectral.ErrOutOfRange)
	}
	return nil
}

func sortedIDs(ids []int) []int {
	sort.Ints(ids)
	return ids
}
