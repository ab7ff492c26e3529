package spectral

import "fmt"

// Arena owns every point accumulated for one component during one
// acquisition. Tracks refer to their points by arena index so per-point
// detail stays available to downstream consumers without a separate
// allocation per point. An Arena must outlive the clustering pass and is
// only reset after the acquisition has been flushed to all sinks.
type Arena struct {
	ComponentID   int
	AcquisitionID uint64

	TimeBinWidth    float64
	FreqBinWidth    float64
	FrequencyOffset float64

	points []Point
}

// NewArena returns an empty arena for the given component and acquisition.
func NewArena(componentID int, acquisitionID uint64) *Arena {
	return &Arena{ComponentID: componentID, AcquisitionID: acquisitionID}
}

// Append adds points and returns the arena index of the first one.
func (a *Arena) Append(points []Point) int {
	offset := len(a.points)
	a.points = append(a.points, points...)
	return offset
}

// Len returns the number of points held.
func (a *Arena) Len() int { return len(a.points) }

// Points returns the backing slice. Callers must not modify it.
func (a *Arena) Points() []Point { return a.points }

// At returns the point at arena index i.
func (a *Arena) At(i int) (Point, error) {
	if i < 0 || i >= len(a.points) {
		return Point{}, fmt.Errorf("arena index %d of %d: %w", i, len(a.points), ErrOutOfRange)
	}
	return a.points[i], nil
}

// Resolve returns the points a track refers to, in reference order.
func (a *Arena) Resolve(refs []int) ([]Point, error) {
	out := make([]Point, len(refs))
	for i, r := range refs {
		p, err := a.At(r)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// TimeOf converts a time bin to seconds.
func (a *Arena) TimeOf(bin int) float64 { return float64(bin) * a.TimeBinWidth }

// FrequencyOf converts a frequency bin to hertz.
func (a *Arena) FrequencyOf(bin int) float64 {
	return a.FrequencyOffset + float64(bin)*a.FreqBinWidth
}

// Reset drops all points and rebinds the arena to a new acquisition.
func (a *Arena) Reset(acquisitionID uint64) {
	a.points = nil
	a.AcquisitionID = acquisitionID
}
