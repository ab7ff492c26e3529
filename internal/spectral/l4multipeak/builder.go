package l4multipeak

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// openRef is a multi-peak track still accepting members.
type openRef struct {
	tracks    []spectral.Track
	starts    []float64
	ends      []float64
	meanStart float64
	meanEnd   float64
	unknown   bool
}

func newOpenRef(t spectral.Track) *openRef {
	r := &openRef{}
	r.add(t)
	return r
}

func (r *openRef) add(t spectral.Track) {
	r.tracks = append(r.tracks, t)
	r.starts = append(r.starts, t.StartTime)
	r.ends = append(r.ends, t.EndTime)
	r.meanStart = stat.Mean(r.starts, nil)
	r.meanEnd = stat.Mean(r.ends, nil)
}

func (r *openRef) close() spectral.MultiPeakTrack {
	tracks := append([]spectral.Track(nil), r.tracks...)
	spectral.SortTracksByStart(tracks)
	m := spectral.MultiPeakTrack{
		ComponentID:     tracks[0].ComponentID,
		AcquisitionID:   tracks[0].AcquisitionID,
		EventSequenceID: -1,
		MeanStartTime:   r.meanStart,
		MeanEndTime:     r.meanEnd,
		UnknownTopology: r.unknown,
		Tracks:          tracks,
	}
	if len(r.starts) > 1 {
		m.StartTimeSigma = stat.StdDev(r.starts, nil)
		m.EndTimeSigma = stat.StdDev(r.ends, nil)
	}
	return m
}

// Builder groups the tracks of one component and acquisition into
// multi-peak tracks. It is not safe for concurrent use; the controller
// owns one builder per component.
type Builder struct {
	tolerance float64

	open      []*openRef
	completed []spectral.MultiPeakTrack

	latestStart float64
	started     bool
	cut         int
	discarded   int
}

// NewBuilder returns a builder with the given sideband tolerance in
// seconds.
func NewBuilder(sidebandTolerance float64) (*Builder, error) {
	if sidebandTolerance < 0 || math.IsNaN(sidebandTolerance) || math.IsInf(sidebandTolerance, 0) {
		return nil, fmt.Errorf("sideband tolerance must be finite and non-negative, got %v: %w",
			sidebandTolerance, spectral.ErrInvalidConfig)
	}
	return &Builder{tolerance: sidebandTolerance}, nil
}

// Tolerance returns the sideband tolerance.
func (b *Builder) Tolerance() float64 { return b.tolerance }

// Add feeds one track to the sweep. Cut tracks are skipped. Tracks must
// arrive in non-decreasing start order: a track starting before the
// latest accepted start is rejected with spectral.ErrOutOfOrder and
// counted as discarded. Use Build for unsorted input.
func (b *Builder) Add(t spectral.Track) error {
	if t.IsCut {
		b.cut++
		tracef("component %d acquisition %d: skipping cut track %d", t.ComponentID, t.AcquisitionID, t.TrackID)
		return nil
	}
	if b.started && t.StartTime < b.latestStart {
		b.discarded++
		opsf("component %d acquisition %d: track %d starts at %.6f, before %.6f: discarded",
			t.ComponentID, t.AcquisitionID, t.TrackID, t.StartTime, b.latestStart)
		return fmt.Errorf("track %d starts at %v after a track starting at %v: %w",
			t.TrackID, t.StartTime, b.latestStart, spectral.ErrOutOfOrder)
	}

	matched := false
	kept := b.open[:0]
	for _, r := range b.open {
		if t.StartTime-r.meanStart > b.tolerance {
			// No later track can reach r again.
			b.completed = append(b.completed, r.close())
			continue
		}
		kept = append(kept, r)
		if matched {
			continue
		}
		startMatch := math.Abs(t.StartTime-r.meanStart) <= b.tolerance
		endMatch := math.Abs(t.EndTime-r.meanEnd) <= b.tolerance
		if startMatch || endMatch {
			r.add(t)
			if startMatch != endMatch {
				r.unknown = true
			}
			matched = true
		}
	}
	for i := len(kept); i < len(b.open); i++ {
		b.open[i] = nil
	}
	b.open = kept

	if !matched {
		b.open = append(b.open, newOpenRef(t))
	}
	b.latestStart = t.StartTime
	b.started = true
	return nil
}

// Flush closes every open group and returns all multi-peak tracks built
// since the previous flush, in closing order. The builder is then ready
// for the next acquisition.
func (b *Builder) Flush() []spectral.MultiPeakTrack {
	for _, r := range b.open {
		b.completed = append(b.completed, r.close())
	}
	out := b.completed
	diagf("flushed %d multi-peak tracks (%d cut tracks skipped, %d discarded)", len(out), b.cut, b.discarded)

	b.open = nil
	b.completed = nil
	b.started = false
	b.latestStart = 0
	b.cut = 0
	b.discarded = 0
	return out
}

// Stats reports the cut and discarded track counts since the last flush.
func (b *Builder) Stats() (cut, discarded int) {
	return b.cut, b.discarded
}

// Build sorts tracks by start time and groups them in one pass. The
// input slice is not modified. The result is ordered by mean start time.
func Build(tracks []spectral.Track, sidebandTolerance float64) ([]spectral.MultiPeakTrack, error) {
	b, err := NewBuilder(sidebandTolerance)
	if err != nil {
		return nil, err
	}
	sorted := append([]spectral.Track(nil), tracks...)
	spectral.SortTracksByStart(sorted)
	for _, t := range sorted {
		if err := b.Add(t); err != nil {
			return nil, err
		}
	}
	out := b.Flush()
	spectral.SortMultiPeakTracksByStart(out)
	return out, nil
}
