package l5events

import (
	"fmt"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// openEvent is an event still accepting multi-peak tracks.
type openEvent struct {
	mpts     []spectral.MultiPeakTrack
	endTimes []float64 // sorted, unique
	unknown  bool
}

func (e *openEvent) latestEnd() float64 {
	return e.endTimes[len(e.endTimes)-1]
}

// reaches reports whether m starts within tolerance of some recorded
// end time. The comparison is strict.
func (e *openEvent) reaches(m spectral.MultiPeakTrack, tolerance float64) bool {
	for i := len(e.endTimes) - 1; i >= 0; i-- {
		if m.MeanStartTime-e.endTimes[i] < tolerance {
			return true
		}
	}
	return false
}

func (e *openEvent) add(m spectral.MultiPeakTrack) {
	e.mpts = append(e.mpts, m)
	e.endTimes = insertEndTime(e.endTimes, m.MeanEndTime)
}

func (e *openEvent) absorb(other *openEvent) {
	e.mpts = append(e.mpts, other.mpts...)
	for _, t := range other.endTimes {
		e.endTimes = insertEndTime(e.endTimes, t)
	}
	e.unknown = true
}

// Builder joins the multi-peak tracks of one component and acquisition
// into events with a jump-tolerance sweep. It is not safe for concurrent
// use.
type Builder struct {
	tolerance float64

	open      []*openEvent
	completed []spectral.Event
	nextID    int

	latestStart float64
	started     bool
	discarded   int
}

// NewBuilder returns a sweep builder with the given jump tolerance in
// seconds.
func NewBuilder(jumpTolerance float64) (*Builder, error) {
	if !validTolerance(jumpTolerance) {
		return nil, fmt.Errorf("jump tolerance must be finite and non-negative, got %v: %w",
			jumpTolerance, spectral.ErrInvalidConfig)
	}
	return &Builder{tolerance: jumpTolerance}, nil
}

// Add feeds one multi-peak track to the sweep. Cut member tracks are
// dropped; a multi-peak track with no remaining members is ignored.
func (b *Builder) Add(m spectral.MultiPeakTrack) error {
	m, ok := withoutCutTracks(m)
	if !ok {
		return nil
	}
	if b.started && m.MeanStartTime < b.latestStart {
		b.discarded++
		opsf("component %d acquisition %d: multi-peak track at %.6f precedes %.6f: discarded",
			m.ComponentID, m.AcquisitionID, m.MeanStartTime, b.latestStart)
		return fmt.Errorf("multi-peak track starting at %v after one starting at %v: %w",
			m.MeanStartTime, b.latestStart, spectral.ErrOutOfOrder)
	}
	b.latestStart = m.MeanStartTime
	b.started = true

	var assigned *openEvent
	kept := b.open[:0]
	for _, e := range b.open {
		if m.MeanStartTime-b.tolerance > e.latestEnd() {
			// Nothing later can reach e.
			b.emit(e)
			continue
		}
		if !e.reaches(m, b.tolerance) {
			kept = append(kept, e)
			continue
		}
		if assigned == nil {
			e.add(m)
			assigned = e
			kept = append(kept, e)
			continue
		}
		tracef("component %d acquisition %d: merging open events through multi-peak track at %.6f",
			m.ComponentID, m.AcquisitionID, m.MeanStartTime)
		assigned.absorb(e)
	}
	for i := len(kept); i < len(b.open); i++ {
		b.open[i] = nil
	}
	b.open = kept

	if assigned == nil {
		e := &openEvent{}
		e.add(m)
		b.open = append(b.open, e)
	}
	return nil
}

func (b *Builder) emit(e *openEvent) {
	ev := newEvent(b.nextID, e.mpts, e.endTimes, e.unknown)
	b.nextID++
	b.completed = append(b.completed, ev)
}

// Flush closes every open event and returns all events completed since
// the previous flush, in emission order. Event ids restart at zero for
// the next acquisition.
func (b *Builder) Flush() []spectral.Event {
	for _, e := range b.open {
		b.emit(e)
	}
	out := b.completed
	diagf("flushed %d events (%d discarded)", len(out), b.discarded)

	b.open = nil
	b.completed = nil
	b.nextID = 0
	b.started = false
	b.latestStart = 0
	b.discarded = 0
	return out
}

// Discarded reports how many multi-peak tracks were rejected since the
// last flush.
func (b *Builder) Discarded() int { return b.discarded }

// BuildEvents sorts mpts by mean start and sweeps them in one pass. The
// input is not modified.
func BuildEvents(mpts []spectral.MultiPeakTrack, jumpTolerance float64) ([]spectral.Event, error) {
	b, err := NewBuilder(jumpTolerance)
	if err != nil {
		return nil, err
	}
	sorted := append([]spectral.MultiPeakTrack(nil), mpts...)
	spectral.SortMultiPeakTracksByStart(sorted)
	for _, m := range sorted {
		if err := b.Add(m); err != nil {
			return nil, err
		}
	}
	return b.Flush(), nil
}
