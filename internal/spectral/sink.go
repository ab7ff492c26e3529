package spectral

import (
	"errors"
	"sync"
)

// Sink is the downstream consumer contract. Records are delivered in
// emission order for one component, and one component's acquisitions
// are delivered in the order they were closed; EndAcquisition follows
// the last record of that component's acquisition. Emitted records are immutable.
// Different components may be flushed concurrently, so implementations
// must be safe for concurrent use.
type Sink interface {
	Track(t Track) error
	MultiPeakTrack(m MultiPeakTrack) error
	Event(e Event) error
	EndAcquisition(s AcquisitionSummary) error
}

// MultiSink fans every record out to all of its sinks. Every sink is
// called even if an earlier one fails; the errors are joined.
type MultiSink []Sink

func (ms MultiSink) Track(t Track) error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.Track(t))
	}
	return errors.Join(errs...)
}

func (ms MultiSink) MultiPeakTrack(m MultiPeakTrack) error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.MultiPeakTrack(m))
	}
	return errors.Join(errs...)
}

func (ms MultiSink) Event(e Event) error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.Event(e))
	}
	return errors.Join(errs...)
}

func (ms MultiSink) EndAcquisition(sum AcquisitionSummary) error {
	var errs []error
	for _, s := range ms {
		errs = append(errs, s.EndAcquisition(sum))
	}
	return errors.Join(errs...)
}

// Collector is an in-memory Sink. It is safe for concurrent use.
type Collector struct {
	mu              sync.Mutex
	Tracks          []Track
	MultiPeakTracks []MultiPeakTrack
	Events          []Event
	Summaries       []AcquisitionSummary
}

func (c *Collector) Track(t Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Tracks = append(c.Tracks, t)
	return nil
}

func (c *Collector) MultiPeakTrack(m MultiPeakTrack) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MultiPeakTracks = append(c.MultiPeakTracks, m)
	return nil
}

func (c *Collector) Event(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, e)
	return nil
}

func (c *Collector) EndAcquisition(s AcquisitionSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Summaries = append(c.Summaries, s)
	return nil
}

// EventsFor returns the collected events of one component.
func (c *Collector) EventsFor(componentID int) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.Events {
		if e.ComponentID == componentID {
			out = append(out, e)
		}
	}
	return out
}
