package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/spectrack/internal/monitoring"
	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l3tracks"
)

// FlushError reports a component whose acquisition could not be flushed.
// Discarded counts the records that were not emitted because of it.
type FlushError struct {
	ComponentID   int
	AcquisitionID uint64
	Discarded     int
	Err           error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush component %d acquisition %d (%d records discarded): %v",
		e.ComponentID, e.AcquisitionID, e.Discarded, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// componentState is the single open acquisition of one component.
type componentState struct {
	arena     *spectral.Arena
	tracks    []spectral.Track // from a track source
	discarded int

	// Set on detach. A flush waits for after, the previous detached
	// acquisition of the component, and closes done.
	after <-chan struct{}
	done  chan struct{}
}

func (s *componentState) records() int {
	return s.arena.Len() + len(s.tracks) + s.discarded
}

// Controller detects acquisition boundaries and flushes each component
// through the assembly layers into a sink. Add* and flush methods are
// safe for concurrent use.
type Controller struct {
	cfg       Config
	assembler *l3tracks.Assembler
	sink      spectral.Sink
	stats     monitoring.FlushStats

	mu         sync.Mutex
	components map[int]*componentState
	lastFlush  map[int]<-chan struct{} // done of the latest detached state
}

// NewController validates cfg and returns a controller emitting to sink.
func NewController(cfg Config, sink spectral.Sink) (*Controller, error) {
	if sink == nil {
		return nil, fmt.Errorf("nil sink: %w", spectral.ErrInvalidConfig)
	}
	if cfg.Strategy == nil {
		return nil, fmt.Errorf("no event strategy: %w", spectral.ErrInvalidConfig)
	}
	if err := cfg.Strategy.Validate(); err != nil {
		return nil, fmt.Errorf("%s events: %w", cfg.Strategy.Name(), err)
	}
	assembler, err := l3tracks.NewAssembler(cfg.Tracks)
	if err != nil {
		return nil, err
	}
	if cfg.FlushWorkers < 1 {
		cfg.FlushWorkers = 1
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	diagf("run %s: backend=%s radii=%v min-points=%d events=%s workers=%d",
		cfg.RunID, assembler.Config().Backend, cfg.Tracks.Radii, cfg.Tracks.MinPoints, cfg.Strategy.Name(), cfg.FlushWorkers)
	return &Controller{
		cfg:        cfg,
		assembler:  assembler,
		sink:       sink,
		components: make(map[int]*componentState),
		lastFlush:  make(map[int]<-chan struct{}),
	}, nil
}

// RunID returns the identifier of this controller's run.
func (c *Controller) RunID() string { return c.cfg.RunID }

// Stats returns the running flush counters.
func (c *Controller) Stats() monitoring.FlushSnapshot { return c.stats.Snapshot() }

// detachLocked queues st behind the component's previously detached
// state so acquisitions of one component reach the sink in order.
// c.mu must be held.
func (c *Controller) detachLocked(st *componentState) {
	id := st.arena.ComponentID
	st.after = c.lastFlush[id]
	st.done = make(chan struct{})
	c.lastFlush[id] = st.done
}

// openLocked returns the state for (componentID, acquisitionID). If the
// component holds a different acquisition, that state is detached and
// returned as previous so the caller can flush it outside the lock.
// c.mu must be held.
func (c *Controller) openLocked(componentID int, acquisitionID uint64) (cur, previous *componentState) {
	st, ok := c.components[componentID]
	if ok && st.arena.AcquisitionID == acquisitionID {
		return st, nil
	}
	if ok {
		diagf("component %d: acquisition %d -> %d", componentID, st.arena.AcquisitionID, acquisitionID)
		c.detachLocked(st)
		previous = st
	}
	cur = &componentState{arena: spectral.NewArena(componentID, acquisitionID)}
	c.components[componentID] = cur
	return cur, previous
}

// AddBatch appends a discriminated batch to its component's open
// acquisition. A batch for a new acquisition id first flushes the
// previous one; its flush error, if any, is returned after the new batch
// has been accepted. Invalid batches and non-finite points are data
// errors: they are counted as discarded and logged.
func (c *Controller) AddBatch(ctx context.Context, batch spectral.DiscriminatedBatch) error {
	c.mu.Lock()
	st, previous := c.openLocked(batch.ComponentID, batch.AcquisitionID)
	err := c.appendBatch(st, batch)
	c.mu.Unlock()

	var flushErr error
	if previous != nil {
		flushErr = c.flush(ctx, previous)
	}
	return errors.Join(flushErr, err)
}

func (c *Controller) appendBatch(st *componentState, batch spectral.DiscriminatedBatch) error {
	if err := batch.Validate(); err != nil {
		st.discarded += len(batch.Points)
		opsf("discarding batch of %d points: %v", len(batch.Points), err)
		return err
	}

	a := st.arena
	if a.Len() == 0 && a.TimeBinWidth == 0 {
		a.TimeBinWidth = batch.TimeBinWidth
		a.FreqBinWidth = batch.FreqBinWidth
		a.FrequencyOffset = batch.FrequencyOffset
	} else if a.TimeBinWidth != batch.TimeBinWidth || a.FreqBinWidth != batch.FreqBinWidth || a.FrequencyOffset != batch.FrequencyOffset {
		st.discarded += len(batch.Points)
		opsf("component %d acquisition %d: batch binning changed mid-acquisition, discarding %d points",
			batch.ComponentID, batch.AcquisitionID, len(batch.Points))
		return fmt.Errorf("component %d acquisition %d: bin widths changed mid-acquisition: %w",
			batch.ComponentID, batch.AcquisitionID, spectral.ErrInvalidRecord)
	}

	points, dropped := batch.Normalize()
	if dropped > 0 {
		st.discarded += dropped
		opsf("component %d acquisition %d: dropped %d non-finite points", batch.ComponentID, batch.AcquisitionID, dropped)
	}
	a.Append(points)
	tracef("component %d acquisition %d: +%d %s points (%d held)",
		batch.ComponentID, batch.AcquisitionID, len(points), batch.Kind, a.Len())
	return nil
}

// AddTrack accepts a track from an upstream track source. Tracks whose
// end precedes their start are data errors and are discarded.
func (c *Controller) AddTrack(ctx context.Context, t spectral.Track) error {
	var err error
	c.mu.Lock()
	st, previous := c.openLocked(t.ComponentID, t.AcquisitionID)
	if t.EndTime < t.StartTime {
		st.discarded++
		opsf("component %d acquisition %d: track %d ends before it starts, discarded",
			t.ComponentID, t.AcquisitionID, t.TrackID)
		err = fmt.Errorf("track %d ends at %v before its start %v: %w",
			t.TrackID, t.EndTime, t.StartTime, spectral.ErrInvalidRecord)
	} else {
		st.tracks = append(st.tracks, t)
	}
	c.mu.Unlock()

	var flushErr error
	if previous != nil {
		flushErr = c.flush(ctx, previous)
	}
	return errors.Join(flushErr, err)
}

// EndAcquisition flushes the open acquisition of one component. It is a
// no-op for a component with nothing open.
func (c *Controller) EndAcquisition(ctx context.Context, componentID int) error {
	c.mu.Lock()
	st, ok := c.components[componentID]
	if ok {
		delete(c.components, componentID)
		c.detachLocked(st)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return c.flush(ctx, st)
}

// FlushAll flushes every open component, at most FlushWorkers at a
// time, and returns the joined FlushErrors of the components that failed.
func (c *Controller) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	states := make([]*componentState, 0, len(c.components))
	for _, st := range c.components {
		c.detachLocked(st)
		states = append(states, st)
	}
	c.components = make(map[int]*componentState)
	c.mu.Unlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].arena.ComponentID < states[j].arena.ComponentID
	})

	errs := make([]error, len(states))
	var g errgroup.Group
	g.SetLimit(c.cfg.FlushWorkers)
	for i, st := range states {
		i, st := i, st
		g.Go(func() error {
			// Errors are collected per component so one failure does not
			// cancel the others.
			errs[i] = c.flush(ctx, st)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// flush runs one detached component state through the layers and emits
// the results. Nothing is emitted unless every layer succeeded. It first
// waits for the component's previously detached acquisition.
func (c *Controller) flush(ctx context.Context, st *componentState) error {
	defer close(st.done)
	a := st.arena
	fail := func(discarded int, err error) error {
		c.stats.RecordFailure()
		fe := &FlushError{ComponentID: a.ComponentID, AcquisitionID: a.AcquisitionID, Discarded: discarded, Err: err}
		opsf("run %s: %v", c.cfg.RunID, fe)
		return fe
	}

	if st.after != nil {
		select {
		case <-st.after:
		case <-ctx.Done():
			return fail(st.records(), ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(st.records(), err)
	}

	summary := spectral.AcquisitionSummary{
		ComponentID:   a.ComponentID,
		AcquisitionID: a.AcquisitionID,
		Points:        a.Len(),
		Discarded:     st.discarded,
	}

	tracks := append([]spectral.Track(nil), st.tracks...)
	if a.Len() > 0 {
		res, err := c.assembler.Assemble(a)
		if err != nil {
			return fail(st.records(), fmt.Errorf("assemble tracks: %w", err))
		}
		// Assembled tracks are numbered after any source tracks.
		nextID := 0
		for _, t := range st.tracks {
			if t.TrackID >= nextID {
				nextID = t.TrackID + 1
			}
		}
		for _, t := range res.Tracks {
			t.TrackID += nextID
			tracks = append(tracks, t)
		}
		summary.Discarded += res.Skipped
	}
	for _, t := range tracks {
		if t.IsCut {
			summary.CutTracks++
		}
	}
	summary.Tracks = len(tracks)

	events, loose, err := c.cfg.Strategy.Build(tracks)
	if err != nil {
		return fail(st.records(), fmt.Errorf("%s events: %w", c.cfg.Strategy.Name(), err))
	}
	mpts := append([]spectral.MultiPeakTrack(nil), loose...)
	for _, e := range events {
		mpts = append(mpts, e.MultiPeakTracks...)
	}
	spectral.SortMultiPeakTracksByStart(mpts)
	summary.MultiPeakTracks = len(mpts)
	summary.Events = len(events)

	if err := ctx.Err(); err != nil {
		return fail(st.records(), err)
	}

	var sinkErrs []error
	for _, t := range tracks {
		sinkErrs = append(sinkErrs, c.sink.Track(t))
	}
	for _, m := range mpts {
		sinkErrs = append(sinkErrs, c.sink.MultiPeakTrack(m))
	}
	for _, e := range events {
		sinkErrs = append(sinkErrs, c.sink.Event(e))
	}
	sinkErrs = append(sinkErrs, c.sink.EndAcquisition(summary))

	c.stats.RecordAcquisition(summary.Tracks, summary.MultiPeakTracks, summary.Events, summary.Discarded)
	diagf("run %s: component %d acquisition %d: %d points, %d tracks (%d cut), %d multi-peak, %d events, %d discarded",
		c.cfg.RunID, a.ComponentID, a.AcquisitionID, summary.Points, summary.Tracks, summary.CutTracks,
		summary.MultiPeakTracks, summary.Events, summary.Discarded)

	if err := errors.Join(sinkErrs...); err != nil {
		return fail(0, fmt.Errorf("sink: %w", err))
	}
	return nil
}
