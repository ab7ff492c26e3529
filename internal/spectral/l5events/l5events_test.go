package l5events

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l1index"
)

// mpt returns a single-track multi-peak track whose track id is id.
func mpt(id int, start, end float64) spectral.MultiPeakTrack {
	return spectral.MultiPeakTrack{
		ComponentID:     3,
		AcquisitionID:   11,
		EventSequenceID: -1,
		MeanStartTime:   start,
		MeanEndTime:     end,
		Tracks: []spectral.Track{{
			ComponentID:    3,
			AcquisitionID:  11,
			TrackID:        id,
			StartTime:      start,
			EndTime:        end,
			StartFrequency: 100 + float64(id),
			EndFrequency:   200 + float64(id),
			TotalPower:     1,
		}},
	}
}

// eventMembers returns each event as a sorted set of track ids, events
// ordered by first id.
func eventMembers(events []spectral.Event) [][]int {
	var out [][]int
	for _, e := range events {
		var ids []int
		for _, t := range e.Tracks() {
			ids = append(ids, t.TrackID)
		}
		sort.Ints(ids)
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func permutations(in []spectral.MultiPeakTrack) [][]spectral.MultiPeakTrack {
	if len(in) <= 1 {
		return [][]spectral.MultiPeakTrack{append([]spectral.MultiPeakTrack(nil), in...)}
	}
	var out [][]spectral.MultiPeakTrack
	for i := range in {
		rest := make([]spectral.MultiPeakTrack, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]spectral.MultiPeakTrack{in[i]}, p...))
		}
	}
	return out
}

func newTestBuilder(t *testing.T, tolerance float64) *Builder {
	t.Helper()
	b, err := NewBuilder(tolerance)
	if err != nil {
		t.Fatalf("NewBuilder(%v): %v", tolerance, err)
	}
	return b
}

func addAll(t *testing.T, b *Builder, mpts ...spectral.MultiPeakTrack) {
	t.Helper()
	for _, m := range mpts {
		if err := b.Add(m); err != nil {
			t.Fatalf("Add(%v): %v", m.TrackKeys(), err)
		}
	}
}

func TestBuildEvents_JumpToleranceBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gap  float64
		want [][]int
	}{
		{"just inside", 0.999, [][]int{{1, 2}}},
		{"just outside", 1.001, [][]int{{1}, {2}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			events, err := BuildEvents([]spectral.MultiPeakTrack{mpt(1, 0, 5), mpt(2, 5+tt.gap, 8)}, 1.0)
			if err != nil {
				t.Fatalf("BuildEvents: %v", err)
			}
			if diff := cmp.Diff(tt.want, eventMembers(events)); diff != "" {
				t.Errorf("events (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildEvents_TransitiveMergeAnyArrivalOrder(t *testing.T) {
	t.Parallel()

	in := []spectral.MultiPeakTrack{mpt(1, 1, 5), mpt(2, 5.2, 9), mpt(3, 9.1, 12)}
	for i, order := range permutations(in) {
		events, err := BuildEvents(order, 0.5)
		if err != nil {
			t.Fatalf("permutation %d: BuildEvents: %v", i, err)
		}
		if diff := cmp.Diff([][]int{{1, 2, 3}}, eventMembers(events)); diff != "" {
			t.Fatalf("permutation %d (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff([]float64{5, 9, 12}, events[0].TrackEndTimes); diff != "" {
			t.Errorf("permutation %d TrackEndTimes (-want +got):\n%s", i, diff)
		}
		if events[0].UnknownTopology {
			t.Errorf("permutation %d: UnknownTopology set", i)
		}
	}
}

func TestBuilder_MergesTwoOpenEvents(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, 0.5)
	// Two events that no in-order sweep could have left open together.
	b.open = []*openEvent{
		{mpts: []spectral.MultiPeakTrack{mpt(1, 1, 5)}, endTimes: []float64{5}},
		{mpts: []spectral.MultiPeakTrack{mpt(2, 2, 5.3)}, endTimes: []float64{5.3}},
	}

	addAll(t, b, mpt(3, 5.2, 7))
	events := b.Flush()

	if diff := cmp.Diff([][]int{{1, 2, 3}}, eventMembers(events)); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
	if !events[0].UnknownTopology {
		t.Error("UnknownTopology = false, want true")
	}
	if diff := cmp.Diff([]float64{5, 5.3, 7}, events[0].TrackEndTimes); diff != "" {
		t.Errorf("TrackEndTimes (-want +got):\n%s", diff)
	}
}

func TestBuilder_EventIDsAndExtents(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, 1)
	first := mpt(1, 0, 2)
	first.Tracks = append(first.Tracks, spectral.Track{
		ComponentID: 3, AcquisitionID: 11, TrackID: 5,
		StartTime: 0.5, EndTime: 2.5, StartFrequency: 50, EndFrequency: 400, TotalPower: 2,
	})
	addAll(t, b, first, mpt(2, 2.2, 3), mpt(3, 10, 11))
	events := b.Flush()

	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	e := events[0]
	if e.EventID != 0 || e.ComponentID != 3 || e.AcquisitionID != 11 {
		t.Errorf("event key = %d/%d/%d, want 0/3/11", e.EventID, e.ComponentID, e.AcquisitionID)
	}
	extents := []struct {
		name      string
		got, want float64
	}{
		{"StartTime", e.StartTime, 0},
		{"EndTime", e.EndTime, 3},
		{"StartFrequency", e.StartFrequency, 101},
		{"EndFrequency", e.EndFrequency, 202},
		{"MinFrequency", e.MinFrequency, 50},
		{"MaxFrequency", e.MaxFrequency, 400},
		{"TotalPower", e.TotalPower, 4},
	}
	for _, x := range extents {
		if x.got != x.want {
			t.Errorf("%s = %v, want %v", x.name, x.got, x.want)
		}
	}
	for _, m := range e.MultiPeakTracks {
		if m.EventSequenceID != 0 {
			t.Errorf("member %v EventSequenceID = %d, want 0", m.TrackKeys(), m.EventSequenceID)
		}
	}
	if events[1].EventID != 1 || events[1].MultiPeakTracks[0].EventSequenceID != 1 {
		t.Errorf("second event id/sequence = %d/%d, want 1/1",
			events[1].EventID, events[1].MultiPeakTracks[0].EventSequenceID)
	}

	// Ids restart after a flush.
	addAll(t, b, mpt(4, 0, 1))
	if id := b.Flush()[0].EventID; id != 0 {
		t.Errorf("EventID after flush = %d, want 0", id)
	}
}

func TestBuilder_UnknownTopologyPropagates(t *testing.T) {
	t.Parallel()

	m := mpt(1, 0, 1)
	m.UnknownTopology = true
	events, err := BuildEvents([]spectral.MultiPeakTrack{m}, 0)
	if err != nil {
		t.Fatalf("BuildEvents: %v", err)
	}
	if len(events) != 1 || !events[0].UnknownTopology {
		t.Errorf("events = %+v, want one event with UnknownTopology", events)
	}
}

func TestBuilder_ExcludesCutTracks(t *testing.T) {
	t.Parallel()

	mixed := mpt(1, 0, 1)
	cut := mixed.Tracks[0]
	cut.TrackID = 9
	cut.IsCut = true
	mixed.Tracks = append(mixed.Tracks, cut)

	allCut := mpt(2, 0.5, 1)
	allCut.Tracks[0].IsCut = true

	events, err := BuildEvents([]spectral.MultiPeakTrack{mixed, allCut}, 1)
	if err != nil {
		t.Fatalf("BuildEvents: %v", err)
	}
	if diff := cmp.Diff([][]int{{1}}, eventMembers(events)); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	for _, e := range events {
		for _, tr := range e.Tracks() {
			if tr.IsCut {
				t.Errorf("event %d holds cut track %d", e.EventID, tr.TrackID)
			}
		}
	}
}

func TestBuilder_RejectsOutOfOrder(t *testing.T) {
	t.Parallel()

	b := newTestBuilder(t, 1)
	addAll(t, b, mpt(1, 5, 6))
	if err := b.Add(mpt(2, 4, 5)); !errors.Is(err, spectral.ErrOutOfOrder) {
		t.Fatalf("Add(late) error = %v, want ErrOutOfOrder", err)
	}
	if n := b.Discarded(); n != 1 {
		t.Errorf("Discarded() = %d, want 1", n)
	}
	if diff := cmp.Diff([][]int{{1}}, eventMembers(b.Flush())); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestNewBuilder_InvalidTolerance(t *testing.T) {
	t.Parallel()

	for _, tol := range []float64{-1, math.NaN(), math.Inf(1)} {
		if _, err := NewBuilder(tol); !errors.Is(err, spectral.ErrInvalidConfig) {
			t.Errorf("NewBuilder(%v) error = %v, want ErrInvalidConfig", tol, err)
		}
	}
}

func track(id int, start, end, f0, f1 float64) spectral.Track {
	return spectral.Track{
		ComponentID: 3, AcquisitionID: 11, TrackID: id,
		StartTime: start, EndTime: end, StartFrequency: f0, EndFrequency: f1, TotalPower: 1,
	}
}

func TestClusterTracks(t *testing.T) {
	t.Parallel()

	tracks := []spectral.Track{
		track(2, 20, 25, 300, 310),
		track(0, 0, 5, 100, 110),
		track(1, 5.2, 9, 110.5, 120),
	}
	cut := track(7, 5.1, 6, 110, 111)
	cut.IsCut = true
	tracks = append(tracks, cut)

	cfg := DensityConfig{Radii: [4]float64{1, 10, 1, 10}, MinPoints: 1, Backend: l1index.BackendSparse, SidebandTolerance: 0.1}

	t.Run("every track in an event", func(t *testing.T) {
		t.Parallel()
		events, loose, err := ClusterTracks(tracks, cfg)
		if err != nil {
			t.Fatalf("ClusterTracks: %v", err)
		}
		if len(loose) != 0 {
			t.Errorf("len(loose) = %d, want 0", len(loose))
		}
		if diff := cmp.Diff([][]int{{0, 1}, {2}}, eventMembers(events)); diff != "" {
			t.Fatalf("events (-want +got):\n%s", diff)
		}
		if n := len(events[0].MultiPeakTracks); n != 2 {
			t.Errorf("first event has %d multi-peak tracks, want 2", n)
		}
		if diff := cmp.Diff([]float64{5, 9}, events[0].TrackEndTimes); diff != "" {
			t.Errorf("TrackEndTimes (-want +got):\n%s", diff)
		}
	})

	t.Run("isolated track is noise", func(t *testing.T) {
		t.Parallel()
		c := cfg
		c.MinPoints = 2
		c.Backend = l1index.BackendDense
		events, loose, err := ClusterTracks(tracks, c)
		if err != nil {
			t.Fatalf("ClusterTracks: %v", err)
		}
		if diff := cmp.Diff([][]int{{0, 1}}, eventMembers(events)); diff != "" {
			t.Errorf("events (-want +got):\n%s", diff)
		}
		if len(loose) != 1 {
			t.Fatalf("len(loose) = %d, want 1", len(loose))
		}
		if loose[0].Tracks[0].TrackID != 2 || loose[0].EventSequenceID != -1 {
			t.Errorf("loose = track %d sequence %d, want track 2 sequence -1",
				loose[0].Tracks[0].TrackID, loose[0].EventSequenceID)
		}
	})

	t.Run("kdtree rejected", func(t *testing.T) {
		t.Parallel()
		c := cfg
		c.Backend = l1index.BackendKDTree
		if _, _, err := ClusterTracks(tracks, c); !errors.Is(err, spectral.ErrInvalidConfig) {
			t.Errorf("ClusterTracks error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		events, loose, err := ClusterTracks([]spectral.Track{cut}, cfg)
		if err != nil {
			t.Fatalf("ClusterTracks: %v", err)
		}
		if len(events) != 0 || len(loose) != 0 {
			t.Errorf("got %d events and %d loose, want none", len(events), len(loose))
		}
	})
}

func TestStrategies(t *testing.T) {
	t.Parallel()

	tracks := []spectral.Track{
		track(0, 0, 5, 100, 110),
		track(1, 0.05, 5.02, 200, 210),
		track(2, 5.3, 9, 110, 120),
		track(3, 30, 31, 100, 100),
	}

	sweep := SweepStrategy{SidebandTolerance: 0.1, JumpTolerance: 0.5}
	if sweep.Name() != "sweep" {
		t.Errorf("sweep Name() = %q", sweep.Name())
	}
	events, loose, err := sweep.Build(tracks)
	if err != nil {
		t.Fatalf("sweep Build: %v", err)
	}
	if len(loose) != 0 {
		t.Errorf("sweep left %d loose multi-peak tracks", len(loose))
	}
	if diff := cmp.Diff([][]int{{0, 1, 2}, {3}}, eventMembers(events)); diff != "" {
		t.Fatalf("sweep events (-want +got):\n%s", diff)
	}
	if n := len(events[0].MultiPeakTracks); n != 2 {
		t.Errorf("first sweep event has %d multi-peak tracks, want 2", n)
	}

	density := DensityStrategy{Config: DensityConfig{Radii: [4]float64{0.5, 1000, 0.5, 1000}, MinPoints: 1, SidebandTolerance: 0.1}}
	if density.Name() != "dbscan" {
		t.Errorf("density Name() = %q", density.Name())
	}
	events, _, err = density.Build(tracks)
	if err != nil {
		t.Fatalf("density Build: %v", err)
	}
	if diff := cmp.Diff([][]int{{0, 1, 2}, {3}}, eventMembers(events)); diff != "" {
		t.Errorf("density events (-want +got):\n%s", diff)
	}
}

func TestStrategy_Validate(t *testing.T) {
	t.Parallel()

	density := DensityConfig{Radii: [4]float64{1, 1, 1, 1}, MinPoints: 1}
	withSideband := func(v float64) DensityConfig {
		c := density
		c.SidebandTolerance = v
		return c
	}

	tests := []struct {
		name     string
		strategy Strategy
		wantErr  bool
	}{
		{"sweep ok", SweepStrategy{SidebandTolerance: 0.1, JumpTolerance: 0.5}, false},
		{"sweep zero tolerances", SweepStrategy{}, false},
		{"sweep negative sideband", SweepStrategy{SidebandTolerance: -1, JumpTolerance: 0.5}, true},
		{"sweep NaN jump", SweepStrategy{SidebandTolerance: 0.1, JumpTolerance: math.NaN()}, true},
		{"sweep infinite sideband", SweepStrategy{SidebandTolerance: math.Inf(1)}, true},
		{"density ok", DensityStrategy{Config: density}, false},
		{"density NaN sideband", DensityStrategy{Config: withSideband(math.NaN())}, true},
		{"density infinite sideband", DensityStrategy{Config: withSideband(math.Inf(1))}, true},
		{"density kdtree", DensityStrategy{Config: DensityConfig{Radii: density.Radii, MinPoints: 1, Backend: l1index.BackendKDTree}}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.strategy.Validate()
			if tt.wantErr && !errors.Is(err, spectral.ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
