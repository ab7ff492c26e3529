package l5events

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// withoutCutTracks returns m with cut tracks removed and whether any
// track is left.
func withoutCutTracks(m spectral.MultiPeakTrack) (spectral.MultiPeakTrack, bool) {
	kept := make([]spectral.Track, 0, len(m.Tracks))
	for _, t := range m.Tracks {
		if !t.IsCut {
			kept = append(kept, t)
		}
	}
	m.Tracks = kept
	return m, len(kept) > 0
}

// insertEndTime adds e to the sorted set ends.
func insertEndTime(ends []float64, e float64) []float64 {
	i := sort.SearchFloat64s(ends, e)
	if i < len(ends) && ends[i] == e {
		return ends
	}
	ends = append(ends, 0)
	copy(ends[i+1:], ends[i:])
	ends[i] = e
	return ends
}

// newEvent assembles a complete event from its members. Member
// multi-peak tracks are copied, ordered by mean start and stamped with
// the event id. Extents come from the member tracks: the start frequency
// is that of the earliest-starting track, the end frequency that of the
// latest-ending one.
func newEvent(id int, mpts []spectral.MultiPeakTrack, endTimes []float64, unknown bool) spectral.Event {
	members := make([]spectral.MultiPeakTrack, len(mpts))
	copy(members, mpts)
	spectral.SortMultiPeakTracksByStart(members)

	ev := spectral.Event{
		EventID:         id,
		TrackEndTimes:   append([]float64(nil), endTimes...),
		UnknownTopology: unknown,
		StartTime:       math.Inf(1),
		EndTime:         math.Inf(-1),
		MinFrequency:    math.Inf(1),
		MaxFrequency:    math.Inf(-1),
	}
	if len(members) > 0 {
		ev.ComponentID = members[0].ComponentID
		ev.AcquisitionID = members[0].AcquisitionID
	}

	var powers []float64
	for i := range members {
		members[i].EventSequenceID = id
		if members[i].UnknownTopology {
			ev.UnknownTopology = true
		}
		for _, t := range members[i].Tracks {
			if t.StartTime < ev.StartTime {
				ev.StartTime = t.StartTime
				ev.StartFrequency = t.StartFrequency
			}
			if t.EndTime > ev.EndTime {
				ev.EndTime = t.EndTime
				ev.EndFrequency = t.EndFrequency
			}
			ev.MinFrequency = math.Min(ev.MinFrequency, math.Min(t.StartFrequency, t.EndFrequency))
			ev.MaxFrequency = math.Max(ev.MaxFrequency, math.Max(t.StartFrequency, t.EndFrequency))
			powers = append(powers, t.TotalPower)
		}
	}
	if len(powers) == 0 {
		ev.StartTime, ev.EndTime = 0, 0
		ev.MinFrequency, ev.MaxFrequency = 0, 0
	} else {
		ev.TotalPower = floats.Sum(powers)
	}
	ev.MultiPeakTracks = members
	return ev
}
