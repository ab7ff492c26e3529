package spectral

import (
	"sort"
)

// Point is a single discriminated peak in time-frequency space.
// Times and frequencies are bin indices; the owning batch carries the bin
// widths needed to convert them to seconds and hertz.
type Point struct {
	TimeBin   int
	FreqBin   int
	Amplitude float64 // power, after Normalize
}

// Track is a line-like feature reconstructed from one cluster of points.
//
// Invariant: StartTime <= EndTime.
type Track struct {
	ComponentID   int
	AcquisitionID uint64
	TrackID       int

	StartTime      float64 // seconds
	EndTime        float64 // seconds
	StartFrequency float64 // Hz
	EndFrequency   float64 // Hz
	Slope          float64 // Hz/s
	Intercept      float64 // Hz at t=0
	TotalPower     float64

	// IsCut marks a track rejected upstream; cut tracks never reach a
	// MultiPeakTrack or Event.
	IsCut bool

	NPoints      int
	TimeBinWidth float64
	FreqBinWidth float64

	// PointRefs index the acquisition Arena that produced the track.
	// Nil for tracks that arrived from a track source.
	PointRefs []int
}

// Duration returns EndTime - StartTime.
func (t Track) Duration() float64 { return t.EndTime - t.StartTime }

// FrequencyWidth returns the absolute frequency span of the track.
func (t Track) FrequencyWidth() float64 {
	w := t.EndFrequency - t.StartFrequency
	if w < 0 {
		return -w
	}
	return w
}

// TrackKey identifies a track uniquely within a run.
type TrackKey struct {
	ComponentID   int
	AcquisitionID uint64
	TrackID       int
}

// Key returns the identity of the track.
func (t Track) Key() TrackKey {
	return TrackKey{ComponentID: t.ComponentID, AcquisitionID: t.AcquisitionID, TrackID: t.TrackID}
}

// SortTracksByStart orders tracks by start time, then end time, then id.
// The sort is stable so equal tracks keep their arrival order.
func SortTracksByStart(tracks []Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].StartTime != tracks[j].StartTime {
			return tracks[i].StartTime < tracks[j].StartTime
		}
		if tracks[i].EndTime != tracks[j].EndTime {
			return tracks[i].EndTime < tracks[j].EndTime
		}
		return tracks[i].TrackID < tracks[j].TrackID
	})
}

// MultiPeakTrack groups simultaneous tracks (sidebands) of one signal.
//
// Invariant: every member's start time lies within the sideband tolerance
// of MeanStartTime, or its end time lies within tolerance of MeanEndTime.
// When only one side matched for some member, UnknownTopology is set.
type MultiPeakTrack struct {
	ComponentID     int
	AcquisitionID   uint64
	EventSequenceID int // assigned by the event builder, -1 until then

	MeanStartTime   float64
	MeanEndTime     float64
	StartTimeSigma  float64
	EndTimeSigma    float64
	UnknownTopology bool

	// Tracks is ordered by start time.
	Tracks []Track
}

// TrackKeys returns the identities of the member tracks in member order.
func (m MultiPeakTrack) TrackKeys() []TrackKey {
	keys := make([]TrackKey, len(m.Tracks))
	for i, t := range m.Tracks {
		keys[i] = t.Key()
	}
	return keys
}

// SortMultiPeakTracksByStart orders multi-peak tracks by mean start time
// and then mean end time. Stable.
func SortMultiPeakTracksByStart(mpts []MultiPeakTrack) {
	sort.SliceStable(mpts, func(i, j int) bool {
		if mpts[i].MeanStartTime != mpts[j].MeanStartTime {
			return mpts[i].MeanStartTime < mpts[j].MeanStartTime
		}
		return mpts[i].MeanEndTime < mpts[j].MeanEndTime
	})
}

// Event groups the multi-peak tracks of one physical occurrence.
//
// Invariant: every member's start time lies within the jump tolerance of
// some end time already recorded in the event.
type Event struct {
	ComponentID   int
	AcquisitionID uint64
	EventID       int

	MultiPeakTracks []MultiPeakTrack
	// TrackEndTimes is sorted ascending and holds no duplicates.
	TrackEndTimes []float64

	StartTime       float64
	EndTime         float64
	StartFrequency  float64
	EndFrequency    float64
	MinFrequency    float64
	MaxFrequency    float64
	TotalPower      float64
	UnknownTopology bool
}

// Tracks returns every member track of every member multi-peak track.
func (e Event) Tracks() []Track {
	var out []Track
	for _, m := range e.MultiPeakTracks {
		out = append(out, m.Tracks...)
	}
	return out
}

// AcquisitionSummary is emitted once per component when an acquisition
// is flushed.
type AcquisitionSummary struct {
	ComponentID     int
	AcquisitionID   uint64
	Points          int
	Tracks          int
	CutTracks       int
	MultiPeakTracks int
	Events          int
	// Discarded counts records dropped as data errors during the
	// acquisition (out-of-order input, empty clusters, bad fields).
	Discarded int
}
