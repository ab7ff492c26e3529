package publish

import "github.com/banshee-data/spectrack/internal/spectral"

// TrackKey identifies a track in a published message.
type TrackKey struct {
	AcquisitionID uint64 `json:"acquisition_id"`
	TrackID       int    `json:"track_id"`
}

// TrackMessage is the payload published for one track.
type TrackMessage struct {
	RunID          string  `json:"run_id"`
	ComponentID    int     `json:"component_id"`
	AcquisitionID  uint64  `json:"acquisition_id"`
	TrackID        int     `json:"track_id"`
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	StartFrequency float64 `json:"start_frequency"`
	EndFrequency   float64 `json:"end_frequency"`
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	TotalPower     float64 `json:"total_power"`
	IsCut          bool    `json:"is_cut,omitempty"`
	NPoints        int     `json:"n_points,omitempty"`
}

// MultiPeakMessage is the payload published for one multi-peak track.
type MultiPeakMessage struct {
	RunID           string     `json:"run_id"`
	ComponentID     int        `json:"component_id"`
	AcquisitionID   uint64     `json:"acquisition_id"`
	EventID         int        `json:"event_id"`
	MeanStartTime   float64    `json:"mean_start_time"`
	MeanEndTime     float64    `json:"mean_end_time"`
	StartTimeSigma  float64    `json:"start_time_sigma"`
	EndTimeSigma    float64    `json:"end_time_sigma"`
	UnknownTopology bool       `json:"unknown_topology,omitempty"`
	Tracks          []TrackKey `json:"tracks"`
}

// EventMessage is the payload published for one event.
type EventMessage struct {
	RunID           string       `json:"run_id"`
	ComponentID     int          `json:"component_id"`
	AcquisitionID   uint64       `json:"acquisition_id"`
	EventID         int          `json:"event_id"`
	StartTime       float64      `json:"start_time"`
	EndTime         float64      `json:"end_time"`
	StartFrequency  float64      `json:"start_frequency"`
	EndFrequency    float64      `json:"end_frequency"`
	MinFrequency    float64      `json:"min_frequency"`
	MaxFrequency    float64      `json:"max_frequency"`
	TotalPower      float64      `json:"total_power"`
	UnknownTopology bool         `json:"unknown_topology,omitempty"`
	TrackEndTimes   []float64    `json:"track_end_times"`
	MultiPeakTracks [][]TrackKey `json:"multi_peak_tracks"`
}

// AcquisitionMessage is the payload published when an acquisition has
// been flushed.
type AcquisitionMessage struct {
	RunID           string `json:"run_id"`
	ComponentID     int    `json:"component_id"`
	AcquisitionID   uint64 `json:"acquisition_id"`
	Points          int    `json:"points"`
	Tracks          int    `json:"tracks"`
	CutTracks       int    `json:"cut_tracks"`
	MultiPeakTracks int    `json:"multi_peak_tracks"`
	Events          int    `json:"events"`
	Discarded       int    `json:"discarded"`
}

func trackKeys(tracks []spectral.Track) []TrackKey {
	keys := make([]TrackKey, len(tracks))
	for i, t := range tracks {
		keys[i] = TrackKey{AcquisitionID: t.AcquisitionID, TrackID: t.TrackID}
	}
	return keys
}

func newTrackMessage(runID string, t spectral.Track) TrackMessage {
	return TrackMessage{
		RunID:          runID,
		ComponentID:    t.ComponentID,
		AcquisitionID:  t.AcquisitionID,
		TrackID:        t.TrackID,
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		StartFrequency: t.StartFrequency,
		EndFrequency:   t.EndFrequency,
		Slope:          t.Slope,
		Intercept:      t.Intercept,
		TotalPower:     t.TotalPower,
		IsCut:          t.IsCut,
		NPoints:        t.NPoints,
	}
}

func newMultiPeakMessage(runID string, m spectral.MultiPeakTrack) MultiPeakMessage {
	return MultiPeakMessage{
		RunID:           runID,
		ComponentID:     m.ComponentID,
		AcquisitionID:   m.AcquisitionID,
		EventID:         m.EventSequenceID,
		MeanStartTime:   m.MeanStartTime,
		MeanEndTime:     m.MeanEndTime,
		StartTimeSigma:  m.StartTimeSigma,
		EndTimeSigma:    m.EndTimeSigma,
		UnknownTopology: m.UnknownTopology,
		Tracks:          trackKeys(m.Tracks),
	}
}

func newEventMessage(runID string, e spectral.Event) EventMessage {
	msg := EventMessage{
		RunID:           runID,
		ComponentID:     e.ComponentID,
		AcquisitionID:   e.AcquisitionID,
		EventID:         e.EventID,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		StartFrequency:  e.StartFrequency,
		EndFrequency:    e.EndFrequency,
		MinFrequency:    e.MinFrequency,
		MaxFrequency:    e.MaxFrequency,
		TotalPower:      e.TotalPower,
		UnknownTopology: e.UnknownTopology,
		TrackEndTimes:   e.TrackEndTimes,
		MultiPeakTracks: make([][]TrackKey, len(e.MultiPeakTracks)),
	}
	for i, m := range e.MultiPeakTracks {
		msg.MultiPeakTracks[i] = trackKeys(m.Tracks)
	}
	return msg
}

func newAcquisitionMessage(runID string, s spectral.AcquisitionSummary) AcquisitionMessage {
	return AcquisitionMessage{
		RunID:           runID,
		ComponentID:     s.ComponentID,
		AcquisitionID:   s.AcquisitionID,
		Points:          s.Points,
		Tracks:          s.Tracks,
		CutTracks:       s.CutTracks,
		MultiPeakTracks: s.MultiPeakTracks,
		Events:          s.Events,
		Discarded:       s.Discarded,
	}
}
