package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// Run is one row of spectral_runs.
type Run struct {
	RunID            string `json:"run_id"`
	StartedUnixNanos int64  `json:"started_unix_nanos"`
	ParamsJSON       string `json:"params_json,omitempty"`
}

// EventRecord is a persisted event. Member multi-peak tracks are stored
// separately and are only counted here.
type EventRecord struct {
	RunID           string    `json:"run_id"`
	ComponentID     int       `json:"component_id"`
	AcquisitionID   uint64    `json:"acquisition_id"`
	EventID         int       `json:"event_id"`
	StartTime       float64   `json:"start_time"`
	EndTime         float64   `json:"end_time"`
	StartFrequency  float64   `json:"start_frequency"`
	EndFrequency    float64   `json:"end_frequency"`
	MinFrequency    float64   `json:"min_frequency"`
	MaxFrequency    float64   `json:"max_frequency"`
	TotalPower      float64   `json:"total_power"`
	UnknownTopology bool      `json:"unknown_topology"`
	MultiPeakTracks int       `json:"multi_peak_tracks"`
	Tracks          int       `json:"tracks"`
	TrackEndTimes   []float64 `json:"track_end_times"`
}

// ListRuns returns every run, oldest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(`
		SELECT run_id, started_unix_nanos, params_json
		FROM spectral_runs
		ORDER BY started_unix_nanos, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var params sql.NullString
		if err := rows.Scan(&r.RunID, &r.StartedUnixNanos, &params); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ParamsJSON = params.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListTracks returns the tracks of one acquisition ordered by track id.
// PointRefs are not persisted and come back nil.
func (db *DB) ListTracks(runID string, componentID int, acquisitionID uint64) ([]spectral.Track, error) {
	rows, err := db.Query(`
		SELECT track_id, start_time, end_time, start_frequency, end_frequency,
		       slope, intercept, total_power, is_cut, n_points,
		       time_bin_width, freq_bin_width
		FROM spectral_tracks
		WHERE run_id = ? AND component_id = ? AND acquisition_id = ?
		ORDER BY track_id
	`, runID, componentID, int64(acquisitionID))
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []spectral.Track
	for rows.Next() {
		t := spectral.Track{ComponentID: componentID, AcquisitionID: acquisitionID}
		var timeBin, freqBin sql.NullFloat64
		if err := rows.Scan(
			&t.TrackID, &t.StartTime, &t.EndTime, &t.StartFrequency, &t.EndFrequency,
			&t.Slope, &t.Intercept, &t.TotalPower, &t.IsCut, &t.NPoints,
			&timeBin, &freqBin,
		); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		t.TimeBinWidth = timeBin.Float64
		t.FreqBinWidth = freqBin.Float64
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// ListMultiPeakMembers returns the member track ids of every multi-peak
// track of one acquisition, in insertion order.
func (db *DB) ListMultiPeakMembers(runID string, componentID int, acquisitionID uint64) ([][]int, error) {
	rows, err := db.Query(`
		SELECT m.mpt_id, mm.track_id
		FROM spectral_multi_peak_tracks m
		JOIN spectral_multi_peak_members mm ON mm.mpt_id = m.mpt_id
		WHERE m.run_id = ? AND m.component_id = ? AND m.acquisition_id = ?
		ORDER BY m.mpt_id, mm.member_index
	`, runID, componentID, int64(acquisitionID))
	if err != nil {
		return nil, fmt.Errorf("list multi-peak members: %w", err)
	}
	defer rows.Close()

	var out [][]int
	last := int64(-1)
	for rows.Next() {
		var mptID int64
		var trackID int
		if err := rows.Scan(&mptID, &trackID); err != nil {
			return nil, fmt.Errorf("scan multi-peak member: %w", err)
		}
		if mptID != last {
			out = append(out, nil)
			last = mptID
		}
		out[len(out)-1] = append(out[len(out)-1], trackID)
	}
	return out, rows.Err()
}

// ListEvents returns the events of a run ordered by component,
// acquisition and event id.
func (db *DB) ListEvents(runID string) ([]EventRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, component_id, acquisition_id, event_id,
		       start_time, end_time, start_frequency, end_frequency,
		       min_frequency, max_frequency, total_power, unknown_topology,
		       multi_peak_tracks, tracks, track_end_times_json
		FROM spectral_events
		WHERE run_id = ?
		ORDER BY component_id, acquisition_id, event_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var acq int64
		var endTimes string
		if err := rows.Scan(
			&e.RunID, &e.ComponentID, &acq, &e.EventID,
			&e.StartTime, &e.EndTime, &e.StartFrequency, &e.EndFrequency,
			&e.MinFrequency, &e.MaxFrequency, &e.TotalPower, &e.UnknownTopology,
			&e.MultiPeakTracks, &e.Tracks, &endTimes,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.AcquisitionID = uint64(acq)
		if err := json.Unmarshal([]byte(endTimes), &e.TrackEndTimes); err != nil {
			return nil, fmt.Errorf("decode track end times of event %d: %w", e.EventID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListSummaries returns the acquisition summaries of a run.
func (db *DB) ListSummaries(runID string) ([]spectral.AcquisitionSummary, error) {
	rows, err := db.Query(`
		SELECT component_id, acquisition_id, points, tracks, cut_tracks,
		       multi_peak_tracks, events, discarded
		FROM spectral_acquisitions
		WHERE run_id = ?
		ORDER BY component_id, acquisition_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []spectral.AcquisitionSummary
	for rows.Next() {
		var s spectral.AcquisitionSummary
		var acq int64
		if err := rows.Scan(&s.ComponentID, &acq, &s.Points, &s.Tracks, &s.CutTracks,
			&s.MultiPeakTracks, &s.Events, &s.Discarded); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.AcquisitionID = uint64(acq)
		out = append(out, s)
	}
	return out, rows.Err()
}
