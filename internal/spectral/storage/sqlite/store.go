package sqlite

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// ResultStore writes the records of one run. It implements spectral.Sink
// and is safe for concurrent use.
type ResultStore struct {
	db    *DB
	runID string

	mu sync.Mutex
}

var _ spectral.Sink = (*ResultStore)(nil)

// NewResultStore registers runID in db and returns a sink bound to it.
// An empty runID is replaced with a new UUID. params, when non-nil, is
// stored as JSON with the run so a result can be traced to its tuning.
func NewResultStore(db *DB, runID string, params any) (*ResultStore, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	var paramsJSON *string
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal run params: %w", err)
		}
		s := string(b)
		paramsJSON = &s
	}

	_, err := db.Exec(`
		INSERT INTO spectral_runs (run_id, started_unix_nanos, params_json)
		VALUES (?, ?, ?)
		ON CONFLICT (run_id) DO NOTHING
	`, runID, time.Now().UnixNano(), paramsJSON)
	if err != nil {
		return nil, fmt.Errorf("insert run %s: %w", runID, err)
	}
	return &ResultStore{db: db, runID: runID}, nil
}

// RunID returns the run this store writes.
func (s *ResultStore) RunID() string { return s.runID }

// Track implements spectral.Sink.
func (s *ResultStore) Track(t spectral.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO spectral_tracks (
			run_id, component_id, acquisition_id, track_id,
			start_time, end_time, start_frequency, end_frequency,
			slope, intercept, total_power, is_cut, n_points,
			time_bin_width, freq_bin_width
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.runID, t.ComponentID, int64(t.AcquisitionID), t.TrackID,
		t.StartTime, t.EndTime, t.StartFrequency, t.EndFrequency,
		t.Slope, t.Intercept, t.TotalPower, t.IsCut, t.NPoints,
		t.TimeBinWidth, t.FreqBinWidth,
	)
	if err != nil {
		return fmt.Errorf("insert track %d: %w", t.TrackID, err)
	}
	return nil
}

// MultiPeakTrack implements spectral.Sink. The group row and its member
// rows are written in one transaction.
func (s *ResultStore) MultiPeakTrack(m spectral.MultiPeakTrack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin multi-peak track: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO spectral_multi_peak_tracks (
			run_id, component_id, acquisition_id, event_id,
			mean_start_time, mean_end_time, start_time_sigma, end_time_sigma,
			unknown_topology
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.runID, m.ComponentID, int64(m.AcquisitionID), m.EventSequenceID,
		m.MeanStartTime, m.MeanEndTime, m.StartTimeSigma, m.EndTimeSigma,
		m.UnknownTopology,
	)
	if err != nil {
		return fmt.Errorf("insert multi-peak track: %w", err)
	}
	mptID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("multi-peak track id: %w", err)
	}

	for i, t := range m.Tracks {
		if _, err := tx.Exec(`
			INSERT INTO spectral_multi_peak_members (mpt_id, member_index, track_id)
			VALUES (?, ?, ?)
		`, mptID, i, t.TrackID); err != nil {
			return fmt.Errorf("insert multi-peak member %d: %w", t.TrackID, err)
		}
	}
	return tx.Commit()
}

// Event implements spectral.Sink.
func (s *ResultStore) Event(e spectral.Event) error {
	endTimes, err := json.Marshal(e.TrackEndTimes)
	if err != nil {
		return fmt.Errorf("marshal track end times: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO spectral_events (
			run_id, component_id, acquisition_id, event_id,
			start_time, end_time, start_frequency, end_frequency,
			min_frequency, max_frequency, total_power, unknown_topology,
			multi_peak_tracks, tracks, track_end_times_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.runID, e.ComponentID, int64(e.AcquisitionID), e.EventID,
		e.StartTime, e.EndTime, e.StartFrequency, e.EndFrequency,
		e.MinFrequency, e.MaxFrequency, e.TotalPower, e.UnknownTopology,
		len(e.MultiPeakTracks), len(e.Tracks()), string(endTimes),
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", e.EventID, err)
	}
	return nil
}

// EndAcquisition implements spectral.Sink.
func (s *ResultStore) EndAcquisition(sum spectral.AcquisitionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO spectral_acquisitions (
			run_id, component_id, acquisition_id, points, tracks, cut_tracks,
			multi_peak_tracks, events, discarded, recorded_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.runID, sum.ComponentID, int64(sum.AcquisitionID), sum.Points, sum.Tracks, sum.CutTracks,
		sum.MultiPeakTracks, sum.Events, sum.Discarded, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert acquisition summary %d/%d: %w", sum.ComponentID, sum.AcquisitionID, err)
	}
	return nil
}
