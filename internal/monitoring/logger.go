// Package monitoring holds process-wide diagnostics for the spectrack
// binaries: a replaceable printf-style logger used by the adapters
// (storage, publish, report) and running flush counters.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// FlushStats counts what the pipeline has emitted since start-up. It is
// safe for concurrent use; the zero value is ready.
type FlushStats struct {
	acquisitions    atomic.Int64
	tracks          atomic.Int64
	multiPeakTracks atomic.Int64
	events          atomic.Int64
	discarded       atomic.Int64
	failures        atomic.Int64
}

// FlushSnapshot is a point-in-time copy of FlushStats.
type FlushSnapshot struct {
	Acquisitions    int64 `json:"acquisitions"`
	Tracks          int64 `json:"tracks"`
	MultiPeakTracks int64 `json:"multi_peak_tracks"`
	Events          int64 `json:"events"`
	Discarded       int64 `json:"discarded"`
	Failures        int64 `json:"failures"`
}

// RecordAcquisition adds the outcome of one flushed acquisition.
func (s *FlushStats) RecordAcquisition(tracks, multiPeakTracks, events, discarded int) {
	s.acquisitions.Add(1)
	s.tracks.Add(int64(tracks))
	s.multiPeakTracks.Add(int64(multiPeakTracks))
	s.events.Add(int64(events))
	s.discarded.Add(int64(discarded))
}

// RecordFailure counts one failed component flush.
func (s *FlushStats) RecordFailure() {
	s.failures.Add(1)
}

// Snapshot returns the current counter values.
func (s *FlushStats) Snapshot() FlushSnapshot {
	return FlushSnapshot{
		Acquisitions:    s.acquisitions.Load(),
		Tracks:          s.tracks.Load(),
		MultiPeakTracks: s.multiPeakTracks.Load(),
		Events:          s.events.Load(),
		Discarded:       s.discarded.Load(),
		Failures:        s.failures.Load(),
	}
}
