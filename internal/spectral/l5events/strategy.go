package l5events

import (
	"fmt"
	"math"

	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l4multipeak"
)

// Strategy turns one acquisition's tracks into events. Loose holds
// multi-peak tracks that belong to no event. Validate reports
// configuration errors before any data is processed.
type Strategy interface {
	Build(tracks []spectral.Track) (events []spectral.Event, loose []spectral.MultiPeakTrack, err error)
	Name() string
	Validate() error
}

// SweepStrategy groups tracks into multi-peak tracks and then sweeps
// those into events.
type SweepStrategy struct {
	SidebandTolerance float64
	JumpTolerance     float64
}

func validTolerance(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate implements Strategy.
func (s SweepStrategy) Validate() error {
	if !validTolerance(s.SidebandTolerance) {
		return fmt.Errorf("sideband tolerance must be finite and non-negative, got %v: %w",
			s.SidebandTolerance, spectral.ErrInvalidConfig)
	}
	if !validTolerance(s.JumpTolerance) {
		return fmt.Errorf("jump tolerance must be finite and non-negative, got %v: %w",
			s.JumpTolerance, spectral.ErrInvalidConfig)
	}
	return nil
}

// Build implements Strategy.
func (s SweepStrategy) Build(tracks []spectral.Track) ([]spectral.Event, []spectral.MultiPeakTrack, error) {
	mpts, err := l4multipeak.Build(tracks, s.SidebandTolerance)
	if err != nil {
		return nil, nil, err
	}
	events, err := BuildEvents(mpts, s.JumpTolerance)
	if err != nil {
		return nil, nil, err
	}
	return events, nil, nil
}

// Name implements Strategy.
func (SweepStrategy) Name() string { return "sweep" }

// DensityStrategy clusters track bounding boxes with DBSCAN.
type DensityStrategy struct {
	Config DensityConfig
}

// Build implements Strategy.
func (s DensityStrategy) Build(tracks []spectral.Track) ([]spectral.Event, []spectral.MultiPeakTrack, error) {
	return ClusterTracks(tracks, s.Config)
}

// Validate implements Strategy.
func (s DensityStrategy) Validate() error { return s.Config.Validate() }

// Name implements Strategy.
func (DensityStrategy) Name() string { return "dbscan" }

var (
	_ Strategy = SweepStrategy{}
	_ Strategy = DensityStrategy{}
)
