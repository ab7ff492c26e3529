package pipeline

import (
	"fmt"

	"github.com/banshee-data/spectrack/internal/config"
	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l1index"
	"github.com/banshee-data/spectrack/internal/spectral/l3tracks"
	"github.com/banshee-data/spectrack/internal/spectral/l5events"
)

// Config holds everything the controller needs to assemble one
// acquisition.
type Config struct {
	Tracks   l3tracks.Config
	Strategy l5events.Strategy
	// FlushWorkers bounds concurrent component flushes. Values below 1
	// mean one.
	FlushWorkers int
	// RunID stamps log lines; NewController generates one when empty.
	RunID string
}

// ConfigFromTuning validates tc and builds the controller configuration
// from it. Configuration errors surface here, before any data is read.
func ConfigFromTuning(tc *config.TuningConfig) (Config, error) {
	if tc == nil {
		tc = config.EmptyTuningConfig()
	}
	if err := tc.Validate(); err != nil {
		return Config{}, err
	}

	backend, err := l1index.ParseBackend(tc.GetDistanceBackend())
	if err != nil {
		return Config{}, fmt.Errorf("%v: %w", err, spectral.ErrInvalidConfig)
	}

	cfg := Config{
		Tracks: l3tracks.Config{
			Radii:       tc.GetRadii(),
			MinPoints:   tc.GetMinPoints(),
			Backend:     backend,
			MaxIndexGap: tc.GetMaxIndexGap(),
		},
		FlushWorkers: tc.GetFlushWorkers(),
	}

	switch tc.GetEventStrategy() {
	case config.EventStrategyDBSCAN:
		cfg.Strategy = l5events.DensityStrategy{Config: l5events.DensityConfig{
			Radii:             tc.GetEventRadii(),
			MinPoints:         tc.GetEventMinPoints(),
			Backend:           backend,
			MaxIndexGap:       tc.GetMaxIndexGap(),
			SidebandTolerance: tc.GetSidebandTimeTolerance(),
		}}
	default:
		cfg.Strategy = l5events.SweepStrategy{
			SidebandTolerance: tc.GetSidebandTimeTolerance(),
			JumpTolerance:     tc.GetJumpTimeTolerance(),
		}
	}
	return cfg, nil
}
