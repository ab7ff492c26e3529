package l5events

import (
	"fmt"
	"math"

	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l1index"
	"github.com/banshee-data/spectrack/internal/spectral/l2cluster"
	"github.com/banshee-data/spectrack/internal/spectral/l3tracks"
	"github.com/banshee-data/spectrack/internal/spectral/l4multipeak"
)

// DensityConfig configures the density-clustering strategy.
type DensityConfig struct {
	// Radii are the tolerances on (startTime, startFreq, endTime,
	// endFreq). The two time radii should be equal so that the time gap
	// is measured in one unit.
	Radii       [4]float64
	MinPoints   int
	Backend     l1index.Backend
	MaxIndexGap int
	// SidebandTolerance groups each cluster's tracks into multi-peak
	// tracks.
	SidebandTolerance float64
}

// Validate rejects unusable tolerances and the spatial-tree backend,
// which cannot evaluate the TrackGap metric.
func (c DensityConfig) Validate() error {
	for i, r := range c.Radii {
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("event radius[%d] must be positive, got %v: %w", i, r, spectral.ErrInvalidConfig)
		}
	}
	if c.MinPoints < 1 {
		return fmt.Errorf("event min points must be >= 1, got %d: %w", c.MinPoints, spectral.ErrInvalidConfig)
	}
	if c.Backend == l1index.BackendKDTree {
		return fmt.Errorf("density events need the dense or sparse backend: %w", spectral.ErrInvalidConfig)
	}
	if !validTolerance(c.SidebandTolerance) {
		return fmt.Errorf("sideband tolerance must be non-negative: %w", spectral.ErrInvalidConfig)
	}
	return nil
}

// ClusterTracks runs DBSCAN over the bounding boxes of the uncut tracks,
// each scaled per axis onto the unit sphere. Every cluster becomes one
// event. Tracks left as noise are still grouped into multi-peak tracks
// and returned as loose, with no event.
func ClusterTracks(tracks []spectral.Track, cfg DensityConfig) ([]spectral.Event, []spectral.MultiPeakTrack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	kept := make([]spectral.Track, 0, len(tracks))
	for _, t := range tracks {
		if !t.IsCut {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil, nil, nil
	}
	// The sparse backend searches forward in time order.
	spectral.SortTracksByStart(kept)

	scale := l3tracks.ScaleFactors(cfg.Radii[:])
	boxes := make([][]float64, len(kept))
	for i, t := range kept {
		boxes[i] = []float64{
			t.StartTime * scale[l1index.AxisStartTime],
			t.StartFrequency * scale[l1index.AxisStartFreq],
			t.EndTime * scale[l1index.AxisEndTime],
			t.EndFrequency * scale[l1index.AxisEndFreq],
		}
	}

	idx, err := l1index.Build(boxes, l1index.Options{
		Backend:     cfg.Backend,
		Metric:      l1index.TrackGap{},
		MaxIndexGap: cfg.MaxIndexGap,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build event index: %w", err)
	}
	res, err := l2cluster.DBSCAN(idx, l2cluster.Params{Radius: 1, MinPoints: cfg.MinPoints})
	if err != nil {
		return nil, nil, fmt.Errorf("cluster tracks into events: %w", err)
	}

	events := make([]spectral.Event, 0, len(res.Clusters))
	for cid, c := range res.Clusters {
		members := make([]spectral.Track, len(c.PointIDs))
		for i, id := range c.PointIDs {
			members[i] = kept[id]
		}
		mpts, err := l4multipeak.Build(members, cfg.SidebandTolerance)
		if err != nil {
			return nil, nil, err
		}
		var ends []float64
		for _, m := range mpts {
			ends = insertEndTime(ends, m.MeanEndTime)
		}
		events = append(events, newEvent(cid, mpts, ends, false))
	}

	var noise []spectral.Track
	for id, isNoise := range res.Noise {
		if isNoise {
			noise = append(noise, kept[id])
		}
	}
	loose, err := l4multipeak.Build(noise, cfg.SidebandTolerance)
	if err != nil {
		return nil, nil, err
	}

	diagf("density events: %d tracks -> %d events, %d noise tracks", len(kept), len(events), len(noise))
	return events, loose, nil
}
