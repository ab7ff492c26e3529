package l3tracks

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/l1index"
	"github.com/banshee-data/spectrack/internal/spectral/l2cluster"
)

// Config holds the track clustering parameters.
type Config struct {
	// Radii are the (time seconds, frequency Hz) tolerances.
	Radii       [2]float64
	MinPoints   int
	Backend     l1index.Backend
	MaxIndexGap int
}

// Validate rejects tolerances that cannot be turned into a unit sphere.
func (c Config) Validate() error {
	for i, r := range c.Radii {
		if !(r > 0) || math.IsInf(r, 0) {
			return fmt.Errorf("radius[%d] must be positive, got %v: %w", i, r, spectral.ErrInvalidConfig)
		}
	}
	if c.MinPoints < 1 {
		return fmt.Errorf("min points must be >= 1, got %d: %w", c.MinPoints, spectral.ErrInvalidConfig)
	}
	return nil
}

// Result is the outcome of one assembly pass.
type Result struct {
	Tracks []spectral.Track
	// Noise counts points that joined no cluster.
	Noise int
	// Skipped counts clusters dropped as data errors.
	Skipped int
}

// Assembler turns the points of one acquisition into tracks.
type Assembler struct {
	cfg       Config
	clusterer l2cluster.Clusterer
}

// NewAssembler validates cfg and returns an assembler that clusters with
// DBSCAN at unit radius.
func NewAssembler(cfg Config) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = l1index.BackendDense
	}
	return &Assembler{
		cfg:       cfg,
		clusterer: l2cluster.NewDBSCANClusterer(1, cfg.MinPoints),
	}, nil
}

// SetClusterer replaces the clustering algorithm. The clusterer always
// sees scaled coordinates, so its radius should stay at 1.
func (a *Assembler) SetClusterer(c l2cluster.Clusterer) {
	a.clusterer = c
}

// Config returns the assembler configuration.
func (a *Assembler) Config() Config { return a.cfg }

// ScaleFactors returns the multipliers that map each axis tolerance onto
// the unit sphere: 1/(radius·√nDims).
func ScaleFactors(radii []float64) []float64 {
	out := make([]float64, len(radii))
	root := math.Sqrt(float64(len(radii)))
	for i, r := range radii {
		out[i] = 1 / (r * root)
	}
	return out
}

// Assemble clusters every point in arena and builds one track per
// non-empty cluster. Points are visited in (time, frequency, arena index)
// order, which keeps the result independent of insertion order for
// time-ordered input and satisfies the sparse backend's precondition.
// Tracks are numbered from zero in cluster discovery order.
func (a *Assembler) Assemble(arena *spectral.Arena) (Result, error) {
	points := arena.Points()
	if len(points) == 0 {
		return Result{}, nil
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		pi, pj := points[order[i]], points[order[j]]
		if pi.TimeBin != pj.TimeBin {
			return pi.TimeBin < pj.TimeBin
		}
		return pi.FreqBin < pj.FreqBin
	})

	scale := ScaleFactors(a.cfg.Radii[:])
	coords := make([][]float64, len(order))
	for i, ref := range order {
		p := points[ref]
		coords[i] = []float64{
			arena.TimeOf(p.TimeBin) * scale[0],
			arena.FrequencyOf(p.FreqBin) * scale[1],
		}
	}

	idx, err := l1index.Build(coords, l1index.Options{Backend: a.cfg.Backend, MaxIndexGap: a.cfg.MaxIndexGap})
	if err != nil {
		return Result{}, fmt.Errorf("build %s index: %w", a.cfg.Backend, err)
	}
	clustered, err := a.clusterer.Cluster(idx)
	if err != nil {
		return Result{}, fmt.Errorf("cluster component %d acquisition %d: %w", arena.ComponentID, arena.AcquisitionID, err)
	}

	res := Result{Noise: clustered.NoiseCount()}
	for cid, c := range clustered.Clusters {
		refs := make([]int, len(c.PointIDs))
		for i, id := range c.PointIDs {
			refs[i] = order[id]
		}
		track, err := BuildTrack(arena, refs)
		if err != nil {
			opsf("component %d acquisition %d: skipping cluster %d: %v",
				arena.ComponentID, arena.AcquisitionID, cid, err)
			res.Skipped++
			continue
		}
		track.TrackID = len(res.Tracks)
		tracef("component %d acquisition %d: track %d from %d points, t=[%.6f, %.6f]",
			arena.ComponentID, arena.AcquisitionID, track.TrackID, track.NPoints, track.StartTime, track.EndTime)
		res.Tracks = append(res.Tracks, track)
	}

	diagf("component %d acquisition %d: %d points -> %d tracks, %d noise, %d skipped",
		arena.ComponentID, arena.AcquisitionID, len(points), len(res.Tracks), res.Noise, res.Skipped)
	return res, nil
}

// BuildTrack builds a track from the arena points named by refs. The
// track spans the extremal times of its points; its frequencies lie on a
// line fitted to the points weighted by power. When every point shares
// one time bin the line is flat at the weighted mean frequency.
func BuildTrack(arena *spectral.Arena, refs []int) (spectral.Track, error) {
	if len(refs) == 0 {
		return spectral.Track{}, spectral.ErrEmptyCluster
	}
	pts, err := arena.Resolve(refs)
	if err != nil {
		return spectral.Track{}, err
	}

	sorted := append([]int(nil), refs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := arena.Points()[sorted[i]], arena.Points()[sorted[j]]
		if pi.TimeBin != pj.TimeBin {
			return pi.TimeBin < pj.TimeBin
		}
		return pi.FreqBin < pj.FreqBin
	})

	ts := make([]float64, len(pts))
	fs := make([]float64, len(pts))
	ws := make([]float64, len(pts))
	for i, p := range pts {
		ts[i] = arena.TimeOf(p.TimeBin)
		fs[i] = arena.FrequencyOf(p.FreqBin)
		ws[i] = p.Amplitude
	}
	weights := ws
	if floats.Min(ws) < 0 || floats.Sum(ws) <= 0 {
		weights = nil
	}

	start, end := floats.Min(ts), floats.Max(ts)
	var slope, intercept float64
	if start == end {
		intercept = stat.Mean(fs, weights)
	} else {
		intercept, slope = stat.LinearRegression(ts, fs, weights, false)
		if math.IsNaN(slope) || math.IsNaN(intercept) {
			// All power sits in one time bin.
			intercept, slope = stat.Mean(fs, weights), 0
		}
	}

	return spectral.Track{
		ComponentID:    arena.ComponentID,
		AcquisitionID:  arena.AcquisitionID,
		StartTime:      start,
		EndTime:        end,
		StartFrequency: intercept + slope*start,
		EndFrequency:   intercept + slope*end,
		Slope:          slope,
		Intercept:      intercept,
		TotalPower:     floats.Sum(ws),
		NPoints:        len(pts),
		TimeBinWidth:   arena.TimeBinWidth,
		FreqBinWidth:   arena.FreqBinWidth,
		PointRefs:      sorted,
	}, nil
}
