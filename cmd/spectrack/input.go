package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/banshee-data/spectrack/internal/spectral"
	"github.com/banshee-data/spectrack/internal/spectral/pipeline"
)

// Input record types, one JSON object per line.
const (
	recordPoint          = "point"
	recordBatch          = "batch"
	recordTrack          = "track"
	recordAcquisitionEnd = "acquisition-end"
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 16 << 20

// inputRecord is the union of every input line shape. Type selects which
// fields are read.
type inputRecord struct {
	Type          string `json:"type"`
	ComponentID   int    `json:"component"`
	AcquisitionID uint64 `json:"acquisition"`

	// point and batch
	Kind            string  `json:"kind,omitempty"`
	TimeBinWidth    float64 `json:"time-bin-width,omitempty"`
	FreqBinWidth    float64 `json:"freq-bin-width,omitempty"`
	FrequencyOffset float64 `json:"frequency-offset,omitempty"`

	// point
	TimeBin int     `json:"time-bin,omitempty"`
	FreqBin int     `json:"freq-bin,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Imag    float64 `json:"imag,omitempty"`

	// batch: [time-bin, freq-bin, value] or [time-bin, freq-bin, real, imag]
	Points [][]float64 `json:"points,omitempty"`

	// track
	TrackID        int     `json:"track-id,omitempty"`
	StartTime      float64 `json:"start-time,omitempty"`
	EndTime        float64 `json:"end-time,omitempty"`
	StartFrequency float64 `json:"start-frequency,omitempty"`
	EndFrequency   float64 `json:"end-frequency,omitempty"`
	Slope          float64 `json:"slope,omitempty"`
	Intercept      float64 `json:"intercept,omitempty"`
	TotalPower     float64 `json:"total-power,omitempty"`
	IsCut          bool    `json:"is-cut,omitempty"`
}

func (r inputRecord) batch() (spectral.DiscriminatedBatch, error) {
	kind, err := spectral.ParseSpectrumKind(r.Kind)
	if err != nil {
		return spectral.DiscriminatedBatch{}, fmt.Errorf("%v: %w", err, spectral.ErrInvalidRecord)
	}
	b := spectral.DiscriminatedBatch{
		Kind:            kind,
		ComponentID:     r.ComponentID,
		AcquisitionID:   r.AcquisitionID,
		TimeBinWidth:    r.TimeBinWidth,
		FreqBinWidth:    r.FreqBinWidth,
		FrequencyOffset: r.FrequencyOffset,
	}
	if r.Type == recordPoint {
		b.Points = []spectral.RawPoint{{TimeBin: r.TimeBin, FreqBin: r.FreqBin, Value: r.Value, Imag: r.Imag}}
		return b, nil
	}
	b.Points = make([]spectral.RawPoint, 0, len(r.Points))
	for i, p := range r.Points {
		if len(p) < 3 || len(p) > 4 {
			return spectral.DiscriminatedBatch{}, fmt.Errorf("point %d has %d values, want 3 or 4: %w", i, len(p), spectral.ErrInvalidRecord)
		}
		rp := spectral.RawPoint{TimeBin: int(p[0]), FreqBin: int(p[1]), Value: p[2]}
		if len(p) == 4 {
			rp.Imag = p[3]
		}
		b.Points = append(b.Points, rp)
	}
	return b, nil
}

func (r inputRecord) track() spectral.Track {
	return spectral.Track{
		ComponentID:    r.ComponentID,
		AcquisitionID:  r.AcquisitionID,
		TrackID:        r.TrackID,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		StartFrequency: r.StartFrequency,
		EndFrequency:   r.EndFrequency,
		Slope:          r.Slope,
		Intercept:      r.Intercept,
		TotalPower:     r.TotalPower,
		IsCut:          r.IsCut,
	}
}

// feedStats counts what feed read.
type feedStats struct {
	Lines    int
	Rejected int // malformed lines and records the controller refused
	Failed   int // flushes that failed
}

// feed reads JSON lines from r into ctrl. Data errors are logged and
// counted; only a read failure or a cancelled context stops it. Flush
// errors reported along the way are joined into the returned error.
func feed(ctx context.Context, r io.Reader, ctrl *pipeline.Controller) (feedStats, error) {
	var stats feedStats
	var flushErrs []error

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Lines++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec inputRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Rejected++
			log.Printf("line %d: %v", stats.Lines, err)
			continue
		}

		var err error
		switch rec.Type {
		case recordPoint, recordBatch:
			var b spectral.DiscriminatedBatch
			if b, err = rec.batch(); err == nil {
				err = ctrl.AddBatch(ctx, b)
			}
		case recordTrack:
			err = ctrl.AddTrack(ctx, rec.track())
		case recordAcquisitionEnd:
			err = ctrl.EndAcquisition(ctx, rec.ComponentID)
		default:
			err = fmt.Errorf("unknown record type %q: %w", rec.Type, spectral.ErrInvalidRecord)
		}
		if err == nil {
			continue
		}

		// A returned error may carry a flush failure, a rejected record,
		// or both.
		var fe *pipeline.FlushError
		if errors.As(err, &fe) {
			stats.Failed++
			flushErrs = append(flushErrs, fe)
		}
		if errors.Is(err, spectral.ErrInvalidRecord) {
			stats.Rejected++
		}
		log.Printf("line %d: %v", stats.Lines, err)
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	return stats, errors.Join(flushErrs...)
}
