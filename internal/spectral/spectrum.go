package spectral

import (
	"fmt"
	"math"
)

// SpectrumKind tags the frequency-domain representation a batch of
// discriminated points was taken from.
type SpectrumKind int

const (
	// PowerSpectrum values are already power.
	PowerSpectrum SpectrumKind = iota
	// MagnitudeSpectrum values are |X(f)|; power is the square.
	MagnitudeSpectrum
	// ComplexSpectrum values carry real and imaginary parts.
	ComplexSpectrum
)

func (k SpectrumKind) String() string {
	switch k {
	case PowerSpectrum:
		return "power"
	case MagnitudeSpectrum:
		return "magnitude"
	case ComplexSpectrum:
		return "complex"
	default:
		return fmt.Sprintf("SpectrumKind(%d)", int(k))
	}
}

// ParseSpectrumKind is the inverse of SpectrumKind.String. An empty
// string means PowerSpectrum.
func ParseSpectrumKind(s string) (SpectrumKind, error) {
	switch s {
	case "", "power":
		return PowerSpectrum, nil
	case "magnitude":
		return MagnitudeSpectrum, nil
	case "complex":
		return ComplexSpectrum, nil
	}
	return 0, fmt.Errorf("unknown spectrum kind %q", s)
}

// RawPoint is a discriminated peak as the upstream stage reports it.
// Imag is only meaningful for ComplexSpectrum.
type RawPoint struct {
	TimeBin int
	FreqBin int
	Value   float64
	Imag    float64
}

// DiscriminatedBatch is one slice of time-ordered points for a single
// component, as produced by the point-discrimination stage.
type DiscriminatedBatch struct {
	Kind          SpectrumKind
	ComponentID   int
	AcquisitionID uint64

	TimeBinWidth    float64 // seconds per time bin
	FreqBinWidth    float64 // Hz per frequency bin
	FrequencyOffset float64 // Hz of frequency bin 0

	Points []RawPoint
}

// Validate reports missing or inconsistent batch fields.
func (b DiscriminatedBatch) Validate() error {
	if b.TimeBinWidth <= 0 || math.IsNaN(b.TimeBinWidth) {
		return fmt.Errorf("component %d acquisition %d: time bin width must be positive, got %v: %w",
			b.ComponentID, b.AcquisitionID, b.TimeBinWidth, ErrInvalidRecord)
	}
	if b.FreqBinWidth <= 0 || math.IsNaN(b.FreqBinWidth) {
		return fmt.Errorf("component %d acquisition %d: frequency bin width must be positive, got %v: %w",
			b.ComponentID, b.AcquisitionID, b.FreqBinWidth, ErrInvalidRecord)
	}
	switch b.Kind {
	case PowerSpectrum, MagnitudeSpectrum, ComplexSpectrum:
	default:
		return fmt.Errorf("component %d acquisition %d: %v: %w", b.ComponentID, b.AcquisitionID, b.Kind, ErrInvalidRecord)
	}
	return nil
}

// Normalize converts every raw point to the canonical Point whose
// amplitude is power. Points with a non-finite value are dropped and
// counted in the second return value.
func (b DiscriminatedBatch) Normalize() ([]Point, int) {
	out := make([]Point, 0, len(b.Points))
	dropped := 0
	for _, rp := range b.Points {
		var power float64
		switch b.Kind {
		case PowerSpectrum:
			power = rp.Value
		case MagnitudeSpectrum:
			power = rp.Value * rp.Value
		case ComplexSpectrum:
			power = rp.Value*rp.Value + rp.Imag*rp.Imag
		}
		if math.IsNaN(power) || math.IsInf(power, 0) {
			dropped++
			continue
		}
		out = append(out, Point{TimeBin: rp.TimeBin, FreqBin: rp.FreqBin, Amplitude: power})
	}
	return out, dropped
}
