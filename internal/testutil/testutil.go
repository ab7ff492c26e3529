// Package testutil provides shared fixtures for the spectrack tests:
// synthetic point clouds, ready-made batches and scratch database paths.
package testutil

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// Chirp returns n contiguous points starting at (t0, f0) whose frequency
// bin advances by df every time bin. Amplitude is constant.
func Chirp(t0, f0, df, n int, amp float64) []spectral.RawPoint {
	pts := make([]spectral.RawPoint, n)
	for i := range pts {
		pts[i] = spectral.RawPoint{TimeBin: t0 + i, FreqBin: f0 + i*df, Value: amp}
	}
	return pts
}

// Scatter returns n points spread uniformly over [0, maxTime) x
// [0, maxFreq) bins with a fixed seed, so the cloud is reproducible.
func Scatter(seed int64, n, maxTime, maxFreq int) []spectral.RawPoint {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]spectral.RawPoint, n)
	for i := range pts {
		pts[i] = spectral.RawPoint{
			TimeBin: rng.Intn(maxTime),
			FreqBin: rng.Intn(maxFreq),
			Value:   0.1 + rng.Float64(),
		}
	}
	return pts
}

// Batch wraps points in a power-spectrum batch with 10 ms time bins and
// 1 Hz frequency bins.
func Batch(componentID int, acquisitionID uint64, points ...[]spectral.RawPoint) spectral.DiscriminatedBatch {
	b := spectral.DiscriminatedBatch{
		Kind:          spectral.PowerSpectrum,
		ComponentID:   componentID,
		AcquisitionID: acquisitionID,
		TimeBinWidth:  0.01,
		FreqBinWidth:  1,
	}
	for _, p := range points {
		b.Points = append(b.Points, p...)
	}
	return b
}

// TempDBPath returns a database file path inside a per-test directory
// that is removed when the test ends.
func TempDBPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "spectrack.db")
}
