package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/spectrack/internal/spectral"
)

func sampleData() Data {
	tr := func(comp, id int, t0, t1, f0, f1 float64) spectral.Track {
		return spectral.Track{ComponentID: comp, AcquisitionID: 1, TrackID: id,
			StartTime: t0, EndTime: t1, StartFrequency: f0, EndFrequency: f1, TotalPower: 1}
	}
	a := tr(0, 0, 0, 1, 100, 150)
	b := tr(0, 1, 0.01, 1, 300, 350)
	c := tr(0, 2, 1.1, 2, 150, 160)
	loose := tr(1, 0, 5, 6, 10, 10)
	cut := tr(0, 3, 3, 4, 500, 500)
	cut.IsCut = true

	mab := spectral.MultiPeakTrack{ComponentID: 0, AcquisitionID: 1, Tracks: []spectral.Track{a, b}}
	mc := spectral.MultiPeakTrack{ComponentID: 0, AcquisitionID: 1, Tracks: []spectral.Track{c}}
	return Data{
		Tracks: []spectral.Track{a, b, c, loose, cut},
		Events: []spectral.Event{{ComponentID: 0, AcquisitionID: 1, EventID: 0, MultiPeakTracks: []spectral.MultiPeakTrack{mab, mc}}},
		Summaries: []spectral.AcquisitionSummary{
			{ComponentID: 0, AcquisitionID: 1, Tracks: 4, CutTracks: 1, MultiPeakTracks: 2, Events: 1},
			{ComponentID: 1, AcquisitionID: 1, Tracks: 1, Discarded: 3},
		},
	}
}

func TestGroups(t *testing.T) {
	t.Parallel()

	groups := sampleData().groups()
	require.Len(t, groups, 3)
	assert.Equal(t, "c0/a1/e0", groups[0].label)
	assert.Len(t, groups[0].tracks, 3)
	assert.Equal(t, "unassigned", groups[1].label)
	assert.Equal(t, 1, groups[1].tracks[0].ComponentID)
	assert.Equal(t, "cut", groups[2].label)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	d := sampleData()
	assert.Equal(t, d, d.Filter(AllComponents))

	one := d.Filter(1)
	assert.Len(t, one.Tracks, 1)
	assert.Empty(t, one.Events)
	assert.Len(t, one.Summaries, 1)
}

func TestFromCollector(t *testing.T) {
	t.Parallel()

	c := &spectral.Collector{}
	d := sampleData()
	for _, tr := range d.Tracks {
		require.NoError(t, c.Track(tr))
	}
	require.NoError(t, c.Event(d.Events[0]))
	got := FromCollector(c)
	assert.Len(t, got.Tracks, len(d.Tracks))
	assert.Len(t, got.Events, 1)
	assert.Empty(t, got.Summaries)
}

func TestGenerateColors(t *testing.T) {
	t.Parallel()

	assert.Nil(t, generateColors(0))
	colors := generateColors(4)
	require.Len(t, colors, 4)
	seen := map[string]bool{}
	for _, c := range colors {
		seen[hexColor(c)] = true
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, "#d82626", hexColor(colors[0]))
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, sampleData(), PlotOptions{Title: "test"}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)

	// An empty report still renders.
	buf.Reset()
	require.NoError(t, WritePNG(&buf, Data{}, PlotOptions{}))
	assert.NotZero(t, buf.Len())
}

func TestSavePNG(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "tracks.png")
	require.NoError(t, SavePNG(path, sampleData(), PlotOptions{}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleData(), "run x"))
	html := buf.String()
	for _, want := range []string{"<html", "run x", "c0/a1/e0", "unassigned", "component 1", "discarded"} {
		assert.True(t, strings.Contains(html, want), "missing %q", want)
	}
}

func TestSaveHTML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, SaveHTML(path, sampleData(), ""))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Tracks by event")
}

func TestData_Extent(t *testing.T) {
	t.Parallel()

	_, ok := Data{}.Extent()
	assert.False(t, ok)

	b, ok := sampleData().Extent()
	require.True(t, ok)
	assert.Equal(t, 0.0, b.Left())
	assert.Equal(t, 6.0, b.Right())
	assert.Equal(t, 10.0, b.Bottom())
	assert.Equal(t, 500.0, b.Top())

	p, err := NewTimeFrequencyPlot(sampleData(), PlotOptions{})
	require.NoError(t, err)
	assert.InDelta(t, -0.3, p.X.Min, 1e-9)
	assert.InDelta(t, 6.3, p.X.Max, 1e-9)
	assert.InDelta(t, 10-24.5, p.Y.Min, 1e-9)
}
