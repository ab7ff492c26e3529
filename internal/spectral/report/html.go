package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/spectrack/internal/monitoring"
)

// NewTrackScatter returns an echarts scatter of track start and end
// points, one series per event.
func NewTrackScatter(d Data, title string) *charts.Scatter {
	if title == "" {
		title = "Tracks by event"
	}
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Spectrack", Width: "1200px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("tracks=%d events=%d", len(d.Tracks), len(d.Events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30px"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Frequency (Hz)", NameLocation: "middle", NameGap: 45}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", XAxisIndex: []int{0}}),
	)

	groups := d.groups()
	colors := generateColors(len(groups))
	for i, g := range groups {
		data := make([]opts.ScatterData, 0, 2*len(g.tracks))
		for _, t := range g.tracks {
			name := fmt.Sprintf("c%d/a%d/t%d", t.ComponentID, t.AcquisitionID, t.TrackID)
			data = append(data,
				opts.ScatterData{Name: name, Value: []interface{}{t.StartTime, t.StartFrequency, t.TotalPower}},
				opts.ScatterData{Name: name, Value: []interface{}{t.EndTime, t.EndFrequency, t.TotalPower}},
			)
		}
		scatter.AddSeries(g.label, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[i])}),
		)
	}
	return scatter
}

// NewSummaryBar returns an echarts bar chart of tracks, multi-peak
// tracks, events and discarded records per component.
func NewSummaryBar(d Data) *charts.Bar {
	type totals struct{ tracks, mpts, events, discarded int }
	byComponent := make(map[int]*totals)
	for _, s := range d.Summaries {
		t := byComponent[s.ComponentID]
		if t == nil {
			t = &totals{}
			byComponent[s.ComponentID] = t
		}
		t.tracks += s.Tracks
		t.mpts += s.MultiPeakTracks
		t.events += s.Events
		t.discarded += s.Discarded
	}
	ids := make([]int, 0, len(byComponent))
	for id := range byComponent {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	x := make([]string, len(ids))
	var tracks, mpts, events, discarded []opts.BarData
	for i, id := range ids {
		x[i] = fmt.Sprintf("component %d", id)
		t := byComponent[id]
		tracks = append(tracks, opts.BarData{Value: t.tracks})
		mpts = append(mpts, opts.BarData{Value: t.mpts})
		events = append(events, opts.BarData{Value: t.events})
		discarded = append(discarded, opts.BarData{Value: t.discarded})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Per-component totals", Subtitle: fmt.Sprintf("acquisitions=%d", len(d.Summaries))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30px"}),
	)
	label := charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})
	bar.SetXAxis(x).
		AddSeries("tracks", tracks, label).
		AddSeries("multi-peak tracks", mpts, label).
		AddSeries("events", events, label).
		AddSeries("discarded", discarded, label)
	return bar
}

// WriteHTML renders the track scatter and the summary bar chart as one
// HTML page.
func WriteHTML(w io.Writer, d Data, title string) error {
	page := components.NewPage()
	page.PageTitle = "Spectrack report"
	page.AddCharts(NewTrackScatter(d, title), NewSummaryBar(d))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

// SaveHTML writes the HTML report of d to path.
func SaveHTML(path string, d Data, title string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := WriteHTML(f, d, title); err != nil {
		return err
	}
	monitoring.Logf("wrote HTML report %s (%d events)", path, len(d.Events))
	return nil
}
