package report

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/paulmach/orb"

	"github.com/banshee-data/spectrack/internal/spectral"
)

// AllComponents selects every component in Data.Filter.
const AllComponents = -1

// Data is the pipeline output a report is drawn from.
type Data struct {
	Tracks    []spectral.Track
	Events    []spectral.Event
	Summaries []spectral.AcquisitionSummary
}

// FromCollector copies what c has collected. Call it once the pipeline
// has flushed.
func FromCollector(c *spectral.Collector) Data {
	return Data{
		Tracks:    append([]spectral.Track(nil), c.Tracks...),
		Events:    append([]spectral.Event(nil), c.Events...),
		Summaries: append([]spectral.AcquisitionSummary(nil), c.Summaries...),
	}
}

// Filter keeps the records of one component. AllComponents keeps all.
func (d Data) Filter(componentID int) Data {
	if componentID == AllComponents {
		return d
	}
	var out Data
	for _, t := range d.Tracks {
		if t.ComponentID == componentID {
			out.Tracks = append(out.Tracks, t)
		}
	}
	for _, e := range d.Events {
		if e.ComponentID == componentID {
			out.Events = append(out.Events, e)
		}
	}
	for _, s := range d.Summaries {
		if s.ComponentID == componentID {
			out.Summaries = append(out.Summaries, s)
		}
	}
	return out
}

// Extent returns the time-frequency bound of every track end point, with
// time on X and frequency on Y. ok is false when there are no tracks.
func (d Data) Extent() (b orb.Bound, ok bool) {
	if len(d.Tracks) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, 0, 2*len(d.Tracks))
	for _, t := range d.Tracks {
		mp = append(mp,
			orb.Point{t.StartTime, t.StartFrequency},
			orb.Point{t.EndTime, t.EndFrequency})
	}
	return mp.Bound(), true
}

// eventKey identifies an event across components and acquisitions.
type eventKey struct {
	ComponentID   int
	AcquisitionID uint64
	EventID       int
}

func (k eventKey) label() string {
	return fmt.Sprintf("c%d/a%d/e%d", k.ComponentID, k.AcquisitionID, k.EventID)
}

// group is the tracks drawn in one colour.
type group struct {
	label  string
	tracks []spectral.Track
}

// groups splits the tracks into one group per event, then unassigned
// tracks, then cut tracks. Empty groups are dropped.
func (d Data) groups() []group {
	owner := make(map[spectral.TrackKey]eventKey)
	keys := make([]eventKey, 0, len(d.Events))
	for _, e := range d.Events {
		k := eventKey{e.ComponentID, e.AcquisitionID, e.EventID}
		keys = append(keys, k)
		for _, t := range e.Tracks() {
			owner[t.Key()] = k
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ComponentID != b.ComponentID {
			return a.ComponentID < b.ComponentID
		}
		if a.AcquisitionID != b.AcquisitionID {
			return a.AcquisitionID < b.AcquisitionID
		}
		return a.EventID < b.EventID
	})

	byEvent := make(map[eventKey][]spectral.Track, len(keys))
	var unassigned, cut []spectral.Track
	for _, t := range d.Tracks {
		switch k, ok := owner[t.Key()]; {
		case t.IsCut:
			cut = append(cut, t)
		case ok:
			byEvent[k] = append(byEvent[k], t)
		default:
			unassigned = append(unassigned, t)
		}
	}

	out := make([]group, 0, len(keys)+2)
	for _, k := range keys {
		if ts := byEvent[k]; len(ts) > 0 {
			out = append(out, group{label: k.label(), tracks: ts})
		}
	}
	if len(unassigned) > 0 {
		out = append(out, group{label: "unassigned", tracks: unassigned})
	}
	if len(cut) > 0 {
		out = append(out, group{label: "cut", tracks: cut})
	}
	return out
}

// generateColors returns n distinct colours spread around the hue wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(255 * hueToRGB(p, q, h+1.0/3)),
		uint8(255 * hueToRGB(p, q, h)),
		uint8(255 * hueToRGB(p, q, h-1.0/3))
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
