// Package presenter turns the refresh state into a view model: the summary
// panel, the temperature curve geometry, axis markers and the precipitation row.
// Rendering itself (HTML/SVG) consumes View and adds nothing but markup.
package presenter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/i474232898/weather-glance/internal/dashboard"
	"github.com/i474232898/weather-glance/internal/forecast"
	"github.com/i474232898/weather-glance/internal/localtime"
	"github.com/i474232898/weather-glance/internal/weather"
)

// Layout is the pixel geometry of the chart.
type Layout struct {
	Width     int
	Height    int
	PadX      int
	PadTop    int
	PadBottom int
	// PrecipRow is the height reserved below the curve for precipitation bars.
	PrecipRow int
	BarWidth  float64
}

// DefaultLayout returns the layout used by the dashboard page.
func DefaultLayout() Layout {
	return Layout{
		Width:     960,
		Height:    320,
		PadX:      24,
		PadTop:    28,
		PadBottom: 24,
		PrecipRow: 40,
		BarWidth:  6,
	}
}

// CurrentView wraps the current conditions with presentation fields.
type CurrentView struct {
	weather.CurrentConditions

	TemperatureLabel string `json:"temperatureLabel"`
	Description      string `json:"description"`
	Glyph            string `json:"glyph"`
	Night            bool   `json:"night"`
	// Chance labels for the next 30 and 60 minutes, "–" when unknown.
	Chance30Label string `json:"chance30Label"`
	Chance60Label string `json:"chance60Label"`
	// Alert is set for the fallback record so it never passes as a real reading.
	Alert bool `json:"alert"`
}

// Point is one vertex of the temperature curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Label is a positioned piece of text on the chart.
type Label struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// Marker is a vertical line on the chart.
type Marker struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// BarView is a positioned precipitation bar.
type BarView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Kind   string  `json:"kind"`
	Past   bool    `json:"past"`
}

// BlockGlyph is the single indicator drawn over an active precipitation block.
type BlockGlyph struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Glyph string  `json:"glyph"`
	Kind  string  `json:"kind"`
}

// Chart is the full geometry of the forecast chart.
type Chart struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Segments are SVG polyline point lists. Null temperatures split the curve.
	Segments []string `json:"segments"`
	Points   []*Point `json:"points"`

	Highs       []Label  `json:"highs"`
	Lows        []Label  `json:"lows"`
	DayMarkers  []Marker `json:"dayMarkers"`
	HourMarkers []Marker `json:"hourMarkers"`

	// Unavailable is set when the series is the fallback placeholder; no
	// temperature is drawn for placeholder samples.
	Unavailable bool `json:"unavailable"`
	// Center of the plot area, where the unavailable notice is drawn.
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`

	HasNow bool    `json:"hasNow"`
	NowX   float64 `json:"nowX"`

	PlotTop      float64      `json:"plotTop"`
	PlotBottom   float64      `json:"plotBottom"`
	PrecipBottom float64      `json:"precipBottom"`
	Bars         []BarView    `json:"bars"`
	Blocks       []BlockGlyph `json:"blocks"`
}

// View is the template and JSON context of the dashboard.
type View struct {
	Phase    string `json:"phase"`
	Loading  bool   `json:"loading"`
	Stale    bool   `json:"stale"`
	NoData   bool   `json:"noData"`
	Alert    bool   `json:"alert"`
	Status   string `json:"status"`
	Timezone string `json:"timezone"`

	UpdatedAt    time.Time `json:"updatedAt"`
	UpdatedLabel string    `json:"updatedLabel"`

	Current *CurrentView `json:"current,omitempty"`
	Chart   *Chart       `json:"chart,omitempty"`
}

// Presenter builds views in the display timezone.
type Presenter struct {
	clock  *localtime.Clock
	layout Layout
}

// New creates a Presenter.
func New(clock *localtime.Clock, layout Layout) *Presenter {
	return &Presenter{clock: clock, layout: layout}
}

// Build derives the view for s. Previously shown data stays in the view while
// a cycle is in flight; Loading only adds a placeholder on top.
func (p *Presenter) Build(s dashboard.State) View {
	v := View{
		Phase:    string(s.Phase),
		Loading:  s.Fetching(),
		Stale:    s.Phase == dashboard.PhaseDisplayingStale,
		Timezone: p.clock.Name(),
	}

	if s.Data == nil {
		v.NoData = true
		v.Status = p.status(v)
		return v
	}

	snap := s.Data
	v.UpdatedAt = snap.FetchedAt
	v.UpdatedLabel = p.clock.In(snap.FetchedAt).Format("Mon 15:04")

	cur := p.current(snap.Current)
	v.Current = &cur
	v.Alert = cur.Alert || v.Stale

	if snap.Forecast.Empty() {
		v.NoData = true
	} else {
		chart := p.chart(snap)
		v.Chart = &chart
		if chart.Unavailable {
			v.Alert = true
		}
	}

	v.Status = p.status(v)
	return v
}

func (p *Presenter) status(v View) string {
	var parts []string
	switch {
	case v.Loading && v.Current == nil:
		parts = append(parts, "Loading…")
	case v.Loading:
		parts = append(parts, "Updating…")
	}
	if v.Stale {
		if v.UpdatedLabel != "" {
			parts = append(parts, "Data may be outdated (last update "+v.UpdatedLabel+")")
		} else {
			parts = append(parts, "Data may be outdated")
		}
	}
	if v.NoData && !v.Loading {
		parts = append(parts, "No data")
	}
	return strings.Join(parts, " · ")
}

func (p *Presenter) current(c weather.CurrentConditions) CurrentView {
	cv := CurrentView{
		CurrentConditions: c,
		Description:       Description(c.Condition),
		Glyph:             Glyph(c.Icon),
		Night:             IsNightIcon(c.Icon),
		Alert:             c.IsFallback(),
		Chance30Label:     formatChance(c.PrecipProbability30),
		Chance60Label:     formatChance(c.PrecipProbability60),
	}
	if cv.Alert {
		cv.Glyph = Glyph(weather.IconAlert)
		cv.TemperatureLabel = "--"
	} else {
		cv.TemperatureLabel = FormatTemperature(c.Temperature)
	}
	return cv
}

func (p *Presenter) chart(snap *dashboard.Snapshot) Chart {
	l := p.layout
	fc := snap.Forecast
	n := len(fc.Samples)

	c := Chart{
		Width:        l.Width,
		Height:       l.Height,
		PlotTop:      float64(l.PadTop),
		PlotBottom:   float64(l.Height - l.PadBottom - l.PrecipRow),
		PrecipBottom: float64(l.Height - l.PadBottom),
	}
	c.CenterX = float64(l.Width) / 2
	c.CenterY = (c.PlotTop + c.PlotBottom) / 2

	xOf := func(i int) float64 {
		left := float64(l.PadX)
		span := float64(l.Width - 2*l.PadX)
		if n < 2 {
			return left + span/2
		}
		return left + span*float64(i)/float64(n-1)
	}

	lo, hi, ok := tempRange(fc.Samples)
	yOf := func(t float64) float64 {
		if !ok || hi == lo {
			return (c.PlotTop + c.PlotBottom) / 2
		}
		return c.PlotBottom - (t-lo)/(hi-lo)*(c.PlotBottom-c.PlotTop)
	}

	c.Points = make([]*Point, n)
	var seg []string
	placeholders := 0
	for i, s := range fc.Samples {
		if s.Condition.IsError() {
			placeholders++
		}
		t, drawable := plotted(s)
		if !drawable {
			if len(seg) > 0 {
				c.Segments = append(c.Segments, strings.Join(seg, " "))
				seg = nil
			}
			continue
		}
		pt := &Point{X: xOf(i), Y: yOf(t)}
		c.Points[i] = pt
		seg = append(seg, fmt.Sprintf("%.1f,%.1f", pt.X, pt.Y))

		if s.IsDayHigh {
			c.Highs = append(c.Highs, Label{X: pt.X, Y: pt.Y - 8, Text: FormatTemperature(t)})
		}
		if s.IsDayLow {
			c.Lows = append(c.Lows, Label{X: pt.X, Y: pt.Y + 16, Text: FormatTemperature(t)})
		}
	}
	if len(seg) > 0 {
		c.Segments = append(c.Segments, strings.Join(seg, " "))
	}
	c.Unavailable = placeholders > 0 && placeholders == n

	c.DayMarkers = markers(fc.DayTicks, xOf)
	c.HourMarkers = markers(fc.HourTicks, xOf)

	if fc.Anchored {
		c.HasNow = true
		c.NowX = xOf(fc.PointerIndex)
	}

	for _, b := range snap.Precip.Bars {
		if !b.Active {
			continue
		}
		h := float64(b.Pixels)
		if h > float64(l.PrecipRow) {
			h = float64(l.PrecipRow)
		}
		c.Bars = append(c.Bars, BarView{
			X:      xOf(b.Index) - l.BarWidth/2,
			Y:      c.PrecipBottom - h,
			Width:  l.BarWidth,
			Height: h,
			Kind:   string(b.Kind),
			Past:   b.Past,
		})
	}
	for _, b := range snap.Precip.Blocks {
		if !b.Active {
			continue
		}
		c.Blocks = append(c.Blocks, BlockGlyph{
			X:     xOf(b.Anchor),
			Y:     c.PlotBottom + 12,
			Glyph: precipGlyph(b.Kind),
			Kind:  string(b.Kind),
		})
	}
	return c
}

func markers(ticks []forecast.Tick, xOf func(int) float64) []Marker {
	out := make([]Marker, 0, len(ticks))
	for _, t := range ticks {
		out = append(out, Marker{X: xOf(t.Index), Label: t.Label})
	}
	return out
}

// plotted returns the temperature to draw for s. Null temperatures and
// fallback placeholder samples are not drawn.
func plotted(s forecast.EnrichedSample) (float64, bool) {
	if s.Temperature == nil || s.Condition.IsError() {
		return 0, false
	}
	return *s.Temperature, true
}

// tempRange returns the min and max drawable temperature of the series.
func tempRange(samples []forecast.EnrichedSample) (lo, hi float64, ok bool) {
	for _, s := range samples {
		t, drawable := plotted(s)
		if !drawable {
			continue
		}
		if !ok {
			lo, hi, ok = t, t, true
			continue
		}
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	return lo, hi, ok
}

func formatChance(p *int) string {
	if p == nil {
		return "–"
	}
	return fmt.Sprintf("%d%%", *p)
}

// FormatTemperature renders a rounded Celsius value, e.g. "14°".
func FormatTemperature(t float64) string {
	r := math.Round(t)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return fmt.Sprintf("%.0f°", r)
}
