// Package precip derives precipitation bars and per-block indicators from an
// enriched forecast.
package precip

import (
	"math"
	"time"

	"github.com/i474232898/weather-glance/internal/common"
	"github.com/i474232898/weather-glance/internal/forecast"
	"github.com/i474232898/weather-glance/internal/weather"
)

const hoursPerDay = 24

// Kind is the rendering style of precipitation.
type Kind string

const (
	KindNone Kind = ""
	KindRain Kind = "rain"
	KindSnow Kind = "snow"
)

// Options are display-tuning values, not physical constants.
type Options struct {
	// Future samples are active when their probability is >= ThresholdPct.
	ThresholdPct int
	// Observed amount that fills a whole bar.
	MaxBarMm float64
	// Width of a block in local hours.
	BlockHours int
	// Smallest height (0..1) an active bar is drawn with.
	MinBarFraction float64
	// Pixel height of a full bar.
	BarPixels int
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ThresholdPct:   10,
		MaxBarMm:       2.5,
		BlockHours:     6,
		MinBarFraction: 0.1,
		BarPixels:      40,
	}
}

// Bar describes the precipitation bar of one sample.
type Bar struct {
	Index  int     `json:"index"`
	Active bool    `json:"active"`
	Past   bool    `json:"past"`
	Kind   Kind    `json:"kind,omitempty"`
	Height float64 `json:"height"`
	Pixels int     `json:"pixels"`
}

// Block is a fixed-width local-hour window of one day.
type Block struct {
	DayKey    string `json:"dayKey"`
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
	Indexes   []int  `json:"indexes"`
	Active    bool   `json:"active"`
	// Anchor is the median sample index; the block's glyph is drawn there.
	Anchor int  `json:"anchor"`
	Kind   Kind `json:"kind,omitempty"`
}

// Result is the output of Bucketize. Bars is parallel to the input samples.
type Result struct {
	Bars   []Bar   `json:"bars"`
	Blocks []Block `json:"blocks"`
}

// BlockRange returns the [start,end) local-hour window that hour falls into
// for the given width. Windows tile [0,24); the last one is cut at 24.
func BlockRange(hour, width int) (start, end int) {
	if width <= 0 {
		width = hoursPerDay
	}
	start = (hour / width) * width
	end = start + width
	if end > hoursPerDay {
		end = hoursPerDay
	}
	return start, end
}

// KindOf infers rain or snow from the condition text.
func KindOf(c weather.Condition) Kind {
	if common.ContainsAnyFold(string(c), "snow", "sleet") {
		return KindSnow
	}
	return KindRain
}

// Bucketize computes per-sample bars and per-block indicators. A sample is in
// the past when it precedes pointer on currentDay; past samples are active on
// observed amount, future ones on probability.
func Bucketize(samples []forecast.EnrichedSample, pointer time.Time, currentDay string, opts Options) Result {
	res := Result{Bars: make([]Bar, len(samples))}

	for i, s := range samples {
		past := s.DayKey == currentDay && s.Timestamp.Before(pointer)
		res.Bars[i] = bar(i, s, past, opts)
	}

	type blockKey struct {
		day   string
		start int
	}
	pos := make(map[blockKey]int)
	for i, s := range samples {
		start, end := BlockRange(s.LocalHour, opts.BlockHours)
		k := blockKey{day: s.DayKey, start: start}
		bi, ok := pos[k]
		if !ok {
			bi = len(res.Blocks)
			pos[k] = bi
			res.Blocks = append(res.Blocks, Block{DayKey: s.DayKey, StartHour: start, EndHour: end})
		}
		b := &res.Blocks[bi]
		b.Indexes = append(b.Indexes, i)
		if res.Bars[i].Active {
			b.Active = true
			if b.Kind != KindSnow {
				b.Kind = res.Bars[i].Kind
			}
		}
	}

	for i := range res.Blocks {
		b := &res.Blocks[i]
		b.Anchor = b.Indexes[len(b.Indexes)/2]
	}
	return res
}

func bar(i int, s forecast.EnrichedSample, past bool, opts Options) Bar {
	b := Bar{Index: i, Past: past}

	var h float64
	if past {
		b.Active = s.PrecipitationMm > 0
		if b.Active && opts.MaxBarMm > 0 {
			h = s.PrecipitationMm / opts.MaxBarMm
		}
	} else {
		b.Active = s.PrecipitationProbability >= opts.ThresholdPct
		h = float64(s.PrecipitationProbability) / 100
	}
	if !b.Active {
		return b
	}

	h = math.Max(0, math.Min(1, h))
	if h < opts.MinBarFraction {
		h = opts.MinBarFraction
	}
	b.Kind = KindOf(s.Condition)
	b.Height = h
	b.Pixels = int(math.Round(h * float64(opts.BarPixels)))
	return b
}
