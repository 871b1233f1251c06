// Package forecast turns the raw hourly series into chart-ready samples:
// per-day extrema, day sections, axis ticks and the "now" pointer.
package forecast

import (
	"time"

	"github.com/i474232898/weather-glance/internal/localtime"
	"github.com/i474232898/weather-glance/internal/weather"
)

// DaySection is the coarse part of a local day a sample falls into.
type DaySection string

const (
	SectionMorning   DaySection = "morning"
	SectionAfternoon DaySection = "afternoon"
	SectionEvening   DaySection = "evening"
	SectionNight     DaySection = "night"
)

// HourTickHours are the local hours that get an intra-day grid line.
var HourTickHours = []int{0, 6, 12, 18}

// EnrichedSample is a raw sample annotated for display.
type EnrichedSample struct {
	weather.RawHourlySample

	DayKey     string     `json:"dayKey"`
	DayLabel   string     `json:"dayLabel"`
	LocalHour  int        `json:"localHour"`
	DaySection DaySection `json:"daySection"`
	IsDaytime  bool       `json:"isDaytime"`
	IsDayHigh  bool       `json:"isDayHigh"`
	IsDayLow   bool       `json:"isDayLow"`
	IsPast     bool       `json:"isPast"`
}

// Tick marks a sample used as an axis label.
type Tick struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
}

// DaySummary holds the extrema of one local day. High and Low are nil when
// every temperature of the day is null.
type DaySummary struct {
	DayKey    string   `json:"dayKey"`
	DayLabel  string   `json:"dayLabel"`
	First     int      `json:"first"`
	Count     int      `json:"count"`
	High      *float64 `json:"high,omitempty"`
	Low       *float64 `json:"low,omitempty"`
	HighIndex int      `json:"highIndex"`
	LowIndex  int      `json:"lowIndex"`
}

// Result is the output of Enrich.
type Result struct {
	Samples []EnrichedSample `json:"samples"`

	// Now is the instant the series was enriched against.
	Now time.Time `json:"now"`
	// Pointer is the timestamp of today's sample closest to Now, or Now
	// itself when today has no samples. It is zero for an empty series.
	Pointer time.Time `json:"pointer"`
	// Anchored reports whether Pointer belongs to a real sample.
	Anchored     bool `json:"anchored"`
	PointerIndex int  `json:"pointerIndex"`

	TodayKey  string       `json:"todayKey"`
	DayTicks  []Tick       `json:"dayTicks"`
	HourTicks []Tick       `json:"hourTicks"`
	Days      []DaySummary `json:"days"`
}

// Empty reports whether there is nothing to chart.
func (r Result) Empty() bool {
	return len(r.Samples) == 0
}

// SectionForHour maps a local hour to its day section: morning [5,12),
// afternoon [12,18), evening [18,22), night otherwise.
func SectionForHour(hour int) DaySection {
	switch {
	case hour >= 5 && hour < 12:
		return SectionMorning
	case hour >= 12 && hour < 18:
		return SectionAfternoon
	case hour >= 18 && hour < 22:
		return SectionEvening
	default:
		return SectionNight
	}
}

// Enrich annotates samples, which must be ordered by ascending timestamp. The
// order is preserved. An empty input yields an empty Result with no pointer.
func Enrich(samples []weather.RawHourlySample, now time.Time, clock *localtime.Clock) Result {
	res := Result{
		Now:          now,
		PointerIndex: -1,
		TodayKey:     clock.DayKey(now),
	}
	if len(samples) == 0 {
		return res
	}

	res.Samples = make([]EnrichedSample, len(samples))
	for i, s := range samples {
		hour := clock.LocalHour(s.Timestamp)
		res.Samples[i] = EnrichedSample{
			RawHourlySample: s,
			DayKey:          clock.DayKey(s.Timestamp),
			DayLabel:        clock.DayLabel(s.Timestamp),
			LocalHour:       hour,
			DaySection:      SectionForHour(hour),
			IsDaytime:       clock.IsDaytime(s.Timestamp),
		}
	}

	res.Days = summarizeDays(res.Samples)
	flagExtrema(res.Samples, res.Days)

	res.PointerIndex = closestToday(res.Samples, res.TodayKey, now)
	if res.PointerIndex >= 0 {
		res.Pointer = res.Samples[res.PointerIndex].Timestamp
		res.Anchored = true
	} else {
		res.Pointer = now
	}
	for i := range res.Samples {
		s := &res.Samples[i]
		s.IsPast = s.DayKey == res.TodayKey && s.Timestamp.Before(res.Pointer)
	}

	res.DayTicks, res.HourTicks = ticks(res.Samples, res.Days, clock)
	return res
}

// summarizeDays groups samples by local day in order of first appearance and
// finds each day's extrema, ignoring null temperatures. Ties keep the earliest
// sample because only a strictly greater (or smaller) value replaces it.
func summarizeDays(samples []EnrichedSample) []DaySummary {
	var days []DaySummary
	pos := make(map[string]int)

	for i, s := range samples {
		di, ok := pos[s.DayKey]
		if !ok {
			di = len(days)
			pos[s.DayKey] = di
			days = append(days, DaySummary{
				DayKey:    s.DayKey,
				DayLabel:  s.DayLabel,
				First:     i,
				HighIndex: -1,
				LowIndex:  -1,
			})
		}
		d := &days[di]
		d.Count++

		if s.Temperature == nil {
			continue
		}
		t := *s.Temperature
		if d.High == nil || t > *d.High {
			d.High = weather.Float(t)
			d.HighIndex = i
		}
		if d.Low == nil || t < *d.Low {
			d.Low = weather.Float(t)
			d.LowIndex = i
		}
	}
	return days
}

// flagExtrema sets IsDayHigh/IsDayLow on exactly one sample per day that has
// at least one temperature.
func flagExtrema(samples []EnrichedSample, days []DaySummary) {
	for _, d := range days {
		if d.HighIndex >= 0 {
			samples[d.HighIndex].IsDayHigh = true
		}
		if d.LowIndex >= 0 {
			samples[d.LowIndex].IsDayLow = true
		}
	}
}

// closestToday returns the index of the sample of today closest to now, or -1.
// On equal distance the earlier sample wins.
func closestToday(samples []EnrichedSample, todayKey string, now time.Time) int {
	best := -1
	var bestDiff time.Duration
	for i, s := range samples {
		if s.DayKey != todayKey {
			continue
		}
		diff := s.Timestamp.Sub(now)
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

func ticks(samples []EnrichedSample, days []DaySummary, clock *localtime.Clock) (dayTicks, hourTicks []Tick) {
	dayTicks = make([]Tick, 0, len(days))
	for _, d := range days {
		s := samples[d.First]
		dayTicks = append(dayTicks, Tick{Index: d.First, Timestamp: s.Timestamp, Label: d.DayLabel})
	}

	for i, s := range samples {
		if !isTickHour(s.LocalHour) {
			continue
		}
		hourTicks = append(hourTicks, Tick{Index: i, Timestamp: s.Timestamp, Label: clock.HourLabel(s.Timestamp)})
	}
	return dayTicks, hourTicks
}

func isTickHour(h int) bool {
	for _, t := range HourTickHours {
		if h == t {
			return true
		}
	}
	return false
}
