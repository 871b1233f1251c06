package dashboard

import (
	"time"

	"github.com/i474232898/weather-glance/internal/forecast"
	"github.com/i474232898/weather-glance/internal/localtime"
	"github.com/i474232898/weather-glance/internal/precip"
	"github.com/i474232898/weather-glance/internal/weather"
)

// Snapshot is everything one refresh cycle produced, ready for presentation.
type Snapshot struct {
	CycleID   string    `json:"cycleId"`
	FetchedAt time.Time `json:"fetchedAt"`

	Current  weather.CurrentConditions `json:"current"`
	Forecast forecast.Result           `json:"forecast"`
	Precip   precip.Result             `json:"precip"`

	// Degraded is set when either part is a fallback record.
	Degraded bool `json:"degraded"`
}

// StoredAt implements store.Timestamped.
func (s Snapshot) StoredAt() time.Time {
	return s.FetchedAt
}

// BuildSnapshot runs the enrichment and bucketing pipeline over one cycle's
// fetch results. It is pure: the same inputs give the same snapshot.
func BuildSnapshot(cycleID string, now time.Time, current weather.CurrentConditions, samples []weather.RawHourlySample,
	clock *localtime.Clock, opts precip.Options,
) Snapshot {
	fc := forecast.Enrich(samples, now, clock)
	return Snapshot{
		CycleID:   cycleID,
		FetchedAt: now,
		Current:   current,
		Forecast:  fc,
		Precip:    precip.Bucketize(fc.Samples, fc.Pointer, fc.TodayKey, opts),
		Degraded:  current.IsFallback() || weather.IsFallbackForecast(samples),
	}
}

// Rebucket returns a copy of s with the precipitation row recomputed using opts.
func (s Snapshot) Rebucket(opts precip.Options) Snapshot {
	s.Precip = precip.Bucketize(s.Forecast.Samples, s.Forecast.Pointer, s.Forecast.TodayKey, opts)
	return s
}
