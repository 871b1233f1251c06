package weather

import "time"

// FallbackForecastHours is the length of the synthetic forecast returned when
// the forecast fetch fails.
const FallbackForecastHours = 24

// FallbackCurrent is substituted when the current-conditions fetch fails. The
// zero temperature is only distinguishable from a real 0°C reading by the
// ConditionError marker.
func FallbackCurrent(now time.Time) CurrentConditions {
	return CurrentConditions{
		Timestamp:   now.UTC(),
		Temperature: 0,
		Condition:   ConditionError,
		Icon:        IconAlert,
	}
}

// FallbackForecast is substituted when the forecast fetch fails: hourly
// samples starting at now, all carrying ConditionError, so the chart has
// something to draw.
func FallbackForecast(now time.Time) []RawHourlySample {
	samples := make([]RawHourlySample, 0, FallbackForecastHours)
	start := now.UTC()
	for i := 0; i < FallbackForecastHours; i++ {
		samples = append(samples, RawHourlySample{
			Timestamp:                start.Add(time.Duration(i) * time.Hour),
			Temperature:              Float(0),
			Condition:                ConditionError,
			Icon:                     IconAlert,
			PrecipitationProbability: 0,
		})
	}
	return samples
}

// IsFallbackForecast reports whether samples came from FallbackForecast.
func IsFallbackForecast(samples []RawHourlySample) bool {
	if len(samples) == 0 {
		return false
	}
	for _, s := range samples {
		if !s.Condition.IsError() {
			return false
		}
	}
	return true
}
