package weather

import (
	"context"
	"time"
)

// Source abstracts a weather data provider (e.g. Bright Sky, Open-Meteo).
// Implementations return errors; substituting fallbacks is the Client's job.
type Source interface {
	Name() string
	FetchCurrent(ctx context.Context, at Coordinates) (CurrentConditions, error)
	// FetchForecast returns samples in [from, to), ordered by timestamp.
	FetchForecast(ctx context.Context, at Coordinates, from, to time.Time) ([]RawHourlySample, error)
}
