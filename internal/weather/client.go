package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/weather-glance/internal/localtime"
	"github.com/i474232898/weather-glance/internal/metrics"
)

// ForecastDays is the number of local days requested: today through today+3.
const ForecastDays = 4

var (
	errNoSource   = errors.New("no weather source configured")
	errEmptyRange = errors.New("forecast response contained no samples")
)

// Client fetches current conditions and the hourly forecast for a fixed
// location. It fails closed: every call returns a value that is safe to render,
// and the error only explains why a fallback was substituted.
type Client struct {
	source Source
	at     Coordinates
	clock  *localtime.Clock
	now    func() time.Time
}

// NewClient creates a Client for a single location.
func NewClient(source Source, at Coordinates, clock *localtime.Clock) *Client {
	return &Client{
		source: source,
		at:     at,
		clock:  clock,
		now:    time.Now,
	}
}

// WithNow overrides the clock used for fallbacks and the forecast window.
func (c *Client) WithNow(now func() time.Time) *Client {
	c.now = now
	return c
}

// SourceName returns the configured provider name.
func (c *Client) SourceName() string {
	if c.source == nil {
		return ""
	}
	return c.source.Name()
}

// FetchCurrent returns the current conditions, or FallbackCurrent on failure.
func (c *Client) FetchCurrent(ctx context.Context) (CurrentConditions, error) {
	start := time.Now()
	cur, err := c.fetchCurrent(ctx)
	metrics.RecordFetch("current", time.Since(start), err)
	if err != nil {
		log.Printf("ERROR: current conditions fetch from %s failed: %v", c.SourceName(), err)
		return FallbackCurrent(c.now()), fmt.Errorf("current conditions: %w", err)
	}
	return cur, nil
}

func (c *Client) fetchCurrent(ctx context.Context) (CurrentConditions, error) {
	if c.source == nil {
		return CurrentConditions{}, errNoSource
	}
	cur, err := c.source.FetchCurrent(ctx, c.at)
	if err != nil {
		return CurrentConditions{}, err
	}
	if cur.Timestamp.IsZero() {
		cur.Timestamp = c.now().UTC()
	}
	// A provider must never be able to produce the fallback marker.
	if cur.Condition.IsError() || cur.Condition == "" {
		cur.Condition = ConditionUnknown
	}
	if cur.Icon == "" || cur.Icon == IconAlert {
		cur.Icon = IconUnknown
	}
	return cur, nil
}

// FetchForecast returns hourly samples for local today through today+3, or
// FallbackForecast on failure. The result is never empty.
func (c *Client) FetchForecast(ctx context.Context) ([]RawHourlySample, error) {
	start := time.Now()
	samples, err := c.fetchForecast(ctx)
	metrics.RecordFetch("forecast", time.Since(start), err)
	if err != nil {
		log.Printf("ERROR: forecast fetch from %s failed: %v", c.SourceName(), err)
		return FallbackForecast(c.now()), fmt.Errorf("forecast: %w", err)
	}
	return samples, nil
}

func (c *Client) fetchForecast(ctx context.Context) ([]RawHourlySample, error) {
	if c.source == nil {
		return nil, errNoSource
	}
	now := c.now()
	from := c.clock.StartOfDay(now)
	to := c.clock.AddDays(now, ForecastDays)

	samples, err := c.source.FetchForecast(ctx, c.at, from, to)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errEmptyRange
	}
	for i := range samples {
		samples[i].Timestamp = samples[i].Timestamp.UTC()
		if samples[i].Condition.IsError() || samples[i].Condition == "" {
			samples[i].Condition = ConditionUnknown
		}
		if samples[i].Icon == "" || samples[i].Icon == IconAlert {
			samples[i].Icon = IconUnknown
		}
	}
	return samples, nil
}
