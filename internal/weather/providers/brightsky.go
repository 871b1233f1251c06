package providers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-glance/internal/weather"
)

const brightSkyBaseURL = "https://api.brightsky.dev"

// BrightSkyProvider implements weather.Source for the Bright Sky API (DWD data).
// No API key is required.
type BrightSkyProvider struct {
	name     string
	baseURL  string
	timezone string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewBrightSkyProvider(cfg HTTPClientConfig, timezone string) *BrightSkyProvider {
	return &BrightSkyProvider{
		name:     "brightsky",
		baseURL:  brightSkyBaseURL,
		timezone: timezone,
		httpCfg:  cfg,
		circuit:  newCircuitBreaker("brightsky", cfg),
	}
}

// WithBaseURL points the provider at another host (used by tests).
func (p *BrightSkyProvider) WithBaseURL(u string) *BrightSkyProvider {
	p.baseURL = strings.TrimRight(u, "/")
	return p
}

func (p *BrightSkyProvider) Name() string {
	return p.name
}

type brightSkyRecord struct {
	Timestamp                string   `json:"timestamp"`
	Temperature              *float64 `json:"temperature"`
	Condition                *string  `json:"condition"`
	Icon                     *string  `json:"icon"`
	Precipitation            *float64 `json:"precipitation"`
	Precipitation60          *float64 `json:"precipitation_60"`
	PrecipitationProbability *float64 `json:"precipitation_probability"`
	PrecipProbability30      *float64 `json:"precipitation_probability_30"`
	PrecipProbability60      *float64 `json:"precipitation_probability_60"`
	CloudCover               *float64 `json:"cloud_cover"`
}

func (p *BrightSkyProvider) FetchCurrent(ctx context.Context, at weather.Coordinates) (weather.CurrentConditions, error) {
	values := p.baseValues(at)
	u := fmt.Sprintf("%s/current_weather?%s", p.baseURL, values.Encode())

	var payload struct {
		Weather *brightSkyRecord `json:"weather"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	if payload.Weather == nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: missing weather object", errMalformed)
	}

	rec := payload.Weather
	if rec.Temperature == nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: missing temperature", errMalformed)
	}
	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: timestamp %q: %v", errMalformed, rec.Timestamp, err)
	}

	cur := weather.CurrentConditions{
		Timestamp:           ts.UTC(),
		Temperature:         *rec.Temperature,
		Condition:           mapBrightSkyCondition(rec.Condition),
		Icon:                mapBrightSkyIcon(rec.Icon),
		PrecipitationMm:     value(rec.Precipitation60),
		PrecipProbability30: pctPtr(rec.PrecipProbability30),
		PrecipProbability60: pctPtr(rec.PrecipProbability60),
		CloudCoverPct:       clampPct(value(rec.CloudCover)),
	}
	if cur.PrecipProbability30 == nil || cur.PrecipProbability60 == nil {
		p.lookaheadFromHourly(ctx, at, &cur)
	}
	return cur, nil
}

// lookaheadFromHourly fills missing 30/60 minute probabilities from the hourly
// forecast slots covering those instants. current_weather usually omits them.
// On failure they stay nil so the reading shows them as unknown.
func (p *BrightSkyProvider) lookaheadFromHourly(ctx context.Context, at weather.Coordinates, cur *weather.CurrentConditions) {
	from := cur.Timestamp.Truncate(time.Hour)
	records, err := p.fetchRecords(ctx, at, from, from.Add(3*time.Hour))
	if err != nil {
		log.Printf("ERROR: brightsky: lookahead probabilities unavailable: %v", err)
		return
	}

	slot := func(t time.Time) *int {
		for _, rec := range records {
			start, err := time.Parse(time.RFC3339, rec.Timestamp)
			if err != nil {
				continue
			}
			if !t.Before(start) && t.Before(start.Add(time.Hour)) {
				return pctPtr(rec.PrecipitationProbability)
			}
		}
		return nil
	}
	if cur.PrecipProbability30 == nil {
		cur.PrecipProbability30 = slot(cur.Timestamp.Add(30 * time.Minute))
	}
	if cur.PrecipProbability60 == nil {
		cur.PrecipProbability60 = slot(cur.Timestamp.Add(60 * time.Minute))
	}
}

func (p *BrightSkyProvider) fetchRecords(ctx context.Context, at weather.Coordinates, from, to time.Time) ([]brightSkyRecord, error) {
	values := p.baseValues(at)
	values.Set("date", from.Format(time.RFC3339))
	values.Set("last_date", to.Format(time.RFC3339))
	u := fmt.Sprintf("%s/weather?%s", p.baseURL, values.Encode())

	var payload struct {
		Weather []brightSkyRecord `json:"weather"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, err
	}
	if len(payload.Weather) == 0 {
		return nil, fmt.Errorf("%w: empty weather array", errMalformed)
	}
	return payload.Weather, nil
}

func (p *BrightSkyProvider) FetchForecast(ctx context.Context, at weather.Coordinates, from, to time.Time) ([]weather.RawHourlySample, error) {
	records, err := p.fetchRecords(ctx, at, from, to)
	if err != nil {
		return nil, err
	}

	samples := make([]weather.RawHourlySample, 0, len(records))
	for _, rec := range records {
		ts, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp %q: %v", errMalformed, rec.Timestamp, err)
		}
		// last_date is exclusive on our side.
		if !ts.Before(to) {
			continue
		}
		samples = append(samples, weather.RawHourlySample{
			Timestamp:                ts.UTC(),
			Temperature:              rec.Temperature,
			Condition:                mapBrightSkyCondition(rec.Condition),
			Icon:                     mapBrightSkyIcon(rec.Icon),
			PrecipitationMm:          value(rec.Precipitation),
			PrecipitationProbability: clampPct(value(rec.PrecipitationProbability)),
			CloudCoverPct:            clampPct(value(rec.CloudCover)),
		})
	}
	return samples, nil
}

func (p *BrightSkyProvider) baseValues(at weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%.4f", at.Lat))
	values.Set("lon", fmt.Sprintf("%.4f", at.Lon))
	if p.timezone != "" {
		values.Set("tz", p.timezone)
	}
	return values
}

func mapBrightSkyCondition(c *string) weather.Condition {
	if c == nil {
		return weather.ConditionUnknown
	}
	return weather.ParseCondition(strings.ToLower(*c))
}

func mapBrightSkyIcon(i *string) weather.Icon {
	if i == nil {
		return weather.IconUnknown
	}
	return weather.ParseIcon(strings.ToLower(*i))
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
