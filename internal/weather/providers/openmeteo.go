package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-glance/internal/weather"
)

const openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

var (
	openMeteoCurrentFields = []string{"temperature_2m", "weather_code", "precipitation", "cloud_cover", "is_day"}
	openMeteoHourlyFields  = []string{"temperature_2m", "weather_code", "precipitation", "precipitation_probability", "cloud_cover", "is_day"}
)

// OpenMeteoProvider implements weather.Source for Open-Meteo.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	timezone string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(cfg HTTPClientConfig, timezone string) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  openMeteoBaseURL,
		timezone: timezone,
		httpCfg:  cfg,
		circuit:  newCircuitBreaker("openmeteo", cfg),
	}
}

// WithBaseURL points the provider at another host (used by tests).
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

type openMeteoHourly struct {
	Time                     []int64    `json:"time"`
	Temperature2m            []*float64 `json:"temperature_2m"`
	WeatherCode              []*int     `json:"weather_code"`
	Precipitation            []*float64 `json:"precipitation"`
	PrecipitationProbability []*float64 `json:"precipitation_probability"`
	CloudCover               []*float64 `json:"cloud_cover"`
	IsDay                    []*int     `json:"is_day"`
}

func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, at weather.Coordinates) (weather.CurrentConditions, error) {
	values := p.baseValues(at)
	values.Set("current", strings.Join(openMeteoCurrentFields, ","))
	values.Set("hourly", "precipitation_probability")
	values.Set("forecast_hours", "3")

	var payload struct {
		Current *struct {
			Time          int64    `json:"time"`
			Temperature2m *float64 `json:"temperature_2m"`
			WeatherCode   int      `json:"weather_code"`
			Precipitation float64  `json:"precipitation"`
			CloudCover    float64  `json:"cloud_cover"`
			IsDay         int      `json:"is_day"`
		} `json:"current"`
		Hourly openMeteoHourly `json:"hourly"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	if payload.Current == nil || payload.Current.Temperature2m == nil {
		return weather.CurrentConditions{}, fmt.Errorf("%w: missing current block", errMalformed)
	}

	cur := payload.Current
	ts := time.Unix(cur.Time, 0).UTC()
	cond, icon := mapOpenMeteoCode(cur.WeatherCode, cur.IsDay == 1)

	return weather.CurrentConditions{
		Timestamp:           ts,
		Temperature:         *cur.Temperature2m,
		Condition:           cond,
		Icon:                icon,
		PrecipitationMm:     cur.Precipitation,
		PrecipProbability30: hourlyProbabilityAt(payload.Hourly, ts.Add(30*time.Minute)),
		PrecipProbability60: hourlyProbabilityAt(payload.Hourly, ts.Add(60*time.Minute)),
		CloudCoverPct:       clampPct(cur.CloudCover),
	}, nil
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, at weather.Coordinates, from, to time.Time) ([]weather.RawHourlySample, error) {
	values := p.baseValues(at)
	values.Set("hourly", strings.Join(openMeteoHourlyFields, ","))
	values.Set("start_date", from.Format("2006-01-02"))
	// end_date is inclusive.
	values.Set("end_date", to.Add(-time.Second).Format("2006-01-02"))

	var payload struct {
		Hourly *openMeteoHourly `json:"hourly"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.Hourly == nil || len(payload.Hourly.Time) == 0 {
		return nil, fmt.Errorf("%w: missing hourly block", errMalformed)
	}

	h := payload.Hourly
	samples := make([]weather.RawHourlySample, 0, len(h.Time))
	for i, unix := range h.Time {
		ts := time.Unix(unix, 0).UTC()
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		code := -1
		if c := intAt(h.WeatherCode, i); c != nil {
			code = *c
		}
		isDay := true
		if d := intAt(h.IsDay, i); d != nil {
			isDay = *d == 1
		}
		cond, icon := mapOpenMeteoCode(code, isDay)

		samples = append(samples, weather.RawHourlySample{
			Timestamp:                ts,
			Temperature:              floatAt(h.Temperature2m, i),
			Condition:                cond,
			Icon:                     icon,
			PrecipitationMm:          value(floatAt(h.Precipitation, i)),
			PrecipitationProbability: clampPct(value(floatAt(h.PrecipitationProbability, i))),
			CloudCoverPct:            clampPct(value(floatAt(h.CloudCover, i))),
		})
	}
	return samples, nil
}

func (p *OpenMeteoProvider) baseValues(at weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", at.Lat))
	values.Set("longitude", fmt.Sprintf("%.4f", at.Lon))
	values.Set("timeformat", "unixtime")
	tz := p.timezone
	if tz == "" {
		tz = "auto"
	}
	values.Set("timezone", tz)
	return values
}

// hourlyProbabilityAt returns the probability of the hourly slot containing t,
// or nil when no slot covers t or its value is null.
func hourlyProbabilityAt(h openMeteoHourly, t time.Time) *int {
	for i, unix := range h.Time {
		start := time.Unix(unix, 0)
		if !t.Before(start) && t.Before(start.Add(time.Hour)) {
			return pctPtr(floatAt(h.PrecipitationProbability, i))
		}
	}
	return nil
}

func floatAt(xs []*float64, i int) *float64 {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}

func intAt(xs []*int, i int) *int {
	if i < 0 || i >= len(xs) {
		return nil
	}
	return xs[i]
}

// mapOpenMeteoCode maps a WMO weather code onto the closed Condition and Icon sets.
func mapOpenMeteoCode(code int, isDay bool) (weather.Condition, weather.Icon) {
	switch {
	case code == 0:
		if isDay {
			return weather.ConditionDry, weather.IconClearDay
		}
		return weather.ConditionDry, weather.IconClearNight
	case code == 1 || code == 2:
		if isDay {
			return weather.ConditionDry, weather.IconPartlyCloudyDay
		}
		return weather.ConditionDry, weather.IconPartlyCloudyNight
	case code == 3:
		return weather.ConditionDry, weather.IconCloudy
	case code == 45 || code == 48:
		return weather.ConditionFog, weather.IconFog
	case code == 56 || code == 57 || code == 66 || code == 67:
		return weather.ConditionSleet, weather.IconSleet
	case (code >= 51 && code <= 55) || (code >= 61 && code <= 65) || (code >= 80 && code <= 82):
		return weather.ConditionRain, weather.IconRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.ConditionSnow, weather.IconSnow
	case code == 95:
		return weather.ConditionThunderstorm, weather.IconThunderstorm
	case code == 96 || code == 99:
		return weather.ConditionHail, weather.IconHail
	default:
		return weather.ConditionUnknown, weather.IconUnknown
	}
}
