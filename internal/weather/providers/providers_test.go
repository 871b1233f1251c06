package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/weather-glance/internal/weather"
)

var berlin = weather.Coordinates{Lat: 52.52, Lon: 13.405}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testHTTPConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig(&http.Client{Timeout: 2 * time.Second})
	cfg.FailureThreshold = 2
	cfg.OpenTimeout = time.Minute
	return cfg
}

// pct reads an optional probability, -1 standing for unknown.
func pct(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func TestBrightSkyFetchCurrent(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/current_weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "52.5200" || q.Get("lon") != "13.4050" || q.Get("tz") != "Europe/Berlin" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"weather":{"timestamp":"2024-05-14T11:30:00+02:00","temperature":17.4,
			"condition":"rain","icon":"rain","precipitation_60":0.8,
			"precipitation_probability_30":40,"precipitation_probability_60":65,"cloud_cover":88}}`))
	})

	p := NewBrightSkyProvider(testHTTPConfig(), "Europe/Berlin").WithBaseURL(srv.URL)
	cur, err := p.FetchCurrent(context.Background(), berlin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cur.Timestamp.Equal(time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", cur.Timestamp)
	}
	if cur.Temperature != 17.4 || cur.Condition != weather.ConditionRain || cur.Icon != weather.IconRain {
		t.Fatalf("unexpected reading %+v", cur)
	}
	if cur.PrecipitationMm != 0.8 || pct(cur.PrecipProbability30) != 40 || pct(cur.PrecipProbability60) != 65 || cur.CloudCoverPct != 88 {
		t.Fatalf("unexpected precipitation fields %+v", cur)
	}
}

func TestBrightSkyFetchCurrentDerivesLookaheadFromHourly(t *testing.T) {
	var hourlyQuery string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/current_weather":
			w.Write([]byte(`{"weather":{"timestamp":"2024-05-14T11:15:00+02:00","temperature":17.4,
				"condition":"dry","icon":"cloudy","cloud_cover":70}}`))
		case "/weather":
			hourlyQuery = r.URL.RawQuery
			w.Write([]byte(`{"weather":[
				{"timestamp":"2024-05-14T11:00:00+02:00","temperature":17,"precipitation_probability":20},
				{"timestamp":"2024-05-14T12:00:00+02:00","temperature":18,"precipitation_probability":45},
				{"timestamp":"2024-05-14T13:00:00+02:00","temperature":18,"precipitation_probability":70}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	p := NewBrightSkyProvider(testHTTPConfig(), "Europe/Berlin").WithBaseURL(srv.URL)
	cur, err := p.FetchCurrent(context.Background(), berlin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hourlyQuery == "" {
		t.Fatalf("expected an hourly request for the missing probabilities")
	}
	// 09:15Z + 30m falls in the 09:00Z slot, + 60m in the 10:00Z slot.
	if pct(cur.PrecipProbability30) != 20 || pct(cur.PrecipProbability60) != 45 {
		t.Fatalf("unexpected lookahead probabilities %d/%d", pct(cur.PrecipProbability30), pct(cur.PrecipProbability60))
	}
}

func TestBrightSkyLookaheadUnknownWhenHourlyFails(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/weather" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"weather":{"timestamp":"2024-05-14T11:15:00+02:00","temperature":17.4,"condition":"dry","icon":"cloudy"}}`))
	})

	p := NewBrightSkyProvider(testHTTPConfig(), "Europe/Berlin").WithBaseURL(srv.URL)
	cur, err := p.FetchCurrent(context.Background(), berlin)
	if err != nil {
		t.Fatalf("current reading must survive a failed hourly lookup: %v", err)
	}
	if cur.Temperature != 17.4 {
		t.Fatalf("unexpected reading %+v", cur)
	}
	if cur.PrecipProbability30 != nil || cur.PrecipProbability60 != nil {
		t.Fatalf("expected unknown probabilities, got %d/%d", pct(cur.PrecipProbability30), pct(cur.PrecipProbability60))
	}
}

func TestBrightSkyFetchCurrentMissingWeather(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sources":[]}`))
	})

	p := NewBrightSkyProvider(testHTTPConfig(), "Europe/Berlin").WithBaseURL(srv.URL)
	if _, err := p.FetchCurrent(context.Background(), berlin); !errors.Is(err, errMalformed) {
		t.Fatalf("expected errMalformed, got %v", err)
	}
}

func TestBrightSkyFetchForecast(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("date") == "" || r.URL.Query().Get("last_date") == "" {
			t.Errorf("missing date range: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"weather":[
			{"timestamp":"2024-05-14T00:00:00+02:00","temperature":11.0,"condition":"dry","icon":"clear-night","precipitation":0,"precipitation_probability":null,"cloud_cover":0},
			{"timestamp":"2024-05-14T01:00:00+02:00","temperature":null,"condition":"snow","icon":"snow","precipitation":1.2,"precipitation_probability":70,"cloud_cover":100},
			{"timestamp":"2024-05-14T02:00:00+02:00","temperature":9.5,"condition":"volcanic","icon":"weird","precipitation":0,"precipitation_probability":5,"cloud_cover":50},
			{"timestamp":"2024-05-18T00:00:00+02:00","temperature":9.5,"condition":"dry","icon":"cloudy","precipitation":0,"precipitation_probability":5,"cloud_cover":50}
		]}`))
	})

	loc, _ := time.LoadLocation("Europe/Berlin")
	from := time.Date(2024, 5, 14, 0, 0, 0, 0, loc)
	to := time.Date(2024, 5, 18, 0, 0, 0, 0, loc)

	p := NewBrightSkyProvider(testHTTPConfig(), "Europe/Berlin").WithBaseURL(srv.URL)
	samples, err := p.FetchForecast(context.Background(), berlin, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples inside the window, got %d", len(samples))
	}
	if samples[1].Temperature != nil {
		t.Fatalf("expected null temperature to stay nil")
	}
	if samples[1].Condition != weather.ConditionSnow || samples[1].PrecipitationProbability != 70 {
		t.Fatalf("unexpected sample %+v", samples[1])
	}
	if samples[0].PrecipitationProbability != 0 {
		t.Fatalf("expected null probability to map to 0")
	}
	if samples[2].Condition != weather.ConditionUnknown || samples[2].Icon != weather.IconUnknown {
		t.Fatalf("expected unmapped vocabulary to become unknown, got %+v", samples[2])
	}
}

func TestBrightSkyFetchForecastEmptyArray(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"weather":[]}`))
	})

	p := NewBrightSkyProvider(testHTTPConfig(), "UTC").WithBaseURL(srv.URL)
	_, err := p.FetchForecast(context.Background(), berlin, time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, errMalformed) {
		t.Fatalf("expected errMalformed, got %v", err)
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	p := NewBrightSkyProvider(testHTTPConfig(), "UTC").WithBaseURL(srv.URL)
	for i := 0; i < 2; i++ {
		if _, err := p.FetchCurrent(context.Background(), berlin); !errors.Is(err, errServerError) {
			t.Fatalf("attempt %d: expected errServerError, got %v", i, err)
		}
	}

	_, err := p.FetchCurrent(context.Background(), berlin)
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected errCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected open circuit to short-circuit the request, server saw %d calls", calls)
	}
}

func TestUnexpectedStatusIsError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	p := NewOpenMeteoProvider(testHTTPConfig(), "UTC").WithBaseURL(srv.URL)
	if _, err := p.FetchCurrent(context.Background(), berlin); !errors.Is(err, errUnexpected) {
		t.Fatalf("expected errUnexpected, got %v", err)
	}
}

func TestOpenMeteoFetchCurrent(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("timeformat") != "unixtime" || q.Get("current") == "" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		// 1715677200 = 2024-05-14T09:00:00Z
		w.Write([]byte(`{"current":{"time":1715677200,"temperature_2m":14.2,"weather_code":61,"precipitation":0.4,"cloud_cover":90,"is_day":1},
			"hourly":{"time":[1715677200,1715680800,1715684400],"precipitation_probability":[30,55,80]}}`))
	})

	p := NewOpenMeteoProvider(testHTTPConfig(), "Europe/Berlin").WithBaseURL(srv.URL)
	cur, err := p.FetchCurrent(context.Background(), berlin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Condition != weather.ConditionRain || cur.Icon != weather.IconRain {
		t.Fatalf("unexpected condition %+v", cur)
	}
	if pct(cur.PrecipProbability30) != 30 || pct(cur.PrecipProbability60) != 55 {
		t.Fatalf("unexpected lookahead probabilities %d/%d", pct(cur.PrecipProbability30), pct(cur.PrecipProbability60))
	}
}

func TestOpenMeteoLookaheadBeyondHourlyIsUnknown(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		// One hourly slot only: +30m is covered, +60m is not.
		w.Write([]byte(`{"current":{"time":1715677200,"temperature_2m":14.2,"weather_code":3,"cloud_cover":90,"is_day":1},
			"hourly":{"time":[1715677200],"precipitation_probability":[30]}}`))
	})

	p := NewOpenMeteoProvider(testHTTPConfig(), "UTC").WithBaseURL(srv.URL)
	cur, err := p.FetchCurrent(context.Background(), berlin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pct(cur.PrecipProbability30) != 30 {
		t.Fatalf("expected 30%% at +30m, got %d", pct(cur.PrecipProbability30))
	}
	if cur.PrecipProbability60 != nil {
		t.Fatalf("expected unknown probability at +60m, got %d", *cur.PrecipProbability60)
	}
}

func TestOpenMeteoFetchForecast(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("start_date") != "2024-05-14" || q.Get("end_date") != "2024-05-17" {
			t.Errorf("unexpected date range %s..%s", q.Get("start_date"), q.Get("end_date"))
		}
		w.Write([]byte(`{"hourly":{
			"time":[1715637600,1715641200],
			"temperature_2m":[10.5,null],
			"weather_code":[71,0],
			"precipitation":[0.3,0],
			"precipitation_probability":[60,null],
			"cloud_cover":[100,0],
			"is_day":[0,0]}}`))
	})

	loc, _ := time.LoadLocation("Europe/Berlin")
	from := time.Date(2024, 5, 14, 0, 0, 0, 0, loc)
	to := time.Date(2024, 5, 18, 0, 0, 0, 0, loc)

	p := NewOpenMeteoProvider(testHTTPConfig(), "Europe/Berlin").WithBaseURL(srv.URL)
	samples, err := p.FetchForecast(context.Background(), berlin, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Condition != weather.ConditionSnow || *samples[0].Temperature != 10.5 {
		t.Fatalf("unexpected first sample %+v", samples[0])
	}
	if samples[1].Temperature != nil || samples[1].Icon != weather.IconClearNight {
		t.Fatalf("unexpected second sample %+v", samples[1])
	}
}

func TestMapOpenMeteoCode(t *testing.T) {
	tests := []struct {
		code int
		day  bool
		cond weather.Condition
		icon weather.Icon
	}{
		{0, true, weather.ConditionDry, weather.IconClearDay},
		{2, false, weather.ConditionDry, weather.IconPartlyCloudyNight},
		{45, true, weather.ConditionFog, weather.IconFog},
		{66, true, weather.ConditionSleet, weather.IconSleet},
		{81, true, weather.ConditionRain, weather.IconRain},
		{86, true, weather.ConditionSnow, weather.IconSnow},
		{99, true, weather.ConditionHail, weather.IconHail},
		{42, true, weather.ConditionUnknown, weather.IconUnknown},
	}

	for _, tt := range tests {
		cond, icon := mapOpenMeteoCode(tt.code, tt.day)
		if cond != tt.cond || icon != tt.icon {
			t.Errorf("code %d: got %s/%s, want %s/%s", tt.code, cond, icon, tt.cond, tt.icon)
		}
	}
}
