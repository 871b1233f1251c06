package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-glance/internal/precip"
	"github.com/i474232898/weather-glance/internal/weather"
)

const (
	ProviderBrightSky = "brightsky"
	ProviderOpenMeteo = "openmeteo"

	defaultConfigPath = "config.yaml"
)

var validate = validator.New()

// Address is geocoded into coordinates when none are configured.
type Address struct {
	Street  string `yaml:"street"`
	City    string `yaml:"city"`
	Country string `yaml:"country"`
}

// IsZero reports whether no address was configured.
func (a Address) IsZero() bool {
	return a.City == "" && a.Country == "" && a.Street == ""
}

type AppConfig struct {
	Coordinates weather.Coordinates `yaml:"coordinates"`
	Timezone    string              `yaml:"timezone" validate:"required"`
	Provider    string              `yaml:"provider" validate:"oneof=brightsky openmeteo"`

	// RefreshInterval controls how often the dashboard data is re-fetched.
	RefreshInterval time.Duration `yaml:"refreshInterval" validate:"gte=1m"`
	HTTPTimeout     time.Duration `yaml:"httpTimeout" validate:"gt=0"`

	// Display tuning for the precipitation row.
	PrecipProbabilityThreshold int     `yaml:"precipProbabilityThreshold" validate:"gte=0,lte=100"`
	MaxBarMm                   float64 `yaml:"maxBarMm" validate:"gt=0"`
	PrecipBlockHours           int     `yaml:"precipBlockHours" validate:"oneof=1 2 3 4 6 8 12 24"`
	PrecipMinBarFraction       float64 `yaml:"precipMinBarFraction" validate:"gte=0,lte=1"`
	PrecipBarPixels            int     `yaml:"precipBarPixels" validate:"gt=0"`

	// StaleAfter is how long the last good snapshot may be shown after failed refreshes.
	StaleAfter time.Duration `yaml:"staleAfter" validate:"gt=0"`

	Address        Address `yaml:"address"`
	GeocoderAPIKey string  `yaml:"geocoderApiKey"`

	Port string `yaml:"port" validate:"required,numeric"`
}

// Default returns the configuration used when nothing else is set.
func Default() *AppConfig {
	p := precip.DefaultOptions()
	return &AppConfig{
		Coordinates:                weather.Coordinates{Lat: 52.52, Lon: 13.405},
		Timezone:                   "Europe/Berlin",
		Provider:                   ProviderBrightSky,
		RefreshInterval:            15 * time.Minute,
		HTTPTimeout:                10 * time.Second,
		PrecipProbabilityThreshold: p.ThresholdPct,
		MaxBarMm:                   p.MaxBarMm,
		PrecipBlockHours:           p.BlockHours,
		PrecipMinBarFraction:       p.MinBarFraction,
		PrecipBarPixels:            p.BarPixels,
		StaleAfter:                 6 * time.Hour,
		Port:                       "8080",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment (including a .env file), in that order of precedence.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	if path == "" {
		path = getenvDefault("WEATHER_GLANCE_CONFIG", defaultConfigPath)
	}

	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("INFO: config file %s not found, using defaults and environment", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *AppConfig) loadEnv() error {
	var err error

	if c.Coordinates.Lat, err = getenvFloat("WEATHER_LAT", c.Coordinates.Lat); err != nil {
		return err
	}
	if c.Coordinates.Lon, err = getenvFloat("WEATHER_LON", c.Coordinates.Lon); err != nil {
		return err
	}
	c.Timezone = getenvDefault("WEATHER_TIMEZONE", c.Timezone)
	c.Provider = getenvDefault("WEATHER_PROVIDER", c.Provider)

	if c.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", c.RefreshInterval); err != nil {
		return err
	}
	if c.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	if c.StaleAfter, err = getenvDuration("STALE_AFTER", c.StaleAfter); err != nil {
		return err
	}

	c.PrecipProbabilityThreshold = getenvInt("PRECIP_PROBABILITY_THRESHOLD", c.PrecipProbabilityThreshold)
	c.PrecipBlockHours = getenvInt("PRECIP_BLOCK_HOURS", c.PrecipBlockHours)
	if c.MaxBarMm, err = getenvFloat("PRECIP_MAX_BAR_MM", c.MaxBarMm); err != nil {
		return err
	}

	c.Address.Street = getenvDefault("WEATHER_ADDRESS_STREET", c.Address.Street)
	c.Address.City = getenvDefault("WEATHER_ADDRESS_CITY", c.Address.City)
	c.Address.Country = getenvDefault("WEATHER_ADDRESS_COUNTRY", c.Address.Country)
	c.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", c.GeocoderAPIKey)

	c.Port = getenvDefault("PORT", c.Port)
	return nil
}

// NeedsGeocoding reports whether coordinates must be resolved from the address.
func (c *AppConfig) NeedsGeocoding() bool {
	return c.Coordinates.IsZero() && !c.Address.IsZero()
}

// Validate checks ranges and the presence of a usable location.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Coordinates.Lat < -90 || c.Coordinates.Lat > 90 {
		return fmt.Errorf("invalid config: latitude %f out of range", c.Coordinates.Lat)
	}
	if c.Coordinates.Lon < -180 || c.Coordinates.Lon > 180 {
		return fmt.Errorf("invalid config: longitude %f out of range", c.Coordinates.Lon)
	}
	if c.Coordinates.IsZero() && c.Address.IsZero() {
		return fmt.Errorf("invalid config: either coordinates or an address is required")
	}
	if c.NeedsGeocoding() && c.GeocoderAPIKey == "" {
		return fmt.Errorf("invalid config: geocoderApiKey is required to resolve an address")
	}
	return nil
}

// PrecipOptions returns the bucketing options derived from the config.
func (c *AppConfig) PrecipOptions() precip.Options {
	return precip.Options{
		ThresholdPct:   c.PrecipProbabilityThreshold,
		MaxBarMm:       c.MaxBarMm,
		BlockHours:     c.PrecipBlockHours,
		MinBarFraction: c.PrecipMinBarFraction,
		BarPixels:      c.PrecipBarPixels,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		log.Printf("INFO: ignoring invalid %s=%q: %v", key, v, err)
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
