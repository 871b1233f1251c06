// Package geocoding resolves a postal address into coordinates once at
// startup, for deployments configured with an address instead of lat/lon.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-glance/internal/weather"
)

var (
	errNoAPIKey   = errors.New("geocoding requires an API key")
	errNoAddress  = errors.New("address has no city or country")
	errNoLocation = errors.New("address resolved to no location")
)

// Address is the part of a postal address used for the lookup.
type Address struct {
	Street  string
	City    string
	Country string
}

func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Resolver turns an address into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, addr Address) (weather.Coordinates, error)
}

type lookupFunc func(geocoder.Address) (geocoder.Location, error)

// GoogleResolver uses the Google Geocoding API through kelvins/geocoder.
type GoogleResolver struct {
	apiKey string
	lookup lookupFunc
}

// NewGoogleResolver creates a resolver authenticated with apiKey.
func NewGoogleResolver(apiKey string) *GoogleResolver {
	return &GoogleResolver{apiKey: apiKey, lookup: geocoder.Geocoding}
}

// Resolve looks addr up. The library call cannot be cancelled; ctx only bounds
// how long Resolve waits for it.
func (r *GoogleResolver) Resolve(ctx context.Context, addr Address) (weather.Coordinates, error) {
	if r.apiKey == "" {
		return weather.Coordinates{}, errNoAPIKey
	}
	if addr.City == "" && addr.Country == "" {
		return weather.Coordinates{}, errNoAddress
	}

	// The library reads its key from a package variable.
	geocoder.ApiKey = r.apiKey

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := r.lookup(geocoder.Address{
			Street:  addr.Street,
			City:    addr.City,
			Country: addr.Country,
		})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, fmt.Errorf("geocode %q: %w", addr, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return weather.Coordinates{}, fmt.Errorf("geocode %q: %w", addr, res.err)
		}
		c := weather.Coordinates{Lat: res.loc.Latitude, Lon: res.loc.Longitude}
		if c.IsZero() {
			return weather.Coordinates{}, fmt.Errorf("geocode %q: %w", addr, errNoLocation)
		}
		log.Printf("INFO: geocoded %q to %.4f,%.4f", addr, c.Lat, c.Lon)
		return c, nil
	}
}
