package providers

import (
	"context"
	"errors"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-tracker/internal/weather"
)

var errNoPlace = errors.New("no address for position")

// ReverseGeocoder names device positions using the Google geocoding API.
type ReverseGeocoder struct {
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewReverseGeocoder configures the geocoding API key. The key is process
// wide in the underlying library.
func NewReverseGeocoder(apiKey string) *ReverseGeocoder {
	geocoder.ApiKey = apiKey
	return &ReverseGeocoder{reverse: geocoder.GeocodingReverse}
}

// PlaceName returns "City, State" for the position, or the formatted address
// when city or state is missing.
func (g *ReverseGeocoder) PlaceName(ctx context.Context, pos weather.Position) (string, error) {
	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)
	go func() {
		addrs, err := g.reverse(geocoder.Location{Latitude: pos.Latitude, Longitude: pos.Longitude})
		done <- result{addrs, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return "", res.err
	}
	if len(res.addrs) == 0 {
		return "", errNoPlace
	}

	a := res.addrs[0]
	if a.City != "" && a.State != "" {
		return a.City + ", " + a.State, nil
	}
	if s := strings.TrimSpace(a.FormattedAddress); s != "" {
		return s, nil
	}
	return "", errNoPlace
}
