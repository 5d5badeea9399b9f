// Package geo resolves free-text locations to coordinates and measures the
// distance between them.
package geo

import (
	"context"
	"math"
	"strings"
)

// earthRadiusKm is the IUGG mean Earth radius.
const earthRadiusKm = 6371.0088

// Coordinates is a WGS-84 position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Lookup is the outcome of resolving one location string. Found is false when
// the geocoder answered but knows no such place.
type Lookup struct {
	Coordinates Coordinates `json:"coordinates"`
	Found       bool        `json:"found"`
}

// NotFound is the Lookup of an unresolvable location.
var NotFound = Lookup{}

// Found wraps resolved coordinates.
func Found(c Coordinates) Lookup {
	return Lookup{Coordinates: c, Found: true}
}

// Geocoder resolves a location string. An unknown place is reported as a
// Lookup with Found unset, not as an error; errors mean the lookup itself failed.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Lookup, error)
}

// GeocoderFunc adapts a plain function to Geocoder.
type GeocoderFunc func(ctx context.Context, query string) (Lookup, error)

func (f GeocoderFunc) Geocode(ctx context.Context, query string) (Lookup, error) {
	return f(ctx, query)
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b Coordinates) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := lat2 - lat1
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push h slightly above 1 for antipodal points
	h = math.Min(1, h)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NormalizeQuery is the canonical form of a location string used for cache keys.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
