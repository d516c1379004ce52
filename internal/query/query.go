package query

import (
	"fmt"
	"strings"
)

// Kind discriminates the two query shapes. Exactly one shape is populated
// per Query; never both.
type Kind int

const (
	// ByCity looks a location up by name.
	ByCity Kind = iota
	// ByCoord looks a location up by latitude/longitude.
	ByCoord
)

// Query is a user-specified location, by city name or by coordinates.
// Immutable once constructed; build one with City or Coord.
type Query struct {
	kind Kind
	city string
	lat  float64
	lon  float64
}

// City returns a city-name query.
func City(name string) Query {
	return Query{kind: ByCity, city: name}
}

// Coord returns a coordinate query.
func Coord(lat, lon float64) Query {
	return Query{kind: ByCoord, lat: lat, lon: lon}
}

// Kind reports which shape this query carries.
func (q Query) Kind() Kind { return q.kind }

// CityName returns the city name for ByCity queries, "" otherwise.
func (q Query) CityName() string { return q.city }

// LatLon returns the coordinates for ByCoord queries, zeros otherwise.
func (q Query) LatLon() (float64, float64) { return q.lat, q.lon }

// Key derives the canonical cache key. City names are trimmed and lowercased;
// coordinates are rounded to 4 fractional digits (~11 m), so nearby coordinate
// queries collide intentionally. A NaN coordinate formats as the literal "NaN"
// in the key; that degenerate key is accepted as-is rather than rejected.
func (q Query) Key() string {
	if q.kind == ByCoord {
		return fmt.Sprintf("coord:%.4f,%.4f", q.lat, q.lon)
	}
	return "city:" + strings.ToLower(strings.TrimSpace(q.city))
}

// String describes the query for logs.
func (q Query) String() string {
	if q.kind == ByCoord {
		return fmt.Sprintf("(%.4f, %.4f)", q.lat, q.lon)
	}
	return q.city
}
