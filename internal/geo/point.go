/*
Package geo
File: point.go
Description:
    Geodetic points and great-circle helpers.
    Latitude and longitude are held at a fixed number of decimals so that points
    produced by the coordinate transform compare equal regardless of float jitter.
*/

package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const (
	// Latitude/longitude decimals (~1cm at the equator).
	degreeDecimals = 7
	// Altitude decimals (cm).
	altitudeDecimals = 2
)

// GeoPoint is an immutable latitude/longitude/altitude sample.
type GeoPoint struct {
	Latitude  float64 `json:"latitude" yaml:"lat"`
	Longitude float64 `json:"longitude" yaml:"lon"`
	Altitude  float64 `json:"altitude" yaml:"alt"`
}

// UnknownPoint is returned when a coordinate cannot be placed on the globe,
// for example because its world is not supported.
var UnknownPoint = GeoPoint{Latitude: 999, Longitude: 999}

// NewGeoPoint rounds the components to the fixed precision used throughout the engine.
func NewGeoPoint(latitude, longitude, altitude float64) GeoPoint {
	return GeoPoint{
		Latitude:  round(latitude, degreeDecimals),
		Longitude: round(longitude, degreeDecimals),
		Altitude:  round(altitude, altitudeDecimals),
	}
}

// IsUnknown reports whether p lies outside the valid latitude/longitude range.
func (p GeoPoint) IsUnknown() bool {
	return math.Abs(p.Latitude) > 90 || math.Abs(p.Longitude) > 180
}

// Orb returns the point in orb's (lon, lat) order.
func (p GeoPoint) Orb() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// DistanceTo returns the great-circle distance in meters, ignoring altitude.
func (p GeoPoint) DistanceTo(q GeoPoint) float64 {
	return orbgeo.DistanceHaversine(p.Orb(), q.Orb())
}

// AltitudeDelta returns |p.Altitude - q.Altitude|.
func (p GeoPoint) AltitudeDelta(q GeoPoint) float64 {
	return math.Abs(p.Altitude - q.Altitude)
}

// Equal compares two points at the engine's fixed precision.
func (p GeoPoint) Equal(q GeoPoint) bool {
	return NewGeoPoint(p.Latitude, p.Longitude, p.Altitude) == NewGeoPoint(q.Latitude, q.Longitude, q.Altitude)
}

func (p GeoPoint) String() string {
	if p.IsUnknown() {
		return "(unknown)"
	}
	return fmt.Sprintf("(%.7f, %.7f, %.2f)", p.Latitude, p.Longitude, p.Altitude)
}

// OffsetNorth returns a point the given number of meters north of p (south if negative),
// keeping longitude and altitude.
func (p GeoPoint) OffsetNorth(meters float64) GeoPoint {
	dLat := meters / orb.EarthRadius * 180 / math.Pi
	return NewGeoPoint(p.Latitude+dLat, p.Longitude, p.Altitude)
}

func round(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
