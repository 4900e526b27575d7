/*
Package geo
File: world.go
Description:
    Per-world affine transform between game-engine coordinates and geodetic points.

    Every world is a row in the worlds table: the latitude/longitude origin offsets
    (engine-space centimeters), the centimeters-per-degree scale of each axis and
    whether the longitude axis runs opposite to the engine's Y axis.
    Adding a world is a data change only.
*/

package geo

import (
	"fmt"
	"math"
	"strings"
)

// WorldID identifies a game world as reported by the game.
type WorldID int

const (
	WorldUnknown       WorldID = 0
	WorldWatopia       WorldID = 1
	WorldRichmond      WorldID = 2
	WorldLondon        WorldID = 3
	WorldNewYork       WorldID = 4
	WorldInnsbruck     WorldID = 5
	WorldBologna       WorldID = 6
	WorldYorkshire     WorldID = 7
	WorldCritCity      WorldID = 8
	WorldMakuriIslands WorldID = 9
	WorldFrance        WorldID = 10
	WorldParis         WorldID = 11
	WorldScotland      WorldID = 13
)

// World holds the transform constants of one game world.
type World struct {
	ID              WorldID
	Name            string
	LatitudeOffset  float64 // engine cm between the equator and the world origin
	LongitudeOffset float64 // engine cm between the prime meridian and the world origin
	LatitudeScale   float64 // engine cm per degree of latitude
	LongitudeScale  float64 // engine cm per degree of longitude at the world origin
	InvertLongitude bool
	AltitudeScale   float64 // engine units per meter of altitude
}

var worlds = []World{
	{WorldWatopia, "watopia", -128815329.0, 1820505157.56, 11061952.36, 10904301.93, false, 100},
	{WorldRichmond, "richmond", 416681574.11, -684351457.92, 11098782.04, 8837479.8, true, 100},
	{WorldLondon, "london", 572996786.45, -1166147.03, 11125782.85, 6943792.42, false, 100},
	{WorldNewYork, "newyork", 452717570.88, -624589143.31, 11104938.23, 8443055.67, true, 100},
	{WorldInnsbruck, "innsbruck", 525560681.11, 86229345.61, 11117612.69, 7566805.28, false, 100},
	{WorldBologna, "bologna", 494434219.62, 90220420.08, 11112187.33, 7953672.86, false, 100},
	{WorldYorkshire, "yorkshire", 600948709.35, -10112263.71, 11130480.05, 6558947.4, false, 100},
	{WorldCritCity, "critcity", -114655244.84, 1811446724.35, 11061022.88, 10951444.8, false, 100},
	{WorldMakuriIslands, "makuriislands", -118897812.52, 1814004865.27, 11061290.59, 10937887.35, false, 100},
	{WorldFrance, "france", -240220421.13, 1719759114.78, 11072616.78, 10348150.4, true, 100},
	{WorldParis, "paris", 543312487.58, 16877980.76, 11120691.17, 7338252.51, false, 100},
	{WorldScotland, "scotland", 619274839.55, -32949215.43, 11133491.17, 6299920.73, false, 100},
}

// Worlds returns a copy of the supported world table.
func Worlds() []World {
	out := make([]World, len(worlds))
	copy(out, worlds)
	return out
}

// Lookup returns the world with the given id.
func Lookup(id WorldID) (World, bool) {
	for _, w := range worlds {
		if w.ID == id {
			return w, true
		}
	}
	return World{}, false
}

// WorldByName resolves a case-insensitive world name ("Watopia", "new york", ...).
func WorldByName(name string) (World, error) {
	key := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	for _, w := range worlds {
		if w.Name == key {
			return w, nil
		}
	}
	return World{}, fmt.Errorf("unknown world %q", name)
}

func (id WorldID) String() string {
	if w, ok := Lookup(id); ok {
		return w.Name
	}
	return "unknown"
}

// GameCoordinate is a raw engine-space position.
type GameCoordinate struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	World WorldID `json:"world"`
}

// UnknownCoordinate is returned for points that cannot be mapped into a world.
var UnknownCoordinate = GameCoordinate{World: WorldUnknown}

// NewGameCoordinate rounds the engine values to 5 decimals to absorb float jitter.
func NewGameCoordinate(x, y, z float64, world WorldID) GameCoordinate {
	return GameCoordinate{X: round(x, 5), Y: round(y, 5), Z: round(z, 5), World: world}
}

// ToGeoPoint maps a game coordinate to latitude/longitude/altitude.
// Coordinates of unsupported worlds map to UnknownPoint.
func ToGeoPoint(c GameCoordinate) GeoPoint {
	w, ok := Lookup(c.World)
	if !ok {
		return UnknownPoint
	}

	y := c.Y
	if w.InvertLongitude {
		y = -y
	}

	lat := (c.X + w.LatitudeOffset) / w.LatitudeScale
	lon := (y + w.LongitudeOffset) / w.LongitudeScale
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return UnknownPoint
	}
	return NewGeoPoint(lat, lon, c.Z/w.AltitudeScale)
}

// ToGameCoordinate is the inverse of ToGeoPoint for the given world.
func ToGameCoordinate(p GeoPoint, id WorldID) GameCoordinate {
	w, ok := Lookup(id)
	if !ok || p.IsUnknown() {
		return UnknownCoordinate
	}

	x := p.Latitude*w.LatitudeScale - w.LatitudeOffset
	y := p.Longitude*w.LongitudeScale - w.LongitudeOffset
	if w.InvertLongitude {
		y = -y
	}
	return NewGameCoordinate(x, y, p.Altitude*w.AltitudeScale, id)
}
