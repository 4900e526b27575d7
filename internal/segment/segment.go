/*
Package segment
File: segment.go
Description:
    A Segment is one road element: an ordered polyline of geodetic points with
    named ends A (first point) and B (last point) and the turns available at each end.
    Segments are immutable once built; NewSegment performs the single distance pass.
*/

package segment

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/everforgeworks/roadnav/internal/geo"
)

const (
	// CloseDistanceMeters is the great-circle radius within which a point counts as on a segment.
	CloseDistanceMeters = 15.0
	// CloseAltitudeDelta is the largest altitude difference for a point to count as on a segment.
	// Overlapping roads at bridges and tunnels are told apart by it.
	CloseAltitudeDelta = 2.0

	// UnknownIndex marks a TrackPoint that has not been bound to a segment position.
	UnknownIndex = -1
)

var ErrUnknownDirection = errors.New("direction of travel is unknown")

// TrackPoint is a GeoPoint annotated with its position on a segment.
type TrackPoint struct {
	geo.GeoPoint
	Index                int     `json:"index"`
	DistanceFromPrevious float64 `json:"distance_from_previous"`
	DistanceOnSegment    float64 `json:"distance_on_segment"`
}

// Unbound wraps a live position that has no position on a segment yet.
func Unbound(p geo.GeoPoint) TrackPoint {
	return TrackPoint{GeoPoint: p, Index: UnknownIndex}
}

// IsCloseTo applies the dual distance/altitude closeness threshold.
func IsCloseTo(a, b geo.GeoPoint) bool {
	if a.AltitudeDelta(b) > CloseAltitudeDelta {
		return false
	}
	return a.DistanceTo(b) < CloseDistanceMeters
}

type Segment struct {
	ID      string
	Name    string
	Sport   string
	Points  []TrackPoint
	NextAtA []Turn
	NextAtB []Turn

	bound    orb.Bound
	distance float64
	ascent   float64
	descent  float64
}

// NewSegment builds a segment from its ordered points and computes the per-point distances.
func NewSegment(id string, points []geo.GeoPoint, nextAtA, nextAtB []Turn) (*Segment, error) {
	if id == "" {
		return nil, errors.New("segment id is empty")
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("segment %s has no points", id)
	}

	s := &Segment{
		ID:      id,
		Points:  make([]TrackPoint, len(points)),
		NextAtA: nextAtA,
		NextAtB: nextAtB,
	}
	for i, p := range points {
		s.Points[i] = TrackPoint{GeoPoint: p, Index: i}
	}
	s.calculateDistances()
	return s, nil
}

func (s *Segment) calculateDistances() {
	var mp orb.MultiPoint
	for i := range s.Points {
		p := &s.Points[i]
		mp = append(mp, p.Orb())
		if i == 0 {
			continue
		}
		prev := s.Points[i-1]
		p.DistanceFromPrevious = prev.DistanceTo(p.GeoPoint)
		p.DistanceOnSegment = prev.DistanceOnSegment + p.DistanceFromPrevious

		if climb := p.Altitude - prev.Altitude; climb > 0 {
			s.ascent += climb
		} else {
			s.descent -= climb
		}
	}
	s.distance = s.Points[len(s.Points)-1].DistanceOnSegment
	s.bound = orbgeo.BoundPad(mp.Bound(), CloseDistanceMeters)
}

// A returns the first point of the segment.
func (s *Segment) A() TrackPoint { return s.Points[0] }

// B returns the last point of the segment.
func (s *Segment) B() TrackPoint { return s.Points[len(s.Points)-1] }

// Distance is the segment length in meters.
func (s *Segment) Distance() float64 { return s.distance }

func (s *Segment) Ascent() float64  { return s.ascent }
func (s *Segment) Descent() float64 { return s.descent }

// Bound is the bounding box of the segment, padded by the closeness radius.
func (s *Segment) Bound() orb.Bound { return s.bound }

// Contains reports whether any point of the segment is close to p.
func (s *Segment) Contains(p geo.GeoPoint) bool {
	_, ok := s.Closest(p)
	return ok
}

// Closest returns the nearest segment point that satisfies the closeness threshold.
func (s *Segment) Closest(p geo.GeoPoint) (TrackPoint, bool) {
	if p.IsUnknown() || !s.bound.Contains(p.Orb()) {
		return TrackPoint{}, false
	}

	best := -1
	bestDistance := 0.0
	for i, candidate := range s.Points {
		if candidate.AltitudeDelta(p) > CloseAltitudeDelta {
			continue
		}
		d := candidate.DistanceTo(p)
		if d >= CloseDistanceMeters {
			continue
		}
		if best < 0 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	if best < 0 {
		return TrackPoint{}, false
	}
	return s.Points[best], true
}

// IndexOf resolves the position of p on the segment: its own index when it is bound
// to this segment, otherwise the nearest close point. Returns UnknownIndex if p is not on the segment.
func (s *Segment) IndexOf(p TrackPoint) int {
	if p.Index >= 0 && p.Index < len(s.Points) && s.Points[p.Index].Equal(p.GeoPoint) {
		return p.Index
	}
	for i, candidate := range s.Points {
		if candidate.Equal(p.GeoPoint) {
			return i
		}
	}
	if closest, ok := s.Closest(p.GeoPoint); ok {
		return closest.Index
	}
	return UnknownIndex
}

// Contains reports whether p lies on seg.
func Contains(seg *Segment, p geo.GeoPoint) bool {
	return seg.Contains(p)
}

// DirectionOf determines the direction of travel from first to second along seg.
func DirectionOf(seg *Segment, first, second TrackPoint) Direction {
	i := seg.IndexOf(first)
	j := seg.IndexOf(second)
	if i == UnknownIndex || j == UnknownIndex {
		return DirectionUnknown
	}
	switch {
	case i < j:
		return AtoB
	case i > j:
		return BtoA
	default:
		return DirectionUnknown
	}
}

// NextSegments returns the turns available at the end the rider is travelling towards.
func NextSegments(seg *Segment, d Direction) ([]Turn, error) {
	switch d {
	case AtoB:
		return seg.NextAtB, nil
	case BtoA:
		return seg.NextAtA, nil
	default:
		return nil, fmt.Errorf("segment %s: %w", seg.ID, ErrUnknownDirection)
	}
}

// TurnTo returns the turn direction that leads from seg to target when travelling d.
func TurnTo(seg *Segment, d Direction, target string) (TurnDirection, bool) {
	turns, err := NextSegments(seg, d)
	if err != nil {
		return TurnNone, false
	}
	for _, t := range turns {
		if t.SegmentID == target {
			return t.Direction, true
		}
	}
	return TurnNone, false
}
