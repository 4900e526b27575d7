/*
Package segment
File: graph.go
Description:
    The Graph is an arena of segments indexed by id. It is read-only after
    NewGraph returns and may be shared between goroutines without locking.

    Match reports every segment that contains a point. It never picks one:
    overlapping and parallel segments are resolved by the caller.
*/

package segment

import (
	"fmt"
	"sort"

	"github.com/everforgeworks/roadnav/internal/geo"
)

// UnknownTargetError is returned when a turn references a segment that is not in the graph.
type UnknownTargetError struct {
	SegmentID string
	Target    string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("segment %s has a turn to unknown segment %s", e.SegmentID, e.Target)
}

// PointRef addresses one point in the graph: the segment's arena slot and the point ordinal.
type PointRef struct {
	Segment int
	Ordinal int
}

// Match is one candidate segment for a position.
type Match struct {
	Segment  *Segment
	Ref      PointRef
	Point    TrackPoint
	Distance float64
}

type Graph struct {
	segments []*Segment
	index    map[string]int
}

// NewGraph builds the arena and checks that every turn targets a segment in it.
func NewGraph(segments []*Segment) (*Graph, error) {
	g := &Graph{
		segments: make([]*Segment, 0, len(segments)),
		index:    make(map[string]int, len(segments)),
	}
	for _, s := range segments {
		if _, dup := g.index[s.ID]; dup {
			return nil, fmt.Errorf("duplicate segment id %s", s.ID)
		}
		g.index[s.ID] = len(g.segments)
		g.segments = append(g.segments, s)
	}

	for _, s := range g.segments {
		for _, turns := range [][]Turn{s.NextAtA, s.NextAtB} {
			for _, t := range turns {
				if _, ok := g.index[t.SegmentID]; !ok {
					return nil, &UnknownTargetError{SegmentID: s.ID, Target: t.SegmentID}
				}
			}
		}
	}
	return g, nil
}

// Len returns the number of segments.
func (g *Graph) Len() int { return len(g.segments) }

// Segments returns the segments in arena order.
func (g *Graph) Segments() []*Segment {
	out := make([]*Segment, len(g.segments))
	copy(out, g.segments)
	return out
}

// Segment looks up a segment by id.
func (g *Graph) Segment(id string) (*Segment, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.segments[i], true
}

// At resolves a PointRef.
func (g *Graph) At(ref PointRef) (*Segment, TrackPoint, bool) {
	if ref.Segment < 0 || ref.Segment >= len(g.segments) {
		return nil, TrackPoint{}, false
	}
	s := g.segments[ref.Segment]
	if ref.Ordinal < 0 || ref.Ordinal >= len(s.Points) {
		return nil, TrackPoint{}, false
	}
	return s, s.Points[ref.Ordinal], true
}

// Match returns every segment containing p, nearest first.
// Ties on distance keep arena order so the result is deterministic.
func (g *Graph) Match(p geo.GeoPoint) []Match {
	var matches []Match
	for i, s := range g.segments {
		closest, ok := s.Closest(p)
		if !ok {
			continue
		}
		matches = append(matches, Match{
			Segment:  s,
			Ref:      PointRef{Segment: i, Ordinal: closest.Index},
			Point:    closest,
			Distance: closest.DistanceTo(p),
		})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})
	return matches
}

// Reachable reports whether target is one of the turns at either end of from.
func (g *Graph) Reachable(from *Segment, target string) bool {
	for _, turns := range [][]Turn{from.NextAtA, from.NextAtB} {
		for _, t := range turns {
			if t.SegmentID == target {
				return true
			}
		}
	}
	return false
}
