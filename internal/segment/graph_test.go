package segment

import (
	"errors"
	"testing"

	"github.com/everforgeworks/roadnav/internal/geo"
)

func TestNewGraphRejectsUnknownTurnTarget(t *testing.T) {
	s := mustSegment(t, "seg-1", line(origin, 3), nil, []Turn{{TurnLeft, "missing"}})

	_, err := NewGraph([]*Segment{s})
	var target *UnknownTargetError
	if !errors.As(err, &target) {
		t.Fatalf("expected UnknownTargetError, got %v", err)
	}
	if target.Target != "missing" {
		t.Errorf("expected offending id 'missing', got %s", target.Target)
	}
}

func TestNewGraphRejectsDuplicates(t *testing.T) {
	a := mustSegment(t, "seg-1", line(origin, 3), nil, nil)
	b := mustSegment(t, "seg-1", line(origin, 3), nil, nil)
	if _, err := NewGraph([]*Segment{a, b}); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestMatchReportsAllCandidates(t *testing.T) {
	// Two parallel segments 8m apart and a bridge crossing above them.
	east := geo.NewGeoPoint(origin.Latitude, origin.Longitude+0.00007, origin.Altitude)
	bridge := geo.NewGeoPoint(origin.Latitude, origin.Longitude, origin.Altitude+6)

	a := mustSegment(t, "west", line(origin, 5), nil, nil)
	b := mustSegment(t, "east", line(east, 5), nil, nil)
	c := mustSegment(t, "bridge", line(bridge, 5), nil, nil)

	g, err := NewGraph([]*Segment{a, b, c})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	matches := g.Match(origin.OffsetNorth(40))
	if len(matches) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(matches))
	}
	if matches[0].Segment.ID != "west" || matches[1].Segment.ID != "east" {
		t.Errorf("expected nearest first, got %s then %s", matches[0].Segment.ID, matches[1].Segment.ID)
	}
	if matches[0].Point.Index != 2 {
		t.Errorf("expected closest ordinal 2, got %d", matches[0].Point.Index)
	}

	s, p, ok := g.At(matches[1].Ref)
	if !ok || s.ID != "east" || p.Index != matches[1].Point.Index {
		t.Errorf("PointRef did not resolve back to the match: %v %v %v", s, p, ok)
	}

	if got := g.Match(origin.OffsetNorth(-500)); len(got) != 0 {
		t.Errorf("expected no candidates far away, got %d", len(got))
	}
}

func TestGraphLookup(t *testing.T) {
	a := mustSegment(t, "a", line(origin, 3), nil, []Turn{{TurnLeft, "b"}})
	b := mustSegment(t, "b", line(origin.OffsetNorth(40), 3), []Turn{{TurnRight, "a"}}, nil)
	g, err := NewGraph([]*Segment{a, b})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	if s, ok := g.Segment("b"); !ok || s != b {
		t.Error("expected to find segment b")
	}
	if _, ok := g.Segment("c"); ok {
		t.Error("did not expect segment c")
	}
	if !g.Reachable(a, "b") || g.Reachable(a, "a") {
		t.Error("unexpected reachability")
	}
	if g.Len() != 2 || len(g.Segments()) != 2 {
		t.Error("expected 2 segments")
	}
	if _, _, ok := g.At(PointRef{Segment: 5}); ok {
		t.Error("expected out-of-range ref to fail")
	}
}
