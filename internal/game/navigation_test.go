package game

import (
	"testing"

	"github.com/everforgeworks/roadnav/internal/geo"
	"github.com/everforgeworks/roadnav/internal/protocol"
	"github.com/everforgeworks/roadnav/internal/route"
	"github.com/everforgeworks/roadnav/internal/segment"
)

// start sits at the Watopia engine origin, where engine values are small enough for float32.
var start = geo.ToGeoPoint(geo.NewGameCoordinate(0, 0, 0, geo.WorldWatopia))

// north returns the point meters north of start.
func north(meters float64) geo.GeoPoint {
	return start.OffsetNorth(meters)
}

// stretch returns five points 10m apart beginning at the given distance north of start.
func stretch(from float64) []geo.GeoPoint {
	points := make([]geo.GeoPoint, 5)
	for i := range points {
		points[i] = north(from + float64(i)*10)
	}
	return points
}

// testSegments is a straight road split in three: a (0-40m), b (50-90m), c (100-140m).
// Going north, a continues straight into b and b turns left into c.
func testSegments(t *testing.T) []*segment.Segment {
	t.Helper()
	build := func(id string, from float64, atA, atB []segment.Turn) *segment.Segment {
		s, err := segment.NewSegment(id, stretch(from), atA, atB)
		if err != nil {
			t.Fatalf("NewSegment(%s): %v", id, err)
		}
		return s
	}
	return []*segment.Segment{
		build("a", 0, nil, []segment.Turn{{Direction: segment.GoStraight, SegmentID: "b"}}),
		build("b", 50, []segment.Turn{{Direction: segment.GoStraight, SegmentID: "a"}}, []segment.Turn{{Direction: segment.TurnLeft, SegmentID: "c"}}),
		build("c", 100, []segment.Turn{{Direction: segment.TurnRight, SegmentID: "b"}}, nil),
	}
}

func testGraph(t *testing.T) *segment.Graph {
	t.Helper()
	g, err := segment.NewGraph(testSegments(t))
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func testRoute(t *testing.T) *route.PlannedRoute {
	t.Helper()
	r, err := route.New("test route", []route.SegmentSequence{
		{SegmentID: "a", TurnToNext: segment.GoStraight, NextSegmentID: "b", Direction: segment.AtoB},
		{SegmentID: "b", TurnToNext: segment.TurnLeft, NextSegmentID: "c", Direction: segment.AtoB},
		{SegmentID: "c", Direction: segment.AtoB},
	})
	if err != nil {
		t.Fatalf("route.New: %v", err)
	}
	return r
}

type navRecorder struct {
	states []GameState
	sent   []string
}

func newTestNavigator(t *testing.T, plan *route.PlannedRoute) (*navigator, *navRecorder) {
	t.Helper()
	rec := &navRecorder{}
	n := newNavigator(testGraph(t), plan, geo.WorldWatopia, true,
		func(s GameState) { rec.states = append(rec.states, s) },
		func(c string) error { rec.sent = append(rec.sent, c); return nil })
	return n, rec
}

func (r *navRecorder) last() GameState {
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

func (r *navRecorder) count(name string) int {
	n := 0
	for _, s := range r.states {
		if s.Name() == name {
			n++
		}
	}
	return n
}

func ride(n *navigator, meters ...float64) {
	for _, m := range meters {
		n.handlePosition(north(m))
	}
}

func TestNavigatorFollowsRoute(t *testing.T) {
	plan := testRoute(t)
	n, rec := newTestNavigator(t, plan)

	ride(n, 0)
	onRoute, ok := rec.last().(OnRoute)
	if !ok {
		t.Fatalf("expected OnRoute after entering a, got %s", rec.last().Name())
	}
	if onRoute.CurrentSegment.ID != "a" || onRoute.SequenceIndex != 0 || !onRoute.Route.Started {
		t.Errorf("unexpected OnRoute %+v", onRoute)
	}

	ride(n, 10)
	turn, ok := rec.last().(UpcomingTurn)
	if !ok {
		t.Fatalf("expected UpcomingTurn once direction is known, got %s", rec.last().Name())
	}
	if len(turn.Directions) != 1 || turn.Directions[0] != segment.GoStraight {
		t.Errorf("expected [GoStraight], got %v", turn.Directions)
	}
	// The position state sent alongside already carries the new direction.
	if s, ok := rec.states[len(rec.states)-2].(OnRoute); !ok || s.Direction != segment.AtoB {
		t.Errorf("expected OnRoute heading AtoB before the turn, got %v", rec.states[len(rec.states)-2])
	}

	// 50m is still within reach of a's last point, so the rider stays on a.
	ride(n, 20, 30, 40, 50)
	if s := rec.last().(OnRoute); s.CurrentSegment.ID != "a" {
		t.Errorf("expected to stay on a at 50m, got %s", s.CurrentSegment.ID)
	}

	ride(n, 60, 70)
	turn, ok = rec.last().(UpcomingTurn)
	if !ok || len(turn.Directions) != 1 || turn.Directions[0] != segment.TurnLeft {
		t.Fatalf("expected UpcomingTurn [Left] on b, got %v", rec.last())
	}
	if plan.SegmentIndex() != 1 {
		t.Errorf("expected cursor at 1, got %d", plan.SegmentIndex())
	}

	n.handle(protocol.CommandAvailable{Command: protocol.CommandTurnLeft, Sequence: 7})
	n.handle(protocol.CommandAvailable{Command: protocol.CommandTurnLeft, Sequence: 7})
	n.handle(protocol.CommandAvailable{Command: protocol.CommandTurnRight, Sequence: 8})
	if len(rec.sent) != 1 || rec.sent[0] != "TURN;Left;7" {
		t.Errorf("expected a single TURN;Left;7, got %v", rec.sent)
	}

	ride(n, 80, 90, 100, 110)
	if rec.count("CompletedRoute") != 1 {
		t.Fatalf("expected one CompletedRoute, got %d", rec.count("CompletedRoute"))
	}
	if !plan.HasCompleted() {
		t.Error("expected the route to be completed")
	}
	if got := rec.sent[len(rec.sent)-1]; got != "ENDACTIVITY;test route" {
		t.Errorf("expected end activity command, got %q", got)
	}
	if s, ok := rec.last().(OnSegment); !ok || s.CurrentSegment.ID != "c" {
		t.Errorf("expected OnSegment(c) after completion, got %v", rec.last())
	}
}

func TestNavigatorIgnoresPositionsOffTheGraph(t *testing.T) {
	n, rec := newTestNavigator(t, testRoute(t))

	ride(n, -200, 500)
	if len(rec.states) != 0 {
		t.Errorf("expected no states, got %d", len(rec.states))
	}
}

func TestNavigatorAbandonsRouteOnDivergence(t *testing.T) {
	plan := testRoute(t)
	n, rec := newTestNavigator(t, plan)

	// Jump from a straight onto c, skipping b.
	ride(n, 0, 10, 120)

	if s, ok := rec.last().(OnSegment); !ok || s.CurrentSegment.ID != "c" {
		t.Fatalf("expected OnSegment(c), got %v", rec.last())
	}
	if n.tracking {
		t.Error("expected route tracking to stop")
	}
	if plan.SegmentIndex() != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", plan.SegmentIndex())
	}

	ride(n, 130, 140)
	if rec.count("CompletedRoute") != 0 || rec.count("ErrorState") != 0 {
		t.Error("expected neither completion nor errors after leaving the route")
	}
}

func TestNavigatorBeforeRouteStart(t *testing.T) {
	plan, err := route.New("from b", []route.SegmentSequence{
		{SegmentID: "b", TurnToNext: segment.TurnLeft, NextSegmentID: "c", Direction: segment.AtoB},
		{SegmentID: "c", Direction: segment.AtoB},
	})
	if err != nil {
		t.Fatal(err)
	}
	n, rec := newTestNavigator(t, plan)

	ride(n, 0, 10)
	if _, ok := rec.states[0].(OnSegment); !ok {
		t.Fatalf("expected OnSegment on a before the route starts, got %s", rec.states[0].Name())
	}
	if !n.tracking || plan.HasStarted() {
		t.Error("riding towards the start must not abandon or start the route")
	}

	ride(n, 20, 30, 40, 60)
	if s, ok := rec.last().(OnRoute); !ok || s.CurrentSegment.ID != "b" {
		t.Errorf("expected OnRoute(b), got %v", rec.last())
	}
}

func TestNavigatorLoopsRoute(t *testing.T) {
	plan, err := route.New("lap", []route.SegmentSequence{
		{SegmentID: "a", TurnToNext: segment.GoStraight, NextSegmentID: "b", Direction: segment.AtoB},
		{SegmentID: "b", TurnToNext: segment.GoStraight, NextSegmentID: "a", Direction: segment.BtoA},
	})
	if err != nil {
		t.Fatal(err)
	}
	plan.Loop = true
	n, rec := newTestNavigator(t, plan)

	ride(n, 0, 10, 20, 30, 40, 60)
	done, ok := rec.states[len(rec.states)-2].(CompletedRoute)
	if !ok {
		t.Fatalf("expected CompletedRoute when entering b, got %v", rec.states)
	}
	if !done.Route.Completed || done.Route.SequenceIndex != 1 {
		t.Errorf("unexpected lap snapshot %+v", done.Route)
	}
	if !plan.LapCompleted() || plan.HasCompleted() || plan.SegmentIndex() != 1 {
		t.Error("expected the cursor to wait on the last step for the next lap")
	}
	if s, ok := rec.last().(OnRoute); !ok || s.CurrentSegment.ID != "b" {
		t.Errorf("expected OnRoute(b) on the last step, got %v", rec.last())
	}
	if len(rec.sent) != 0 {
		t.Errorf("a lap must not end the activity, sent %v", rec.sent)
	}

	// Back down onto a starts the next lap.
	ride(n, 50, 40, 30)
	on, ok := rec.last().(OnRoute)
	if !ok || on.CurrentSegment.ID != "a" {
		t.Fatalf("expected OnRoute(a) on the next lap, got %v", rec.last())
	}
	if on.SequenceIndex != 0 || !on.Route.Started || plan.LapCompleted() {
		t.Errorf("expected a fresh lap, got %+v", on.Route)
	}
}

func TestNavigatorTurnsBackOnLoopLastStep(t *testing.T) {
	plan, err := route.New("lap", []route.SegmentSequence{
		{SegmentID: "a", TurnToNext: segment.GoStraight, NextSegmentID: "b", Direction: segment.AtoB},
		{SegmentID: "b", TurnToNext: segment.TurnLeft, NextSegmentID: "a", Direction: segment.BtoA},
	})
	if err != nil {
		t.Fatal(err)
	}
	plan.Loop = true
	n, rec := newTestNavigator(t, plan)

	ride(n, 0, 10, 20, 30, 40, 60)
	if rec.count("CompletedRoute") != 1 {
		t.Fatalf("expected the lap to complete on b, got %d", rec.count("CompletedRoute"))
	}

	n.handle(protocol.CommandAvailable{Command: protocol.CommandTurnLeft, Sequence: 9})
	if len(rec.sent) != 1 || rec.sent[0] != "TURN;Left;9" {
		t.Errorf("expected TURN;Left;9 on the last step, got %v", rec.sent)
	}
}

func TestChoosePrefersRouteOverNearest(t *testing.T) {
	// Two parallel roads about 7.5m apart; the route uses the eastern one.
	east := geo.NewGeoPoint(start.Latitude, start.Longitude+0.00007, start.Altitude)
	west, err := segment.NewSegment("west", stretch(0), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	eastPoints := make([]geo.GeoPoint, 5)
	for i := range eastPoints {
		eastPoints[i] = east.OffsetNorth(float64(i) * 10)
	}
	eastSeg, err := segment.NewSegment("east", eastPoints, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	g, err := segment.NewGraph([]*segment.Segment{west, eastSeg})
	if err != nil {
		t.Fatal(err)
	}

	matches := g.Match(north(20))
	if len(matches) != 2 || matches[0].Segment.ID != "west" {
		t.Fatalf("expected west nearest of two candidates, got %d", len(matches))
	}

	free := newNavigator(g, nil, geo.WorldWatopia, false, func(GameState) {}, func(string) error { return nil })
	if got := free.choose(matches); got.Segment.ID != "west" {
		t.Errorf("without a route expected nearest (west), got %s", got.Segment.ID)
	}

	plan, err := route.New("east", []route.SegmentSequence{{SegmentID: "east"}})
	if err != nil {
		t.Fatal(err)
	}
	routed := newNavigator(g, plan, geo.WorldWatopia, false, func(GameState) {}, func(string) error { return nil })
	if got := routed.choose(matches); got.Segment.ID != "east" {
		t.Errorf("expected the route's first segment (east), got %s", got.Segment.ID)
	}

	routed.current = west
	if got := routed.choose(matches); got.Segment.ID != "west" {
		t.Errorf("expected to stay on the current segment, got %s", got.Segment.ID)
	}
}

func TestNavigatorRecoversFromPanic(t *testing.T) {
	var states []GameState
	n := newNavigator(nil, nil, geo.WorldWatopia, false,
		func(s GameState) { states = append(states, s) },
		func(string) error { return nil })

	// A nil graph panics inside Match.
	n.handle(protocol.RiderPosition{})

	if len(states) != 1 {
		t.Fatalf("expected one state, got %d", len(states))
	}
	es, ok := states[0].(ErrorState)
	if !ok || es.Err == nil {
		t.Errorf("expected ErrorState with a cause, got %v", states[0])
	}
}
