/*
Package game
File: navigation.go
Description:
    The navigator matches rider positions against the segment graph and moves
    the planned route forward. It is owned by the navigation task; nothing else
    touches the route cursor while it runs.
*/

package game

import (
	"errors"
	"fmt"
	"log"

	"github.com/everforgeworks/roadnav/internal/geo"
	"github.com/everforgeworks/roadnav/internal/protocol"
	"github.com/everforgeworks/roadnav/internal/route"
	"github.com/everforgeworks/roadnav/internal/segment"
)

type navigator struct {
	graph       *segment.Graph
	plan        *route.PlannedRoute // nil when no route is configured
	world       geo.WorldID
	endActivity bool

	emit func(GameState)
	send func(command string) error

	tracking  bool
	current   *segment.Segment
	last      segment.TrackPoint
	direction segment.Direction

	turnSent     bool
	turnSequence uint64
}

func newNavigator(g *segment.Graph, plan *route.PlannedRoute, world geo.WorldID, endActivity bool,
	emit func(GameState), send func(string) error) *navigator {
	return &navigator{
		graph:       g,
		plan:        plan,
		world:       world,
		endActivity: endActivity,
		emit:        emit,
		send:        send,
		tracking:    plan != nil,
	}
}

// handle processes one message. A panic while doing so becomes an ErrorState.
func (n *navigator) handle(msg protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("navigation failed: %v", r)
			log.Printf("NAV: ERROR %v", err)
			n.emit(ErrorState{Err: err})
		}
	}()

	switch m := msg.(type) {
	case protocol.RiderPosition:
		coord := geo.NewGameCoordinate(float64(m.X), float64(m.Y), float64(m.Z), n.world)
		n.handlePosition(geo.ToGeoPoint(coord))
	case protocol.CommandAvailable:
		n.handleCommand(m)
	}
}

func (n *navigator) handlePosition(p geo.GeoPoint) {
	if p.IsUnknown() {
		return
	}
	matches := n.graph.Match(p)
	if len(matches) == 0 {
		return
	}
	m := n.choose(matches)

	if n.current == nil || m.Segment.ID != n.current.ID {
		n.enterSegment(m)
		n.emitPosition()
		return
	}

	dir := segment.DirectionOf(n.current, n.last, m.Point)
	n.last = m.Point
	changed := dir != segment.DirectionUnknown && dir != n.direction
	if changed {
		n.direction = dir
	}
	n.emitPosition()
	if !changed {
		return
	}

	turns, err := segment.NextSegments(n.current, dir)
	if err != nil {
		n.emit(ErrorState{Err: err})
		return
	}
	n.emit(UpcomingTurn{Directions: segment.Directions(turns)})
}

// choose applies the tie-break when a position lies on several segments:
// stay on the current segment, then prefer the route's expected segment, then
// a segment reachable from the current one, then the nearest.
func (n *navigator) choose(matches []segment.Match) segment.Match {
	if n.current != nil {
		for _, m := range matches {
			if m.Segment.ID == n.current.ID {
				return m
			}
		}
	}
	if expected := n.expected(); expected != "" {
		for _, m := range matches {
			if m.Segment.ID == expected {
				return m
			}
		}
	}
	if n.current != nil {
		for _, m := range matches {
			if n.graph.Reachable(n.current, m.Segment.ID) {
				return m
			}
		}
	}
	return matches[0]
}

func (n *navigator) expected() string {
	if !n.tracking || n.plan.HasCompleted() {
		return ""
	}
	return n.plan.Expected()
}

func (n *navigator) enterSegment(m segment.Match) {
	n.current = m.Segment
	n.last = m.Point
	n.direction = segment.DirectionUnknown
	n.turnSent = false

	if !n.tracking || n.plan.HasCompleted() {
		return
	}
	// Riding around before reaching the start is not a divergence.
	if !n.plan.HasStarted() && m.Segment.ID != n.plan.First().SegmentID {
		return
	}

	transition, err := n.plan.EnteredSegment(m.Segment.ID)
	if err != nil {
		if !errors.Is(err, route.ErrNavigationContract) {
			n.emit(ErrorState{Err: err})
			return
		}
		log.Printf("NAV: WARN left route %q: %v", n.plan.Name, err)
		n.tracking = false
		return
	}

	switch transition {
	case route.Started:
		log.Printf("NAV: started route %q on %s", n.plan.Name, m.Segment.ID)
	case route.Completed:
		log.Printf("NAV: completed route %q", n.plan.Name)
		n.emit(CompletedRoute{Route: Snapshot(n.plan)})
		if n.endActivity {
			if err := n.send(protocol.EndActivity(n.plan.Name)); err != nil {
				log.Printf("NAV: WARN could not end activity: %v", err)
			}
		}
	case route.Looped:
		log.Printf("NAV: completed lap of route %q", n.plan.Name)
		info := Snapshot(n.plan)
		info.Completed = true
		n.emit(CompletedRoute{Route: info})
	}
}

func (n *navigator) emitPosition() {
	if n.onRoute() {
		n.emit(OnRoute{
			Route:          Snapshot(n.plan),
			CurrentSegment: n.current,
			Direction:      n.direction,
			SequenceIndex:  n.plan.SegmentIndex(),
		})
		return
	}
	n.emit(OnSegment{CurrentSegment: n.current, Direction: n.direction})
}

func (n *navigator) onRoute() bool {
	return n.tracking &&
		n.plan.HasStarted() &&
		!n.plan.HasCompleted() &&
		n.current.ID == n.plan.Current().SegmentID
}

// handleCommand takes the planned turn when the game offers it, once per sequence.
func (n *navigator) handleCommand(c protocol.CommandAvailable) {
	turn, ok := protocol.TurnForCommand(c.Command)
	if !ok || !n.onRoute() {
		return
	}
	step := n.plan.Current()
	if step.IsTerminal() || step.TurnToNext != turn {
		return
	}
	if n.turnSent && c.Sequence <= n.turnSequence {
		return
	}

	if err := n.send(protocol.Turn(turn, c.Sequence)); err != nil {
		log.Printf("NAV: WARN could not send turn: %v", err)
		return
	}
	n.turnSent = true
	n.turnSequence = c.Sequence
}
