/*
Package game
File: state.go
Description:
    GameState is the closed set of values the navigation engine emits.
    Every variant implements the unexported gameState method, so no other
    package can add one; consumers switch on the concrete type.
*/

package game

import (
	"github.com/everforgeworks/roadnav/internal/route"
	"github.com/everforgeworks/roadnav/internal/segment"
)

type GameState interface {
	// Name is the stable identifier used in logs and on the wire.
	Name() string
	gameState()
}

// RouteInfo is an immutable snapshot of a planned route's progress.
type RouteInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Steps         int    `json:"steps"`
	Loop          bool   `json:"loop"`
	SequenceIndex int    `json:"sequence_index"`
	Started       bool   `json:"started"`
	Completed     bool   `json:"completed"`
}

// Snapshot captures r's current progress.
func Snapshot(r *route.PlannedRoute) RouteInfo {
	return RouteInfo{
		ID:            r.ID,
		Name:          r.Name,
		Steps:         len(r.Sequence),
		Loop:          r.IsLoop(),
		SequenceIndex: r.SegmentIndex(),
		Started:       r.HasStarted(),
		Completed:     r.HasCompleted(),
	}
}

type NotLoggedIn struct{}
type LoggedIn struct{}
type WaitingForConnection struct{}
type ConnectedToGame struct{}
type InGame struct{}

// OnSegment: the rider is on a known segment that is not part of an active route.
type OnSegment struct {
	CurrentSegment *segment.Segment
	Direction      segment.Direction
}

// OnRoute: the rider is following the planned route.
type OnRoute struct {
	Route          RouteInfo
	CurrentSegment *segment.Segment
	Direction      segment.Direction
	SequenceIndex  int
}

// UpcomingTurn lists the turns available at the end the rider is heading for.
type UpcomingTurn struct {
	Directions []segment.TurnDirection
}

type CompletedRoute struct {
	Route RouteInfo
}

type InvalidCredentials struct {
	Err error
}

type ErrorState struct {
	Err error
}

func (NotLoggedIn) Name() string          { return "NotLoggedIn" }
func (LoggedIn) Name() string             { return "LoggedIn" }
func (WaitingForConnection) Name() string { return "WaitingForConnection" }
func (ConnectedToGame) Name() string      { return "ConnectedToGame" }
func (InGame) Name() string               { return "InGame" }
func (OnSegment) Name() string            { return "OnSegment" }
func (OnRoute) Name() string              { return "OnRoute" }
func (UpcomingTurn) Name() string         { return "UpcomingTurn" }
func (CompletedRoute) Name() string       { return "CompletedRoute" }
func (InvalidCredentials) Name() string   { return "InvalidCredentials" }
func (ErrorState) Name() string           { return "ErrorState" }

func (NotLoggedIn) gameState()          {}
func (LoggedIn) gameState()             {}
func (WaitingForConnection) gameState() {}
func (ConnectedToGame) gameState()      {}
func (InGame) gameState()               {}
func (OnSegment) gameState()            {}
func (OnRoute) gameState()              {}
func (UpcomingTurn) gameState()         {}
func (CompletedRoute) gameState()       {}
func (InvalidCredentials) gameState()   {}
func (ErrorState) gameState()           {}
