/*
Package api
File: status.go
Description:
    Status is the state receiver behind the HTTP and WebSocket surfaces. It
    keeps the latest state and route in view form and republishes every
    change to the Hub.
*/

package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/everforgeworks/roadnav/internal/game"
)

// StateView is the JSON form of a game.GameState.
type StateView struct {
	Name          string          `json:"name"`
	Segment       string          `json:"segment,omitempty"`
	SegmentName   string          `json:"segment_name,omitempty"`
	Direction     string          `json:"direction,omitempty"`
	SequenceIndex *int            `json:"sequence_index,omitempty"`
	Directions    []string        `json:"directions,omitempty"`
	Route         *game.RouteInfo `json:"route,omitempty"`
	Error         string          `json:"error,omitempty"`
	At            time.Time       `json:"at"`
}

// ViewOf converts a state for the UI.
func ViewOf(s game.GameState, at time.Time) StateView {
	v := StateView{Name: s.Name(), At: at}

	switch s := s.(type) {
	case game.NotLoggedIn, game.LoggedIn, game.WaitingForConnection, game.ConnectedToGame, game.InGame:
	case game.OnSegment:
		v.Segment = s.CurrentSegment.ID
		v.SegmentName = s.CurrentSegment.Name
		v.Direction = s.Direction.String()
	case game.OnRoute:
		route := s.Route
		index := s.SequenceIndex
		v.Segment = s.CurrentSegment.ID
		v.SegmentName = s.CurrentSegment.Name
		v.Direction = s.Direction.String()
		v.SequenceIndex = &index
		v.Route = &route
	case game.UpcomingTurn:
		v.Directions = make([]string, len(s.Directions))
		for i, d := range s.Directions {
			v.Directions[i] = d.String()
		}
	case game.CompletedRoute:
		route := s.Route
		v.Route = &route
	case game.InvalidCredentials:
		v.Error = errorText(s.Err)
	case game.ErrorState:
		v.Error = errorText(s.Err)
	}
	return v
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type Status struct {
	mu    sync.RWMutex
	state StateView
	route *game.RouteInfo
	hub   *Hub
	now   func() time.Time
}

// NewStatus creates a Status publishing to hub; hub may be nil.
func NewStatus(hub *Hub) *Status {
	s := &Status{hub: hub, now: time.Now}
	s.state = ViewOf(game.NotLoggedIn{}, s.now())
	return s
}

// Receiver returns the callbacks to register with the game dispatcher.
func (s *Status) Receiver() game.Receiver {
	return game.Receiver{
		OnStateChanged:  s.stateChanged,
		OnRouteSelected: s.routeSelected,
	}
}

func (s *Status) stateChanged(state game.GameState) {
	view := ViewOf(state, s.now())

	s.mu.Lock()
	s.state = view
	if view.Route != nil {
		route := *view.Route
		s.route = &route
	}
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Publish(Message{Type: "state", Payload: view})
	}
}

func (s *Status) routeSelected(info game.RouteInfo) {
	s.mu.Lock()
	s.route = &info
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Publish(Message{Type: "route", Payload: info})
	}
}

// State returns the latest state view.
func (s *Status) State() StateView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Route returns the route being navigated, if any.
func (s *Status) Route() (game.RouteInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.route == nil {
		return game.RouteInfo{}, false
	}
	return *s.route, true
}

// Greeting is the first message for a new WebSocket client.
func (s *Status) Greeting() []byte {
	data, err := json.Marshal(Message{Type: "state", Payload: s.State()})
	if err != nil {
		return nil
	}
	return data
}
