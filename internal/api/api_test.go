package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/everforgeworks/roadnav/internal/game"
	"github.com/everforgeworks/roadnav/internal/geo"
	"github.com/everforgeworks/roadnav/internal/segment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testSegment(t *testing.T) *segment.Segment {
	t.Helper()
	start := geo.NewGeoPoint(-11.64, 166.95, 10)
	s, err := segment.NewSegment("seg-1", []geo.GeoPoint{start, start.OffsetNorth(20)}, nil, nil)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	s.Name = "Volcano climb"
	return s
}

func get(t *testing.T, h http.Handler, path string, out interface{}) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s: %v", path, err)
		}
	}
	return rec.Code
}

func TestViewOf(t *testing.T) {
	seg := testSegment(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	info := game.RouteInfo{Name: "lap", Steps: 3, SequenceIndex: 1, Started: true}

	cases := []struct {
		state game.GameState
		check func(StateView) bool
	}{
		{game.InGame{}, func(v StateView) bool { return v.Name == "InGame" && v.Segment == "" }},
		{game.OnSegment{CurrentSegment: seg, Direction: segment.AtoB}, func(v StateView) bool {
			return v.Segment == "seg-1" && v.SegmentName == "Volcano climb" && v.Direction == segment.AtoB.String()
		}},
		{game.OnRoute{Route: info, CurrentSegment: seg, SequenceIndex: 1}, func(v StateView) bool {
			return v.Route != nil && v.Route.Name == "lap" && v.SequenceIndex != nil && *v.SequenceIndex == 1
		}},
		{game.UpcomingTurn{Directions: []segment.TurnDirection{segment.TurnLeft, segment.GoStraight}}, func(v StateView) bool {
			return len(v.Directions) == 2 && v.Directions[0] == "Left" && v.Directions[1] == "GoStraight"
		}},
		{game.CompletedRoute{Route: info}, func(v StateView) bool { return v.Route != nil && v.Route.Steps == 3 }},
		{game.ErrorState{Err: errors.New("boom")}, func(v StateView) bool { return v.Error == "boom" }},
		{game.InvalidCredentials{}, func(v StateView) bool { return v.Error == "" }},
	}

	for _, tc := range cases {
		v := ViewOf(tc.state, at)
		if v.Name != tc.state.Name() || !v.At.Equal(at) {
			t.Errorf("%s: wrong name or time in %+v", tc.state.Name(), v)
		}
		if !tc.check(v) {
			t.Errorf("%s: unexpected view %+v", tc.state.Name(), v)
		}
	}
}

func TestStateAndRouteEndpoints(t *testing.T) {
	status := NewStatus(nil)
	router := NewRouter(status, NewHub(nil))

	var view StateView
	if code := get(t, router, "/api/state", &view); code != http.StatusOK || view.Name != "NotLoggedIn" {
		t.Errorf("expected NotLoggedIn before any state, got %d %+v", code, view)
	}
	if code := get(t, router, "/api/route", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 without a route, got %d", code)
	}

	r := status.Receiver()
	r.OnRouteSelected(game.RouteInfo{ID: "r1", Name: "lap", Steps: 4})
	r.OnStateChanged(game.OnSegment{CurrentSegment: testSegment(t), Direction: segment.BtoA})

	if get(t, router, "/api/state", &view); view.Name != "OnSegment" || view.Segment != "seg-1" {
		t.Errorf("unexpected state %+v", view)
	}
	var route game.RouteInfo
	if code := get(t, router, "/api/route", &route); code != http.StatusOK || route.Name != "lap" || route.Steps != 4 {
		t.Errorf("unexpected route %d %+v", code, route)
	}

	// Progress carried by a state replaces the selected snapshot.
	r.OnStateChanged(game.CompletedRoute{Route: game.RouteInfo{ID: "r1", Name: "lap", Steps: 4, Completed: true}})
	if get(t, router, "/api/route", &route); !route.Completed {
		t.Errorf("expected the completed snapshot, got %+v", route)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(NewStatus(nil), NewHub(nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/state", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestWebSocketStream(t *testing.T) {
	var status *Status
	hub := NewHub(func() []byte { return status.Greeting() })
	status = NewStatus(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(status, hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	hello := readMessage(t, conn)
	if hello.Type != "state" {
		t.Fatalf("expected a state greeting, got %s", hello.Type)
	}
	if payload, _ := hello.Payload.(map[string]interface{}); payload["name"] != "NotLoggedIn" {
		t.Errorf("expected greeting NotLoggedIn, got %v", hello.Payload)
	}

	// The greeting is written only after the hub registered the client.
	status.Receiver().OnStateChanged(game.WaitingForConnection{})
	msg := readMessage(t, conn)
	payload, _ := msg.Payload.(map[string]interface{})
	if msg.Type != "state" || payload["name"] != "WaitingForConnection" {
		t.Errorf("unexpected message %+v", msg)
	}
}
