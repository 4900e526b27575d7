/*
Package game
File: machine.go
Description:
    The Machine turns the game connection's lifecycle and telemetry into the
    ordered GameState stream.

    It runs four tasks, each with its own cancellation: the listener (which
    also pumps listener events), the connection initiator, the message handler
    and the navigation loop. Tasks are started only if not already running and
    are always cancelled and awaited before the state that follows is dispatched.
*/

package game

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/everforgeworks/roadnav/internal/config"
	"github.com/everforgeworks/roadnav/internal/geo"
	"github.com/everforgeworks/roadnav/internal/listener"
	"github.com/everforgeworks/roadnav/internal/protocol"
	"github.com/everforgeworks/roadnav/internal/route"
	"github.com/everforgeworks/roadnav/internal/segment"
)

type SegmentStore interface {
	LoadSegments(world geo.WorldID, sport string) ([]*segment.Segment, error)
}

type RouteStore interface {
	LoadFrom(path string) (*route.PlannedRoute, error)
}

// session is the per-connection plumbing between the listener pump, the
// message handler and the navigation task.
type session struct {
	plan   *route.PlannedRoute
	inbox  chan []byte
	nav    chan protocol.Message
	inGame bool
}

type Machine struct {
	cfg        config.Config
	segments   SegmentStore
	routes     RouteStore
	initiator  Initiator
	dispatcher *Dispatcher
	now        func() time.Time

	mu       sync.Mutex
	base     context.Context
	tasks    map[TaskName]*task
	listener *listener.Listener
	graph    *segment.Graph
	session  *session
}

func NewMachine(cfg config.Config, segments SegmentStore, routes RouteStore, initiator Initiator, dispatcher *Dispatcher) *Machine {
	if initiator == nil {
		initiator = NoopInitiator{}
	}
	return &Machine{
		cfg:        cfg,
		segments:   segments,
		routes:     routes,
		initiator:  initiator,
		dispatcher: dispatcher,
		now:        time.Now,
		tasks:      make(map[TaskName]*task),
	}
}

// Start logs in with the configured access token.
func (m *Machine) Start(ctx context.Context) error {
	return m.Login(ctx, m.cfg.AccessToken)
}

// Login validates token and, when it is good, starts listening for the game.
// Calling it again while the listener runs does nothing.
func (m *Machine) Login(ctx context.Context, token string) error {
	if err := ValidateAccessToken(token, m.now()); err != nil {
		m.stopAll()
		log.Printf("GAME: login refused: %v", err)
		m.dispatcher.Dispatch(InvalidCredentials{Err: err})
		return err
	}
	if m.Running(TaskListener) {
		return nil
	}
	m.dispatcher.Dispatch(LoggedIn{})

	graph, err := m.loadGraph()
	if err != nil {
		m.fail(err)
		return err
	}

	l := listener.New(m.cfg.Listener())
	if err := l.Listen(); err != nil {
		m.fail(err)
		return err
	}
	port := l.Addr().(*net.TCPAddr).Port

	m.mu.Lock()
	m.base = ctx
	m.graph = graph
	m.listener = l
	m.mu.Unlock()

	m.dispatcher.Dispatch(WaitingForConnection{})
	m.startTask(TaskListener, func(ctx context.Context) error {
		return m.runListener(ctx, l)
	})
	m.startTask(TaskInitiator, func(ctx context.Context) error {
		return m.initiator.Initiate(ctx, port)
	})
	return nil
}

// Stop cancels and awaits every task, then reports NotLoggedIn.
func (m *Machine) Stop() {
	m.stopAll()
	m.dispatcher.Dispatch(NotLoggedIn{})
}

// Running reports whether the named task is alive.
func (m *Machine) Running(name TaskName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[name]
	return ok && t.running()
}

// ListenerAddr is the address the game should connect to, or nil when not listening.
func (m *Machine) ListenerAddr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

func (m *Machine) loadGraph() (*segment.Graph, error) {
	segments, err := m.segments.LoadSegments(m.cfg.WorldID(), m.cfg.Sport)
	if err != nil {
		return nil, fmt.Errorf("loading segments: %w", err)
	}
	graph, err := segment.NewGraph(segments)
	if err != nil {
		return nil, fmt.Errorf("building segment graph: %w", err)
	}
	log.Printf("GAME: loaded %d segments for %s", graph.Len(), m.cfg.World)
	return graph, nil
}

func (m *Machine) loadRoute(graph *segment.Graph) (*route.PlannedRoute, error) {
	if m.cfg.RoutePath == "" {
		return nil, nil
	}
	plan, err := m.routes.LoadFrom(m.cfg.RoutePath)
	if err != nil {
		return nil, fmt.Errorf("loading route: %w", err)
	}
	if m.cfg.LoopRoute {
		plan.Loop = true
	}
	if err := plan.Validate(graph); err != nil {
		return nil, fmt.Errorf("route %q: %w", plan.Name, err)
	}
	return plan, nil
}

func (m *Machine) fail(err error) {
	log.Printf("GAME: ERROR %v", err)
	m.dispatcher.Dispatch(ErrorState{Err: err})
}

func (m *Machine) startTask(name TaskName, run func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[name]; ok && t.running() {
		return
	}
	parent := m.base
	if parent == nil {
		parent = context.Background()
	}
	m.tasks[name] = startTask(parent, name, run)
}

func (m *Machine) stopTask(name TaskName) {
	m.mu.Lock()
	t, ok := m.tasks[name]
	delete(m.tasks, name)
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := t.stop(stopTimeout); err != nil {
		log.Printf("GAME: stopping %s: %v", name, err)
	}
}

func (m *Machine) stopAll() {
	m.stopTask(TaskListener)
	m.stopTask(TaskInitiator)
	m.stopTask(TaskMessageHandler)
	m.stopTask(TaskNavigation)

	m.mu.Lock()
	m.listener = nil
	m.session = nil
	m.mu.Unlock()
}

// runListener serves the game socket and pumps its events until ctx ends.
func (m *Machine) runListener(ctx context.Context, l *listener.Listener) error {
	served := make(chan error, 1)
	go func() { served <- l.Serve(ctx) }()

	for {
		select {
		case err := <-served:
			if err == nil {
				err = ctx.Err()
			}
			return err
		case ev := <-l.Events():
			m.handleEvent(ctx, ev)
		}
	}
}

func (m *Machine) handleEvent(ctx context.Context, ev listener.Event) {
	switch ev.Kind {
	case listener.ConnectionAccepted:
		m.connected()
	case listener.Data:
		m.mu.Lock()
		s := m.session
		m.mu.Unlock()
		if s == nil {
			return
		}
		select {
		case s.inbox <- ev.Data:
		case <-ctx.Done():
		}
	case listener.ConnectionLost:
		m.stopTask(TaskMessageHandler)
		m.stopTask(TaskNavigation)
		m.mu.Lock()
		m.session = nil
		m.mu.Unlock()
		m.dispatcher.Dispatch(WaitingForConnection{})
	}
}

func (m *Machine) connected() {
	m.dispatcher.Dispatch(ConnectedToGame{})

	m.mu.Lock()
	graph := m.graph
	m.mu.Unlock()

	plan, err := m.loadRoute(graph)
	if err != nil {
		m.fail(err)
		return
	}
	if plan != nil {
		m.dispatcher.RouteSelected(Snapshot(plan))
	}

	s := &session{
		plan:  plan,
		inbox: make(chan []byte, 64),
		nav:   make(chan protocol.Message, 64),
	}
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	m.startTask(TaskMessageHandler, func(ctx context.Context) error {
		return m.runHandler(ctx, s)
	})
}

// runHandler decodes the connection's byte stream and routes the messages.
func (m *Machine) runHandler(ctx context.Context, s *session) error {
	dec := protocol.NewDecoder()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-s.inbox:
			for _, msg := range dec.Feed(data) {
				if err := m.handleMessage(ctx, s, msg); err != nil {
					return err
				}
			}
		}
	}
}

func (m *Machine) handleMessage(ctx context.Context, s *session, msg protocol.Message) error {
	switch msg := msg.(type) {
	case protocol.RiderPosition:
		if !s.inGame {
			s.inGame = true
			m.dispatcher.Dispatch(InGame{})
			m.startTask(TaskNavigation, func(ctx context.Context) error {
				return m.runNavigation(ctx, s)
			})
		}
	case protocol.CommandAvailable:
		if !s.inGame {
			return nil
		}
	case protocol.PowerUpAvailable:
		log.Printf("GAME: power-up available: %s", msg.PowerUp)
		return nil
	case protocol.Ping:
		log.Printf("GAME: ping from rider %d", msg.RiderID)
		return nil
	default:
		return nil
	}

	select {
	case s.nav <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) runNavigation(ctx context.Context, s *session) error {
	m.mu.Lock()
	graph := m.graph
	m.mu.Unlock()

	nav := newNavigator(graph, s.plan, m.cfg.WorldID(), m.cfg.EndActivityOnCompletion, m.dispatcher.Dispatch, m.send)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-s.nav:
			nav.handle(msg)
		}
	}
}

// send writes a text command to the game.
func (m *Machine) send(command string) error {
	m.mu.Lock()
	l := m.listener
	m.mu.Unlock()
	if l == nil {
		return listener.ErrNotConnected
	}
	if err := l.Send(protocol.EncodeCommand(command)); err != nil {
		return err
	}
	log.Printf("GAME: sent %s", command)
	return nil
}
