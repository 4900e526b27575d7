/*
Package listener
File: listener.go
Description:
    Accepts the single inbound TCP connection from the game and turns it into a
    stream of lifecycle and data events.

    Two watchdogs report liveness without ending anything:
    - the accept watchdog fires AcceptTimeoutExpired when no client connects in time,
    - the data watchdog fires DataTimeoutExpired when the client is silent in time.
    When the client goes away the listener reports ConnectionLost and goes back to
    accepting, so one Serve call sees any number of connect/disconnect cycles.
*/

package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

var ErrNotConnected = errors.New("no game connection")

// writeTimeout bounds a single Send to a game that is not reading.
const writeTimeout = 5 * time.Second

// EventKind enumerates what the listener reports.
type EventKind int

const (
	AcceptTimeoutExpired EventKind = iota + 1
	ConnectionAccepted
	Data
	DataTimeoutExpired
	ConnectionLost
)

func (k EventKind) String() string {
	switch k {
	case AcceptTimeoutExpired:
		return "AcceptTimeoutExpired"
	case ConnectionAccepted:
		return "ConnectionAccepted"
	case Data:
		return "Data"
	case DataTimeoutExpired:
		return "DataTimeoutExpired"
	case ConnectionLost:
		return "ConnectionLost"
	default:
		return "Unknown"
	}
}

type Event struct {
	Kind   EventKind
	Data   []byte   // set for Data events only
	Remote net.Addr // set for ConnectionAccepted
}

type Config struct {
	BindAddress   string
	Port          int
	AcceptTimeout time.Duration
	DataTimeout   time.Duration
	ReadBuffer    int
}

// Listener owns the game connection exclusively. Create one per Serve call.
type Listener struct {
	cfg    Config
	events chan Event

	mu     sync.Mutex
	ln     *net.TCPListener
	client net.Conn

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) *Listener {
	if cfg.ReadBuffer <= 0 {
		cfg.ReadBuffer = 4096
	}
	return &Listener{
		cfg:    cfg,
		events: make(chan Event, 64),
		stop:   make(chan struct{}),
	}
}

// Events is the ordered event stream. It is never closed; stop reading once Serve returns.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Listen binds the TCP socket. Port 0 picks a free port; see Addr.
func (l *Listener) Listen() error {
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(l.cfg.BindAddress, fmt.Sprint(l.cfg.Port)))
	if err != nil {
		return fmt.Errorf("resolving listen address: %w", err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	log.Printf("LISTENER: waiting for the game on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Start binds and serves until ctx is cancelled or Stop is called.
func (l *Listener) Start(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return l.Serve(ctx)
}

// Serve runs the accept loop on a socket bound with Listen.
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return errors.New("listener is not bound")
	}
	defer l.Stop()

	// Closing the sockets is what unblocks a pending accept or read.
	go func() {
		select {
		case <-ctx.Done():
		case <-l.stop:
		}
		l.cleanup()
	}()

	for !l.stopped(ctx) {
		ln.SetDeadline(time.Now().Add(l.cfg.AcceptTimeout))
		conn, err := ln.AcceptTCP()
		if err != nil {
			if l.stopped(ctx) {
				return nil
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				log.Printf("LISTENER: no connection within %s", l.cfg.AcceptTimeout)
				l.emit(ctx, Event{Kind: AcceptTimeoutExpired})
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("LISTENER: accept failed: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		l.setClient(conn)
		log.Printf("LISTENER: game connected from %s", conn.RemoteAddr())
		l.emit(ctx, Event{Kind: ConnectionAccepted, Remote: conn.RemoteAddr()})

		l.readLoop(ctx, conn)
		l.closeClient()

		if l.stopped(ctx) {
			return nil
		}
		l.emit(ctx, Event{Kind: ConnectionLost})
	}
	return nil
}

func (l *Listener) readLoop(ctx context.Context, conn net.Conn) {
	buf := make([]byte, l.cfg.ReadBuffer)
	for {
		conn.SetReadDeadline(time.Now().Add(l.cfg.DataTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			l.emit(ctx, Event{Kind: Data, Data: data})
		}
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, os.ErrDeadlineExceeded):
			log.Printf("LISTENER: no data within %s", l.cfg.DataTimeout)
			l.emit(ctx, Event{Kind: DataTimeoutExpired})
		case errors.Is(err, io.EOF):
			log.Printf("LISTENER: game closed the connection")
			return
		case l.stopped(ctx):
			return
		default:
			log.Printf("LISTENER: connection error: %v", err)
			return
		}
	}
}

func (l *Listener) emit(ctx context.Context, ev Event) {
	select {
	case l.events <- ev:
	case <-ctx.Done():
	case <-l.stop:
	}
}

// Stop unblocks any pending accept or read and ends Serve. Safe to call more than once.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.cleanup()
}

func (l *Listener) stopped(ctx context.Context) bool {
	select {
	case <-l.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Connected reports whether a game client is attached.
func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.client != nil
}

// Send writes a raw payload to the connected game. The write runs outside the
// lock so a peer that stops reading cannot hold up Stop or Connected.
func (l *Listener) Send(payload []byte) error {
	l.mu.Lock()
	conn := l.client
	l.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("sending to game: %w", err)
	}
	return nil
}

func (l *Listener) setClient(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.client = conn
}

// closeClient is the single teardown path for the client socket.
func (l *Listener) closeClient() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		l.client.Close()
		l.client = nil
	}
}

func (l *Listener) cleanup() {
	l.closeClient()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		l.ln.Close()
	}
}
