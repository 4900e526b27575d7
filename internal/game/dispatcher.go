/*
Package game
File: dispatcher.go
Description:
    The Dispatcher fans GameState values out to registered receivers.

    All states go through one queue and are delivered by a single Run loop,
    so every receiver sees them in the order they were dispatched. Receivers
    are called synchronously; a slow receiver delays the others instead of
    losing states.
*/

package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Receiver is a set of callbacks; nil callbacks are skipped.
type Receiver struct {
	OnStateChanged  func(GameState)
	OnRouteSelected func(RouteInfo)
}

type delivery struct {
	state   GameState
	route   *RouteInfo
	flushed chan struct{}
}

type Dispatcher struct {
	mu        sync.RWMutex
	receivers map[uuid.UUID]Receiver
	order     []uuid.UUID
	last      GameState

	queue chan delivery
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		receivers: make(map[uuid.UUID]Receiver),
		last:      NotLoggedIn{},
		queue:     make(chan delivery, 256),
	}
}

// Register adds a receiver. It sees every state dispatched after this call.
func (d *Dispatcher) Register(r Receiver) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.receivers[id] = r
	d.order = append(d.order, id)
	return id
}

func (d *Dispatcher) Unregister(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.receivers[id]; !ok {
		return
	}
	delete(d.receivers, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Dispatch queues a state for delivery. It blocks only while the queue is full.
func (d *Dispatcher) Dispatch(s GameState) {
	d.mu.Lock()
	d.last = s
	d.mu.Unlock()
	d.queue <- delivery{state: s}
}

// RouteSelected tells receivers which route is being navigated.
func (d *Dispatcher) RouteSelected(info RouteInfo) {
	d.queue <- delivery{route: &info}
}

// Last returns the most recently dispatched state.
func (d *Dispatcher) Last() GameState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Drain waits until everything dispatched before the call has been delivered.
func (d *Dispatcher) Drain(ctx context.Context) error {
	flushed := make(chan struct{})
	select {
	case d.queue <- delivery{flushed: flushed}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers queued states until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.queue:
			d.deliver(item)
		}
	}
}

func (d *Dispatcher) deliver(item delivery) {
	if item.flushed != nil {
		close(item.flushed)
		return
	}

	d.mu.RLock()
	receivers := make([]Receiver, 0, len(d.order))
	for _, id := range d.order {
		receivers = append(receivers, d.receivers[id])
	}
	d.mu.RUnlock()

	for _, r := range receivers {
		switch {
		case item.state != nil && r.OnStateChanged != nil:
			r.OnStateChanged(item.state)
		case item.route != nil && r.OnRouteSelected != nil:
			r.OnRouteSelected(*item.route)
		}
	}
}
