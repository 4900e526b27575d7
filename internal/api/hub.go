/*
Package api
File: hub.go
Description:
    The WebSocket Hub pushes the navigation state stream to UI clients.

    It keeps a registry of connected clients and a broadcast channel. Every
    state the Status receiver publishes lands on Broadcast and is written to
    the socket of each client. A new client first receives the current state
    so it does not have to wait for the next change.
*/

package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Message is the JSON envelope of everything sent over the socket.
type Message struct {
	Type    string      `json:"type"` // "state" or "route"
	Payload interface{} `json:"payload"`
}

// Client is one connected UI.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	clients map[*Client]bool

	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// greet returns the message a new client receives first; nil sends nothing.
	greet func() []byte
}

func NewHub(greet func() []byte) *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		greet:      greet,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Printf("WS: client connected (%d total)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full, the client is stuck.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish encodes msg and queues it for every client. It never blocks the caller;
// when the hub falls behind the message is dropped.
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WS: cannot encode %s message: %v", msg.Type, err)
		return
	}
	select {
	case h.Broadcast <- data:
	default:
		log.Printf("WS: WARN broadcast queue full, dropping %s message", msg.Type)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and attaches the connection to the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WS: upgrade failed:", err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	if hub.greet != nil {
		if hello := hub.greet(); hello != nil {
			client.send <- hello
		}
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only watches for the client going away; UI clients do not send anything.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: read error: %v", err)
			}
			return
		}
	}
}

// writePump exits when the hub closes c.send.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
