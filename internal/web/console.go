package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hpungsan/harbor/internal/preview"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

// sameOrigin accepts requests without an Origin header (non-browser clients)
// and browser requests from the serving host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// hubMessage is one frame fanned out by the hub. A nil sender reaches every
// client.
type hubMessage struct {
	data   []byte
	sender *Client
}

// Hub fans console output from preview documents out to every connected
// console. Delivery is fire-and-forget: a client whose buffer is full misses
// the message.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan hubMessage
	done       chan struct{}
	count      atomic.Int32
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan hubMessage, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.count.Store(0)
			close(h.done)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int32(len(h.clients)))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int32(len(h.clients)))
			}

		case m := <-h.broadcast:
			for c := range h.clients {
				if c == m.sender {
					continue
				}
				select {
				case c.send <- m.data:
				default:
				}
			}
		}
	}
}

// Clients reports how many consoles are connected.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Publish sends a console message to every client.
func (h *Hub) Publish(msg *preview.ConsoleMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("console: encode message: %v", err)
		return
	}
	h.send(hubMessage{data: data})
}

// Clear tells every console to drop its log, as happens when a new preview
// document is published.
func (h *Hub) Clear() {
	h.send(hubMessage{data: []byte(`{"type":"clear"}`)})
}

func (h *Hub) send(m hubMessage) {
	select {
	case h.broadcast <- m:
	default:
		log.Printf("console: hub backlog full, dropping message")
	}
}

// Client is one websocket connection to the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// ServeConsole upgrades the request and attaches the connection to the hub.
// Frames read from the connection must be console messages; they are relayed
// to the other clients.
func (h *Hub) ServeConsole(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("console: upgrade failed: %v", err)
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("console: read: %v", err)
			}
			return
		}
		msg, err := preview.ParseConsoleMessage(data)
		if err != nil {
			continue
		}
		out, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		c.hub.send(hubMessage{data: out, sender: c})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
