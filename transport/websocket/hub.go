package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/memory-match/events"
	"github.com/wricardo/memory-match/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 256
)

// Message is what clients receive: one game event with the state after it.
type Message struct {
	Event     string            `json:"event"`
	GameID    string            `json:"game_id,omitempty"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Data      *EventData        `json:"data,omitempty"`
}

// EventData carries the event details that are not part of the state.
type EventData struct {
	CardIDs   []int `json:"card_ids,omitempty"`
	Moves     int   `json:"moves"`
	Score     int   `json:"score,omitempty"`
	HighScore bool  `json:"high_score,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	sessionKey string
}

type outbound struct {
	sessionKey string
	data       []byte
}

type countRequest struct {
	sessionKey string
	reply      chan int
}

// Hub maintains the set of active clients and pushes game events to every
// client of the session the event belongs to.
type Hub struct {
	// Registered clients by session key
	sessions map[string]map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	counts     chan countRequest
	done       chan struct{}

	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub creates a new WebSocket hub. allowedOrigins restricts the Origin
// header of upgrade requests; an empty list accepts any origin.
func NewHub(log *slog.Logger, allowedOrigins ...string) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

// Run starts the hub's event loop and blocks until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		case req := <-h.counts:
			req.reply <- len(h.sessions[req.sessionKey])
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return
		}
	}
}

// ServeWS upgrades the request and attaches the connection to sessionKey.
// A non-nil initial message is sent before any event.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionKey string, initial *Message) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		sessionKey: sessionKey,
	}

	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Publish implements events.Publisher by queueing the event for the
// clients of its session.
func (h *Hub) Publish(ctx context.Context, ev events.Event) error {
	if ev.SessionKey == "" {
		return nil
	}

	data, err := json.Marshal(NewMessage(ev))
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- outbound{sessionKey: ev.SessionKey, data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewMessage converts a game event to the client message format.
func NewMessage(ev events.Event) *Message {
	return &Message{
		Event:     string(ev.Type),
		GameID:    ev.GameID,
		GameState: ev.State,
		Data: &EventData{
			CardIDs:   ev.CardIDs,
			Moves:     ev.Moves,
			Score:     ev.Score,
			HighScore: ev.HighScore,
		},
	}
}

// ClientCount returns the number of connections of a session.
func (h *Hub) ClientCount(sessionKey string) int {
	req := countRequest{sessionKey: sessionKey, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionKey] == nil {
		h.sessions[client.sessionKey] = make(map[*Client]bool)
	}
	h.sessions[client.sessionKey][client] = true
	h.log.Debug("websocket client registered", "clients", len(h.sessions[client.sessionKey]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionKey]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionKey)
			}
			h.log.Debug("websocket client unregistered", "clients", len(clients))
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(msg outbound) {
	if clients, ok := h.sessions[msg.sessionKey]; ok {
		for client := range clients {
			select {
			case client.send <- msg.data:
			default:
				// Client's send channel is full, drop it
				h.unregisterClient(client)
			}
		}
	}
}

// readPump keeps the connection alive; clients only listen.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "error", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
