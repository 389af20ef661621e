package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/memory-match/events"
	"github.com/wricardo/memory-match/game/engine"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("Expected hub to be created")
	}
	if hub.sessions == nil {
		t.Error("Expected sessions map to be initialized")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Expected hub channels to be initialized")
	}
}

func TestHub_RegisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{hub: hub, send: make(chan []byte, 1), sessionKey: "s1"}
	hub.registerClient(client)

	if len(hub.sessions["s1"]) != 1 {
		t.Errorf("Expected 1 client in session, got %d", len(hub.sessions["s1"]))
	}

	other := &Client{hub: hub, send: make(chan []byte, 1), sessionKey: "s1"}
	hub.registerClient(other)

	if len(hub.sessions["s1"]) != 2 {
		t.Errorf("Expected 2 clients in session, got %d", len(hub.sessions["s1"]))
	}
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{hub: hub, send: make(chan []byte, 1), sessionKey: "s1"}
	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, ok := hub.sessions["s1"]; ok {
		t.Error("Expected empty session to be removed")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}

	// A second unregister must not close the channel twice.
	hub.unregisterClient(client)
}

func TestHub_BroadcastMessage(t *testing.T) {
	hub := NewHub(nil)

	a := &Client{hub: hub, send: make(chan []byte, 1), sessionKey: "s1"}
	b := &Client{hub: hub, send: make(chan []byte, 1), sessionKey: "s2"}
	hub.registerClient(a)
	hub.registerClient(b)

	hub.broadcastMessage(outbound{sessionKey: "s1", data: []byte("hello")})

	select {
	case msg := <-a.send:
		if string(msg) != "hello" {
			t.Errorf("Expected 'hello', got %q", msg)
		}
	default:
		t.Error("Expected client in s1 to receive the message")
	}

	select {
	case msg := <-b.send:
		t.Errorf("Expected client in s2 to receive nothing, got %q", msg)
	default:
	}
}

func TestHub_BroadcastDropsFullClient(t *testing.T) {
	hub := NewHub(nil)

	slow := &Client{hub: hub, send: make(chan []byte, 1), sessionKey: "s1"}
	hub.registerClient(slow)

	hub.broadcastMessage(outbound{sessionKey: "s1", data: []byte("1")})
	hub.broadcastMessage(outbound{sessionKey: "s1", data: []byte("2")})

	if _, ok := hub.sessions["s1"]; ok {
		t.Error("Expected slow client to be dropped")
	}
}

func TestNewMessage(t *testing.T) {
	state := &engine.GameState{Moves: 3, FlippedCards: []int{}}
	ev := events.Event{
		Type:       events.NoMatch,
		SessionKey: "s1",
		GameID:     "g1",
		CardIDs:    []int{1, 4},
		Moves:      3,
		State:      state,
	}

	msg := NewMessage(ev)

	if msg.Event != "no_match" {
		t.Errorf("Expected event 'no_match', got %q", msg.Event)
	}
	if msg.GameID != "g1" {
		t.Errorf("Expected game id 'g1', got %q", msg.GameID)
	}
	if msg.GameState != state {
		t.Error("Expected game state to be attached")
	}
	if len(msg.Data.CardIDs) != 2 || msg.Data.Moves != 3 {
		t.Errorf("Unexpected data: %+v", msg.Data)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal message: %v", err)
	}
	if strings.Contains(string(data), "s1") {
		t.Error("Expected session key to stay out of the message")
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"any origin when unrestricted", nil, "http://evil.example", true},
		{"allowed origin", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"other origin", []string{"http://localhost:8080"}, "http://evil.example", false},
		{"no origin header", []string{"http://localhost:8080"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.allowed)(r); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func dial(t *testing.T, hub *Hub, key string, initial *Message) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, key, initial)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, key string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(key) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients for %q, got %d", want, key, hub.ClientCount(key))
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to decode message %q: %v", data, err)
	}
	return msg
}

func TestHub_ServeWS(t *testing.T) {
	hub := startHub(t)

	initial := &Message{Event: "connected", GameID: "g1"}
	conn := dial(t, hub, "s1", initial)

	msg := readMessage(t, conn)
	if msg.Event != "connected" {
		t.Errorf("Expected initial 'connected' message, got %q", msg.Event)
	}

	waitForClients(t, hub, "s1", 1)

	conn.Close()
	waitForClients(t, hub, "s1", 0)
}

func TestHub_Publish(t *testing.T) {
	hub := startHub(t)

	conn := dial(t, hub, "s1", nil)
	other := dial(t, hub, "s2", nil)
	waitForClients(t, hub, "s1", 1)
	waitForClients(t, hub, "s2", 1)

	ev := events.Event{
		Type:       events.MatchFound,
		SessionKey: "s1",
		GameID:     "g1",
		CardIDs:    []int{0, 5},
		Moves:      1,
	}
	if err := hub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Event != "match_found" {
		t.Errorf("Expected 'match_found', got %q", msg.Event)
	}
	if msg.Data == nil || len(msg.Data.CardIDs) != 2 {
		t.Errorf("Expected two card ids, got %+v", msg.Data)
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("Expected other session to receive nothing")
	}
}

func TestHub_PublishWithoutSessionKey(t *testing.T) {
	hub := NewHub(nil)

	// Nothing is running the hub; an unkeyed event must return immediately.
	if err := hub.Publish(context.Background(), events.Event{Type: events.GameStarted}); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return after cancel")
	}

	if n := hub.ClientCount("s1"); n != 0 {
		t.Errorf("Expected 0 clients after shutdown, got %d", n)
	}
	if err := hub.Publish(context.Background(), events.Event{Type: events.GameStarted, SessionKey: "s1"}); err != nil {
		t.Errorf("Expected publish after shutdown to be dropped, got %v", err)
	}
}
