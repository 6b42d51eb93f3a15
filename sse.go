package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// Event is one message pushed to the clients of a game.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"-"`
}

// MarshalJSON flattens Data next to the type field.
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		m[k] = v
	}
	m["type"] = e.Type
	return json.Marshal(m)
}

// client is one open event stream.
type client struct {
	ch     chan []byte
	gameID string
}

// Broadcaster fans game events out to SSE clients, grouped per game.
type Broadcaster struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{rooms: make(map[string]map[*client]struct{})}
}

// Register joins a new client to gameID. Messages returned by hello are
// queued before any broadcast can reach the client.
func (b *Broadcaster) Register(gameID string, hello ...func() []byte) *client {
	c := &client{ch: make(chan []byte, sseChannelBuffer), gameID: gameID}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range hello {
		if h == nil {
			continue
		}
		if msg := h(); msg != nil {
			c.ch <- msg
		}
	}
	room := b.rooms[gameID]
	if room == nil {
		room = make(map[*client]struct{})
		b.rooms[gameID] = room
	}
	room[c] = struct{}{}
	return c
}

// Unregister removes c and closes its channel. Empty rooms are dropped.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room, ok := b.rooms[c.gameID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.ch)
	if len(room) == 0 {
		delete(b.rooms, c.gameID)
	}
}

// CloseRoom ends every stream of gameID. Their ServeSSE calls return.
func (b *Broadcaster) CloseRoom(gameID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.rooms[gameID]
	for c := range room {
		close(c.ch)
	}
	delete(b.rooms, gameID)
	return len(room)
}

// Publish encodes evt and sends it to every client of the game.
func (b *Broadcaster) Publish(gameID string, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	b.Broadcast(gameID, data)
	return nil
}

// Broadcast sends raw data to the clients of gameID. A client whose buffer
// is full misses the message.
func (b *Broadcaster) Broadcast(gameID string, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.rooms[gameID] {
		select {
		case c.ch <- data:
		default:
		}
	}
}

// ClientCount returns the number of open streams for a game.
func (b *Broadcaster) ClientCount(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[gameID])
}

// ServeSSE streams a game's events until the request ends. hello may be nil.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, gameID string, hello func() []byte, onDisconnect func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	c := b.Register(gameID, hello)
	defer func() {
		b.Unregister(c)
		if onDisconnect != nil {
			onDisconnect()
		}
	}()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
		}
		flusher.Flush()
	}
}
