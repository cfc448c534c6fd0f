package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SongEvent announces a freshly cataloged upload to connected clients.
type SongEvent struct {
	Type     string    `json:"type"`
	SongID   int64     `json:"song_id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	At       time.Time `json:"at"`
}

// ScoreEvent announces a leaderboard submission to connected clients.
type ScoreEvent struct {
	Type         string    `json:"type"`
	EntryID      int64     `json:"entry_id"`
	PlayerName   string    `json:"player_name"`
	SongName     string    `json:"song_name"`
	SongCategory string    `json:"song_category"`
	Score        int64     `json:"score"`
	At           time.Time `json:"at"`
}

// Hub fans events out to websocket clients. Broadcast is best-effort; a
// client that fails a write is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *Hub) Add(ws *websocket.Conn) {
	h.mu.Lock()
	h.clients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients {
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.clients, ws)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
