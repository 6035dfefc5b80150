package websocket

import (
	"log"
	"sync"
	"time"

	"communityhub/models"
)

// Conn is the subset of a websocket connection the hub writes to
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Board is the aggregator surface the hub drives
type Board interface {
	RequestRefresh(online map[string]bool)
	Entries() []models.LeaderboardEntry
	Ready() bool
}

// PresenceClient represents one viewer's presence channel
type PresenceClient struct {
	Conn     Conn
	UserID   string
	Name     string
	OnlineAt time.Time
	writeMu  sync.Mutex
}

// SafeWriteJSON safely writes JSON data to the client's connection
func (pc *PresenceClient) SafeWriteJSON(v interface{}) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	return pc.Conn.WriteJSON(v)
}

// PresenceHub tracks which viewers hold an open presence channel. Exactly
// one channel exists per viewer identity: registering a new channel for a
// viewer tears the previous one down first. Every join and leave recomputes
// the full online set from hub state and hands it to the board as the
// authoritative presence snapshot.
type PresenceHub struct {
	mu      sync.RWMutex
	clients map[string]*PresenceClient // keyed by user ID
	board   Board
}

// NewPresenceHub creates the hub
func NewPresenceHub(board Board) *PresenceHub {
	return &PresenceHub{
		clients: make(map[string]*PresenceClient),
		board:   board,
	}
}

// Register tracks a viewer's presence channel, replacing any previous
// channel for the same viewer
func (h *PresenceHub) Register(client *PresenceClient) {
	h.mu.Lock()
	if prev, exists := h.clients[client.UserID]; exists && prev != client {
		// Best-effort teardown of the stale channel; errors are swallowed
		prev.Conn.Close()
	}
	h.clients[client.UserID] = client
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("Presence channel opened for %s. Viewers online: %d", client.UserID, total)
	h.syncPresence()
}

// Unregister drops a viewer's presence channel. A channel that has already
// been replaced by a newer one for the same viewer is ignored.
func (h *PresenceHub) Unregister(client *PresenceClient) {
	h.mu.Lock()
	current, exists := h.clients[client.UserID]
	if !exists || current != client {
		h.mu.Unlock()
		client.Conn.Close()
		return
	}
	delete(h.clients, client.UserID)
	total := len(h.clients)
	h.mu.Unlock()

	client.Conn.Close()
	log.Printf("Presence channel closed for %s. Viewers online: %d", client.UserID, total)
	h.syncPresence()
}

// syncPresence recomputes the full online set and pushes it to the board.
// Collapsing join, leave and sync into one full recompute keeps the set
// immune to missed-event drift.
func (h *PresenceHub) syncPresence() {
	h.board.RequestRefresh(h.OnlineIDs())
}

// OnlineIDs returns the current online set
func (h *PresenceHub) OnlineIDs() map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	online := make(map[string]bool, len(h.clients))
	for userID := range h.clients {
		online[userID] = true
	}
	return online
}

// Count returns the number of open presence channels
func (h *PresenceHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastBoard pushes a fresh board snapshot to every connected viewer
func (h *PresenceHub) BroadcastBoard(entries []models.LeaderboardEntry) {
	h.mu.RLock()
	clients := make([]*PresenceClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	message := map[string]interface{}{
		"type":      "leaderboard",
		"entries":   entries,
		"timestamp": time.Now().Unix(),
	}

	for _, client := range clients {
		if err := client.SafeWriteJSON(message); err != nil {
			log.Printf("Error broadcasting board to %s: %v", client.UserID, err)
			// Remove client if write fails
			go h.Unregister(client)
		}
	}
}
