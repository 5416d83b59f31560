package session

import (
	"sync"

	"interview/internal/models"
)

// Hub groups connections by candidate so server-initiated events reach all of them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*Room)} }

func (h *Hub) GetOrCreate(candidateID string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.getOrCreateLocked(candidateID)
}

func (h *Hub) getOrCreateLocked(candidateID string) *Room {
	if r, ok := h.rooms[candidateID]; ok {
		return r
	}
	r := NewRoom(candidateID)
	h.rooms[candidateID] = r
	return r
}

// Join adds c under the hub lock so a concurrent Leave cannot drop the room
// between lookup and join.
func (h *Hub) Join(candidateID string, c *Client) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.getOrCreateLocked(candidateID)
	r.Join(c)
	return r
}

// Leave removes c and drops the room once it is empty.
func (h *Hub) Leave(candidateID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[candidateID]
	if !ok {
		return
	}
	if r.Leave(c) == 0 {
		delete(h.rooms, candidateID)
	}
}

func (h *Hub) room(candidateID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[candidateID]
}

// Broadcast delivers frame to the candidate's connections other than sender.
func (h *Hub) Broadcast(candidateID string, sender *Client, frame models.WSFrame) int {
	r := h.room(candidateID)
	if r == nil {
		return 0
	}
	return r.Broadcast(sender, frame)
}

func (h *Hub) SendToCandidate(candidateID string, frame models.WSFrame) int {
	return h.Broadcast(candidateID, nil, frame)
}

func (h *Hub) ConnectionCount(candidateID string) int {
	r := h.room(candidateID)
	if r == nil {
		return 0
	}
	return r.GetClientCount()
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// PruneEmpty removes rooms left without clients and returns how many were dropped.
func (h *Hub) PruneEmpty() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, r := range h.rooms {
		if r.GetClientCount() == 0 {
			delete(h.rooms, id)
			n++
		}
	}
	return n
}
