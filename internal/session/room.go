package session

import (
	"sync"

	"interview/internal/models"
)

// Room holds every open connection of one candidate.
type Room struct {
	CandidateID string
	mu          sync.Mutex
	clients     map[*Client]struct{}
}

func NewRoom(candidateID string) *Room {
	return &Room{CandidateID: candidateID, clients: make(map[*Client]struct{})}
}

func (r *Room) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

func (r *Room) GetClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Room) Leave(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
	return len(r.clients)
}

// Broadcast sends frame to every client except sender. A nil sender reaches everyone.
func (r *Room) Broadcast(sender *Client, frame models.WSFrame) int {
	r.mu.Lock()
	targets := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c == sender {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.Unlock()

	for _, c := range targets {
		c.Send(frame)
	}
	return len(targets)
}
