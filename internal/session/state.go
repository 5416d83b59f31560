package session

import (
	"sync"
	"time"
)

type State string

const (
	StateNoSession  State = "NO_SESSION"
	StateActive     State = "ACTIVE"
	StateFinalizing State = "FINALIZING"
	StateClosed     State = "CLOSED"
)

// lifecycle tracks the transient states that the cache alone cannot express:
// an in-flight finalize and a recently closed interview.
type lifecycle struct {
	mu         sync.Mutex
	finalizing map[string]struct{}
	closed     map[string]time.Time
}

func newLifecycle() *lifecycle {
	return &lifecycle{finalizing: make(map[string]struct{}), closed: make(map[string]time.Time)}
}

// beginFinalize returns false if a finalize is already pending for the candidate.
func (l *lifecycle) beginFinalize(candidateID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.finalizing[candidateID]; busy {
		return false
	}
	l.finalizing[candidateID] = struct{}{}
	return true
}

func (l *lifecycle) endFinalize(candidateID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.finalizing, candidateID)
}

func (l *lifecycle) isFinalizing(candidateID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.finalizing[candidateID]
	return ok
}

func (l *lifecycle) markClosed(candidateID string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed[candidateID] = at
}

func (l *lifecycle) isClosed(candidateID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.closed[candidateID]
	return ok
}

func (l *lifecycle) reopen(candidateID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.closed, candidateID)
}

func (l *lifecycle) pruneClosed(before time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, at := range l.closed {
		if at.Before(before) {
			delete(l.closed, id)
			n++
		}
	}
	return n
}
