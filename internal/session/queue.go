package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var ErrQueueClosed = errors.New("turn queue closed")

type queuedJob struct {
	fn   func()
	done chan struct{}
}

type keyQueue struct {
	jobs []queuedJob
}

// TurnQueue runs jobs one at a time per key, in arrival order. Each key gets a
// worker goroutine only while it has pending jobs; distinct keys run in parallel.
type TurnQueue struct {
	mu     sync.Mutex
	queues map[string]*keyQueue
	closed bool
	wg     sync.WaitGroup
	log    *zap.Logger
}

func NewTurnQueue(log *zap.Logger) *TurnQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &TurnQueue{queues: make(map[string]*keyQueue), log: log}
}

// Enqueue schedules fn after every job already queued for key. The returned
// channel is closed once fn has returned.
func (q *TurnQueue) Enqueue(key string, fn func()) (<-chan struct{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	done := make(chan struct{})
	kq, running := q.queues[key]
	if !running {
		kq = &keyQueue{}
		q.queues[key] = kq
	}
	kq.jobs = append(kq.jobs, queuedJob{fn: fn, done: done})
	if !running {
		q.wg.Add(1)
		go q.drain(key, kq)
	}
	return done, nil
}

func (q *TurnQueue) drain(key string, kq *keyQueue) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(kq.jobs) == 0 {
			delete(q.queues, key)
			q.mu.Unlock()
			return
		}
		j := kq.jobs[0]
		kq.jobs[0] = queuedJob{}
		kq.jobs = kq.jobs[1:]
		q.mu.Unlock()

		q.run(key, j)
	}
}

func (q *TurnQueue) run(key string, j queuedJob) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("turn job panicked", zap.String("key", key), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	j.fn()
}

// Pending reports jobs waiting for key, excluding the one currently running.
func (q *TurnQueue) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if kq, ok := q.queues[key]; ok {
		return len(kq.jobs)
	}
	return 0
}

// Close rejects new jobs and waits for queued ones to finish or ctx to expire.
func (q *TurnQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
