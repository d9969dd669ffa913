package realtime

import (
	"context"
	"sync"
	"sync/atomic"
)

const DefaultBuffer = 64

// Hub fans events out to in-process subscribers by topic.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

// Subscription receives events for its topics on C until Close.
type Subscription struct {
	C <-chan Event

	c       chan Event
	topics  map[string]struct{}
	hub     *Hub
	once    sync.Once
	dropped atomic.Int64
}

func (h *Hub) Subscribe(topics ...string) *Subscription {
	c := make(chan Event, h.buffer)
	s := &Subscription{C: c, c: c, topics: make(map[string]struct{}, len(topics)), hub: h}

	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.c)
		s.hub.mu.Unlock()
	})
}

// Dropped counts events discarded because the subscriber fell behind.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// Dispatch never blocks: a full subscriber buffer drops the event.
func (h *Hub) Dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if _, ok := s.topics[ev.Topic]; !ok {
			continue
		}

		select {
		case s.c <- ev:
		default:
			s.dropped.Add(1)
		}
	}
}

// Publish makes the hub a Publisher for single-instance deployments.
func (h *Hub) Publish(_ context.Context, events ...Event) {
	for _, ev := range events {
		h.Dispatch(ev)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs)
}
