package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultSubscriberBuffer = 16

// ErrHubClosed is returned by consumers whose subscription ended because the
// hub shut down.
var ErrHubClosed = errors.New("event hub closed")

// Hub is the in-process broadcaster. Each subscriber gets a bounded buffer;
// a subscriber that falls behind loses events rather than slowing publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool

	dropped atomic.Int64
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{subs: make(map[uint64]*Subscription), buffer: buffer}
}

type Subscription struct {
	C    <-chan Event
	ch   chan Event
	id   uint64
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, h.buffer)
	h.nextID++
	sub := &Subscription{C: ch, ch: ch, id: h.nextID, hub: h}
	if h.closed {
		sub.once.Do(func() { close(ch) })
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers event to every current subscriber without blocking.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
			slog.Warn("event dropped for slow subscriber", "subscriber", sub.id, "kind", event.Kind, "report_id", event.ReportID.String())
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.closed = true
	h.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}
