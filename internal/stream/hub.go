// Package stream fans out message lifecycle events to live feed
// subscribers.
package stream

import (
	"sync"

	"go.uber.org/zap"
)

// Event names sent on the live feed.
const (
	EventAdded       = "added"
	EventEdited      = "edited"
	EventInvalidated = "invalidated"
)

// Event is one lifecycle notification. Message carries the full joined
// record as it would appear in a query response.
type Event struct {
	Type    string `json:"type"`
	Message any    `json:"message"`
}

// Hub broadcasts events to all registered subscribers. Subscribers that
// cannot keep up are dropped rather than allowed to stall the hub.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	buffer int
	logger *zap.Logger
}

type Subscriber struct {
	ch   chan Event
	once sync.Once
}

// Events is the receive channel. Closed when the subscriber is dropped
// or unsubscribed.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		sub.once.Do(func() { close(sub.ch) })
	}
}

// Publish delivers the event to every subscriber without blocking.
// A subscriber with a full buffer is dropped and its channel closed.
func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	var dropped []*Subscriber
	for sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		delete(h.subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range dropped {
		sub.once.Do(func() { close(sub.ch) })
	}
	if len(dropped) > 0 {
		h.logger.Warn("dropped slow live feed subscribers", zap.Int("count", len(dropped)))
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
