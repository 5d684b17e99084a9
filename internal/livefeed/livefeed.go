// Package livefeed fans freshly ingested page views out to connected
// dashboard observers. Publishing is fire and forget: a slow or stuck
// subscriber drops messages instead of backpressuring ingestion.
package livefeed

import (
	"log/slog"
	"sync"
)

const subscriberBufferSize = 16

// Hub is a broadcast channel between the ingestor and any number of
// live dashboard connections.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	logger      *slog.Logger
}

// Subscriber receives published events on C until Close is called.
type Subscriber struct {
	C   chan interface{}
	hub *Hub
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new observer. The caller must Close it when
// the connection goes away.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		C:   make(chan interface{}, subscriberBufferSize),
		hub: h,
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Close unregisters the subscriber and releases its channel.
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if _, ok := s.hub.subscribers[s]; ok {
		delete(s.hub.subscribers, s)
		close(s.C)
	}
}

// Publish delivers the event to every subscriber whose buffer has
// room. Full buffers are skipped; never blocks.
func (h *Hub) Publish(event interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.C <- event:
		default:
			h.logger.Debug("Live feed subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount returns the number of connected observers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
