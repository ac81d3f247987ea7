package server

import (
	"sync"

	"github.com/onnwee/twitchy/store"
)

const subscriberBuffer = 32

// Hub fans chat messages out to SSE subscribers. Publish never blocks;
// a subscriber that falls behind loses messages rather than stalling
// the render loop.
type Hub struct {
	mu   sync.Mutex
	subs map[chan store.Message]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan store.Message]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel func must
// be called when the subscriber goes away.
func (h *Hub) Subscribe() (<-chan store.Message, func()) {
	ch := make(chan store.Message, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a message to every subscriber with room in its
// buffer.
func (h *Hub) Publish(m store.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

// Subscribers reports how many SSE clients are connected.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
