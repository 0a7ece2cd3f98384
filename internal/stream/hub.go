// Package stream fans annotated frames out from the capture loop to any
// number of attached viewers.
package stream

import (
	"sync"
)

// Hub holds the latest annotated JPEG frame and pushes new ones to
// subscribers. Publishing never blocks: a subscriber that falls behind has
// its pending frame replaced by the newest one.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	latest      []byte
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Publish hands a frame to every subscriber and records it as the latest.
func (h *Hub) Publish(frame []byte) {
	h.mu.Lock()
	h.latest = frame
	for ch := range h.subscribers {
		select {
		case ch <- frame:
		default:
			// Swap the stale pending frame for the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
	h.mu.Unlock()
}

// Subscribe attaches a viewer. The returned cancel func detaches it; after
// cancel the channel receives nothing further.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}

	return ch, cancel
}

// Latest returns the most recently published frame, or nil before the first
// publish.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Viewers returns the number of attached subscribers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
