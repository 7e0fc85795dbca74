package bridge

import (
	"log/slog"
	"sync"

	"github.com/mynest/mediasniff/internal/model"
)

// DefaultSubscriberBuffer is the number of updates queued per subscriber.
const DefaultSubscriberBuffer = 16

// Hub fans thumbnail updates out to subscribers.
// A subscriber that does not keep up loses updates rather than blocking
// the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan model.ThumbnailUpdate
	nextID int
	buffer int
	logger *slog.Logger
}

// NewHub creates a hub. A non-positive buffer uses DefaultSubscriberBuffer.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[int]chan model.ThumbnailUpdate),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a subscriber. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan model.ThumbnailUpdate, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan model.ThumbnailUpdate, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish delivers update to every subscriber with room in its buffer and
// returns how many received it.
func (h *Hub) Publish(update model.ThumbnailUpdate) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for id, ch := range h.subs {
		select {
		case ch <- update:
			delivered++
		default:
			h.logger.Warn("subscriber too slow, dropping thumbnail update",
				"subscriber", id,
				"sniff_id", update.SniffID,
			)
		}
	}
	return delivered
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
