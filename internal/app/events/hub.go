// Package events provides the response event hub that turns the host's
// per-response callbacks into subscription streams.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

// Response describes one completed network response of the player page.
type Response struct {
	URL        string
	Status     int
	ObservedAt time.Time
}

// Publisher accepts response events from the host.
type Publisher interface {
	Publish(Response)
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id string
	ch chan Response
}

// Hub fans response events out to subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event, so every subscriber sees each response at most once.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	bufferSize    int
	closed        bool
	dropped       atomic.Uint64
}

// NewHub creates a new event hub.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subscriptions: make(map[string]*subscription),
		bufferSize:    bufferSize,
	}
}

// Subscribe adds a new subscription and returns its ID and event stream.
// The stream is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() (string, <-chan Response) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Response, h.bufferSize)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subscriptions[id] = &subscription{id: id, ch: ch}
	return id, ch
}

// Unsubscribe removes a subscription and closes its stream.
func (h *Hub) Unsubscribe(subscriptionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscriptions[subscriptionID]; ok {
		delete(h.subscriptions, subscriptionID)
		close(sub.ch)
	}
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(ev Response) {
	if ev.ObservedAt.IsZero() {
		ev.ObservedAt = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscriptions {
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
			zlog.Warn().Msgf("events: subscriber %s is full, dropping response %s", sub.id, ev.URL)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// Close closes every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subscriptions {
		close(sub.ch)
		delete(h.subscriptions, id)
	}
	h.closed = true
}
