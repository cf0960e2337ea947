package notes

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"taskpulse/internal/logger"

	"github.com/oklog/ulid/v2"
)

// Subscriber represents a connection that can receive note events
type Subscriber struct {
	Ch   chan NoteEvent
	Done chan struct{}
}

// ConnInfo holds connection metadata
type ConnInfo struct {
	ID          ulid.ULID
	ConnectedAt time.Time
	Subscriber  *Subscriber
}

// Hub fans note events out to every subscriber of the single shared notes
// topic. Delivery is fire-and-forget: a full outbox drops the event, and a
// subscriber that connects after a publish never sees it. Clients resync via
// a full fetch on connect.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[ulid.ULID]ConnInfo
	bufferSize  int
	dropped     uint64
}

// NewHub creates a new event hub with configurable per-subscriber buffer size
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subscribers: make(map[ulid.ULID]ConnInfo),
		bufferSize:  bufferSize,
	}
}

// Subscribe adds a new subscriber to the hub and returns it together with a
// cancel func that detaches it again.
func (h *Hub) Subscribe(connULID ulid.ULID) (*Subscriber, func()) {
	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("subscribing connection", "conn_id", connULID.String())
	}

	sub := &Subscriber{
		Ch:   make(chan NoteEvent, h.bufferSize),
		Done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[connULID] = ConnInfo{
		ID:          connULID,
		ConnectedAt: time.Now(),
		Subscriber:  sub,
	}
	h.mu.Unlock()

	cancel := func() {
		h.Unsubscribe(connULID)
	}
	return sub, cancel
}

// Unsubscribe removes a subscriber from the hub. Safe to call more than once.
func (h *Hub) Unsubscribe(connULID ulid.ULID) {
	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("unsubscribing connection", "conn_id", connULID.String())
	}

	h.mu.Lock()
	connInfo, exists := h.subscribers[connULID]
	if exists {
		delete(h.subscribers, connULID)
	}
	h.mu.Unlock()

	if exists {
		close(connInfo.Subscriber.Ch)
		close(connInfo.Subscriber.Done)
	}
}

// Broadcast delivers ev to every current subscriber. Events that carry
// neither a note nor an id are dropped.
func (h *Hub) Broadcast(_ context.Context, ev NoteEvent) {
	if ev.ID() == "" {
		return
	}

	log := logger.L()
	if log != nil && log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("broadcasting event", "note_id", ev.ID(), "action", ev.Action)
	}

	h.mu.RLock()
	for _, connInfo := range h.subscribers {
		sendOrDrop(connInfo.Subscriber.Ch, ev, func() {
			atomic.AddUint64(&h.dropped, 1)
			if log != nil {
				log.Warn("outbox full — dropping event", "conn_id", connInfo.ID.String(), "action", ev.Action)
			}
		})
	}
	h.mu.RUnlock()
}

// SubscriberCount returns the current number of subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// sendOrDrop is the only place that can decide to drop an event.
func sendOrDrop(ch chan NoteEvent, ev NoteEvent, onDrop func()) {
	select {
	case ch <- ev: // hot path, no nesting
	default:
		onDrop()
	}
}

// Stats returns current counters for observability / tests.
func (h *Hub) Stats() (subscribers int, dropped uint64) {
	return h.SubscriberCount(), atomic.LoadUint64(&h.dropped)
}
