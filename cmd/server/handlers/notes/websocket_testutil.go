package notes

import (
	"crypto/rand"
	"testing"
	"time"

	"taskpulse/cmd/server/testutil"
	"taskpulse/internal/services/notes"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
)

// MockHub implements the Hub interface for testing
type MockHub struct {
	subscribers    map[ulid.ULID]*notes.Subscriber
	subscribeCount int
}

func NewMockHub() *MockHub {
	return &MockHub{
		subscribers: make(map[ulid.ULID]*notes.Subscriber),
	}
}

func (m *MockHub) Subscribe(connULID ulid.ULID) (*notes.Subscriber, func()) {
	sub := &notes.Subscriber{
		Ch:   make(chan notes.NoteEvent, 10),
		Done: make(chan struct{}),
	}
	m.subscribers[connULID] = sub
	m.subscribeCount++

	cancel := func() {
		m.Unsubscribe(connULID)
	}
	return sub, cancel
}

func (m *MockHub) Unsubscribe(connULID ulid.ULID) {
	if sub, exists := m.subscribers[connULID]; exists {
		close(sub.Ch)
		close(sub.Done)
		delete(m.subscribers, connULID)
	}
}

func (m *MockHub) GetSubscriberCount() int {
	return len(m.subscribers)
}

// SetupWebSocketHandlersApp creates a test app with WebSocket handlers
func SetupWebSocketHandlersApp(t *testing.T, maxSessionSec int) (*fiber.App, *MockHub, *WebSocketHandlers) {
	t.Helper()

	app := testutil.CreateTestApp(t)
	hub := NewMockHub()
	wsHandlers := NewWebSocketHandlers(hub, maxSessionSec)

	app.Get("/ws/notes", wsHandlers.WSUpgrade, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"upgraded": true})
	})

	return app, hub, wsHandlers
}

// SubscribeTestConnection attaches a test subscriber to the hub with cleanup
func SubscribeTestConnection(t *testing.T, hub *MockHub) *notes.Subscriber {
	t.Helper()

	now := time.Now().UTC()
	connULID := ulid.MustNew(ulid.Timestamp(now), rand.Reader)

	sub, cancel := hub.Subscribe(connULID)

	t.Cleanup(cancel)

	return sub
}
