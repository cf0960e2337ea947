// Package realtime implements a subscriber that mirrors the shared note set
// locally: one full fetch on connect, then incremental application of the
// events streamed over the notes topic. Events are not queued server-side,
// so every reconnect starts with a fresh full fetch.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"taskpulse/internal/services/notes"

	"github.com/gorilla/websocket"
)

const (
	defaultRecentLimit  = 5
	initialReconnectGap = time.Second
	maxReconnectGap     = 30 * time.Second
)

// Client maintains a recency-ordered local view of all notes plus
// incrementally-updated aggregate stats. All event handling is funneled
// through a single goroutine, so handlers run to completion one at a time.
type Client struct {
	baseURL     string
	wsURL       string
	httpc       *http.Client
	log         *slog.Logger
	recentLimit int

	dial func(ctx context.Context, url string) (wsConn, error)

	mu        sync.RWMutex
	notes     []*notes.Note
	completed int
}

// wsConn is the subset of *websocket.Conn the read loop needs.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for the full fetch.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpc = c }
}

// WithRecentLimit bounds the recent-notes projection.
func WithRecentLimit(n int) Option {
	return func(cl *Client) { cl.recentLimit = n }
}

// New creates a client that fetches the snapshot from baseURL and streams
// events from wsURL.
func New(baseURL, wsURL string, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		wsURL:       wsURL,
		httpc:       &http.Client{Timeout: 10 * time.Second},
		log:         log,
		recentLimit: defaultRecentLimit,
		dial:        dialWebsocket,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dialWebsocket(ctx context.Context, url string) (wsConn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Run connects and keeps the local view live until ctx is cancelled.
// Each (re)connect re-issues the full fetch: whatever happened while
// disconnected is resynced wholesale, never replayed.
func (c *Client) Run(ctx context.Context) error {
	gap := initialReconnectGap
	for {
		subscribed, err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if subscribed {
			// The backoff escalates across consecutive failed attempts only;
			// a session that made it onto the stream starts the ladder over.
			gap = initialReconnectGap
		}
		c.log.Warn("stream disconnected, reconnecting", "error", err, "backoff", gap.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(gap):
		}
		gap *= 2
		if gap > maxReconnectGap {
			gap = maxReconnectGap
		}
	}
}

// connectOnce reports whether the session got onto the stream at all, so the
// caller can tell a failed attempt from a session that later dropped.
func (c *Client) connectOnce(ctx context.Context) (bool, error) {
	if err := c.Refresh(ctx); err != nil {
		return false, err
	}

	conn, err := c.dial(ctx, c.wsURL)
	if err != nil {
		return false, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			c.log.Debug("failed to close stream connection", "error", cerr)
		}
	}()

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c.log.Info("subscribed to notes stream", "url", c.wsURL)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var ev notes.NoteEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.log.Warn("malformed event payload, dropping", "error", err)
			continue
		}
		c.Apply(ev)
	}
}

// Refresh replaces the local view with a full fetch of the note list.
func (c *Client) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/notes", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug("failed to close response body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch notes: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Data []*notes.Note `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	completed := 0
	for _, n := range body.Data {
		if n.Done {
			completed++
		}
	}

	c.mu.Lock()
	c.notes = body.Data
	c.completed = completed
	c.mu.Unlock()

	return nil
}

// Apply folds a single change event into the local view. Counts are adjusted
// by the delta the event implies, never recomputed from scratch, and the
// result always matches what a full recomputation would give.
func (c *Client) Apply(ev notes.NoteEvent) {
	id := ev.ID()
	if id == "" {
		c.log.Warn("event without note id, dropping", "action", ev.Action)
		return
	}
	switch ev.Action {
	case notes.ActionCreated, notes.ActionUpdated:
		// An id-only payload for these actions carries no snapshot to apply.
		if ev.Note == nil {
			c.log.Warn("event without note snapshot, dropping", "action", ev.Action, "note_id", id)
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Action {
	case notes.ActionCreated:
		c.applyCreated(ev.Note)
	case notes.ActionUpdated:
		c.applyUpdated(ev.Note)
	case notes.ActionDeleted:
		c.applyDeleted(id)
	default:
		c.log.Warn("unknown event action, dropping", "action", ev.Action, "note_id", id)
	}
}

func (c *Client) applyCreated(n *notes.Note) {
	// Guard against the broadcast echo of a note we already hold.
	if c.indexOf(n.ID) != -1 {
		return
	}
	c.notes = append([]*notes.Note{n}, c.notes...)
	if n.Done {
		c.completed++
	}
}

func (c *Client) applyUpdated(n *notes.Note) {
	i := c.indexOf(n.ID)
	if i == -1 {
		return
	}
	if c.notes[i].Done != n.Done {
		if n.Done {
			c.completed++
		} else {
			c.completed--
		}
	}
	c.notes[i] = n
}

func (c *Client) applyDeleted(id string) {
	i := c.indexOf(id)
	if i == -1 {
		return
	}
	if c.notes[i].Done {
		c.completed--
	}
	c.notes = append(c.notes[:i], c.notes[i+1:]...)
}

// indexOf must be called with the lock held.
func (c *Client) indexOf(id string) int {
	for i, n := range c.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Notes returns a copy of the current recency-ordered note list.
func (c *Client) Notes() []*notes.Note {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*notes.Note, len(c.notes))
	copy(out, c.notes)
	return out
}

// Stats returns the current aggregate view, with the recent projection
// bounded by the configured limit.
func (c *Client) Stats() notes.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := notes.Stats{
		Total:     len(c.notes),
		Completed: c.completed,
		Pending:   len(c.notes) - c.completed,
		Recent:    []*notes.Note{},
	}

	limit := c.recentLimit
	if limit > len(c.notes) {
		limit = len(c.notes)
	}
	stats.Recent = append(stats.Recent, c.notes[:limit]...)

	return stats
}
