//go:build e2e

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/realtime"
)

func TestNotesE2E(t *testing.T) {
	env := SetupTestEnvironment(t)

	var noteAID string

	t.Run("create_note_A", func(t *testing.T) {
		resp := ExecuteHTTPJSONStep(t, HTTPJSONStep{
			Name:           "create note A",
			Method:         "POST",
			URL:            notesEndpoint,
			Body:           map[string]any{"content": "Note A content"},
			ExpectedStatus: http.StatusCreated,
			Validator:      MessageValidator("Note created successfully."),
		}, env.BaseURL)

		note := NoteFromResponse(t, resp)
		assert.Equal(t, "Note A content", note["content"])
		assert.Equal(t, false, note["done"])
		assert.Contains(t, note, "created_at")
		assert.Contains(t, note, "updated_at")
		noteAID = note["id"].(string)
	})

	t.Run("list_notes_expect_one", func(t *testing.T) {
		resp := ExecuteHTTPJSONStep(t, HTTPJSONStep{
			Name:           "list notes",
			Method:         "GET",
			URL:            notesEndpoint,
			ExpectedStatus: http.StatusOK,
		}, env.BaseURL)

		list := resp["data"].([]any)
		require.Len(t, list, 1)
		assert.Equal(t, noteAID, list[0].(map[string]any)["id"])
	})

	t.Run("validation_envelope", func(t *testing.T) {
		ExecuteHTTPJSONSteps(t, []HTTPJSONStep{
			{
				Name:           "empty content",
				Method:         "POST",
				URL:            notesEndpoint,
				Body:           map[string]any{"content": ""},
				ExpectedStatus: http.StatusUnprocessableEntity,
				Validator:      ValidationErrorValidator("content"),
			},
			{
				Name:           "over-length content",
				Method:         "POST",
				URL:            notesEndpoint,
				Body:           map[string]any{"content": strings.Repeat("a", 1001)},
				ExpectedStatus: http.StatusUnprocessableEntity,
				Validator:      ValidationErrorValidator("content"),
			},
		}, env.BaseURL)
	})

	t.Run("toggle_and_mark", func(t *testing.T) {
		ExecuteHTTPJSONSteps(t, []HTTPJSONStep{
			{
				Name:           "toggle to done",
				Method:         "PATCH",
				URL:            notesEndpoint + "/" + noteAID + "/toggle",
				ExpectedStatus: http.StatusOK,
				Validator:      MessageValidator("Note status toggled successfully."),
			},
			{
				Name:           "mark undone",
				Method:         "PATCH",
				URL:            notesEndpoint + "/" + noteAID + "/mark-undone",
				ExpectedStatus: http.StatusOK,
				Validator:      MessageValidator("Note marked as undone."),
			},
			{
				Name:           "mark done",
				Method:         "PATCH",
				URL:            notesEndpoint + "/" + noteAID + "/mark-done",
				ExpectedStatus: http.StatusOK,
				Validator:      MessageValidator("Note marked as done."),
			},
		}, env.BaseURL)

		resp := ExecuteHTTPJSONStep(t, HTTPJSONStep{
			Name:           "get note A",
			Method:         "GET",
			URL:            notesEndpoint + "/" + noteAID,
			ExpectedStatus: http.StatusOK,
		}, env.BaseURL)
		note := NoteFromResponse(t, resp)
		assert.Equal(t, true, note["done"])

		// every accepted mutation above must have pushed updated_at past
		// the creation instant
		createdAt := parseNoteTime(t, note, "created_at")
		updatedAt := parseNoteTime(t, note, "updated_at")
		assert.True(t, updatedAt.After(createdAt),
			"updated_at %s should be strictly after created_at %s", updatedAt, createdAt)
	})

	t.Run("websocket_and_crud_operations", func(t *testing.T) {
		testWebSocketCRUDOperations(t, env)
	})

	t.Run("stats_endpoint", func(t *testing.T) {
		resp := ExecuteHTTPJSONStep(t, HTTPJSONStep{
			Name:           "stats",
			Method:         "GET",
			URL:            notesEndpoint + "/stats",
			ExpectedStatus: http.StatusOK,
		}, env.BaseURL)

		data := resp["data"].(map[string]any)
		total := int(data["total"].(float64))
		completed := int(data["completed"].(float64))
		pending := int(data["pending"].(float64))
		assert.Equal(t, total, completed+pending)
		recent := data["recent"].([]any)
		assert.LessOrEqual(t, len(recent), 5)
	})

	t.Run("realtime_client_converges", func(t *testing.T) {
		testRealtimeClientConverges(t, env, noteAID)
	})

	t.Run("concurrent_updates_last_write_wins", func(t *testing.T) {
		testConcurrentUpdatesLastWriteWins(t, env)
	})

	t.Run("not_found_after_delete", func(t *testing.T) {
		ExecuteHTTPJSONSteps(t, []HTTPJSONStep{
			{
				Name:           "delete note A",
				Method:         "DELETE",
				URL:            notesEndpoint + "/" + noteAID,
				ExpectedStatus: http.StatusOK,
				Validator:      MessageValidator("Note deleted successfully."),
			},
			{
				Name:           "delete again",
				Method:         "DELETE",
				URL:            notesEndpoint + "/" + noteAID,
				ExpectedStatus: http.StatusNotFound,
				Validator:      MessageValidator("Note not found."),
			},
			{
				Name:           "get after delete",
				Method:         "GET",
				URL:            notesEndpoint + "/" + noteAID,
				ExpectedStatus: http.StatusNotFound,
				Validator:      MessageValidator("Note not found."),
			},
		}, env.BaseURL)
	})
}

// testConcurrentUpdatesLastWriteWins races two writers against one note and
// requires the surviving content to be exactly one writer's value.
func testConcurrentUpdatesLastWriteWins(t *testing.T, env *TestEnvironment) {
	resp := ExecuteHTTPJSONStep(t, HTTPJSONStep{
		Name:           "create contested note",
		Method:         "POST",
		URL:            notesEndpoint,
		Body:           map[string]any{"content": "contested"},
		ExpectedStatus: http.StatusCreated,
	}, env.BaseURL)
	noteID := NoteFromResponse(t, resp)["id"].(string)

	contentA := "writer A content"
	contentB := "writer B content"

	statuses := make(chan int, 2)
	var wg sync.WaitGroup
	for _, content := range []string{contentA, contentB} {
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			r, err := httpJSON("PATCH", env.BaseURL+notesEndpoint+"/"+noteID,
				map[string]any{"content": content}, nil)
			if err != nil {
				statuses <- 0
				return
			}
			defer r.Body.Close()
			statuses <- r.StatusCode
		}(content)
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status, "both racing writers must succeed")
	}

	final := ExecuteHTTPJSONStep(t, HTTPJSONStep{
		Name:           "read contested note",
		Method:         "GET",
		URL:            notesEndpoint + "/" + noteID,
		ExpectedStatus: http.StatusOK,
	}, env.BaseURL)

	got := NoteFromResponse(t, final)["content"]
	assert.Contains(t, []any{contentA, contentB}, got,
		"final content must be exactly one writer's value, never a merge")
}

// parseNoteTime extracts and parses an RFC3339 timestamp field from a note.
func parseNoteTime(t *testing.T, note map[string]any, field string) time.Time {
	t.Helper()
	raw, ok := note[field].(string)
	require.True(t, ok, "expected %s to be a string timestamp", field)
	ts, err := time.Parse(time.RFC3339Nano, raw)
	require.NoError(t, err)
	return ts
}

// testWebSocketCRUDOperations verifies each mutation is observed once on the
// shared stream, in operation order.
func testWebSocketCRUDOperations(t *testing.T, env *TestEnvironment) {
	ws := setupWebSocket(t, env)
	defer ws.Close()

	messages := make(chan map[string]any, 10)
	startWebSocketListener(ws, messages)
	time.Sleep(100 * time.Millisecond) // Allow connection to establish

	resp := ExecuteHTTPJSONStep(t, HTTPJSONStep{
		Name:           "create note B",
		Method:         "POST",
		URL:            notesEndpoint,
		Body:           map[string]any{"content": "Note B content"},
		ExpectedStatus: http.StatusCreated,
	}, env.BaseURL)
	noteBID := NoteFromResponse(t, resp)["id"].(string)

	verifyNoteEvent(t, messages, "created", noteBID, "Note B content")

	ExecuteHTTPJSONStep(t, HTTPJSONStep{
		Name:           "update note B",
		Method:         "PATCH",
		URL:            notesEndpoint + "/" + noteBID,
		Body:           map[string]any{"content": "Note B updated"},
		ExpectedStatus: http.StatusOK,
	}, env.BaseURL)

	verifyNoteEvent(t, messages, "updated", noteBID, "Note B updated")

	ExecuteHTTPJSONStep(t, HTTPJSONStep{
		Name:           "delete note B",
		Method:         "DELETE",
		URL:            notesEndpoint + "/" + noteBID,
		ExpectedStatus: http.StatusOK,
	}, env.BaseURL)

	verifyDeletedEvent(t, messages, noteBID)

	// rejected mutation must not produce an event
	ExecuteHTTPJSONStep(t, HTTPJSONStep{
		Name:           "invalid create",
		Method:         "POST",
		URL:            notesEndpoint,
		Body:           map[string]any{"content": ""},
		ExpectedStatus: http.StatusUnprocessableEntity,
	}, env.BaseURL)

	select {
	case msg := <-messages:
		t.Fatalf("unexpected event after rejected mutation: %v", msg)
	case <-time.After(500 * time.Millisecond):
	}
}

// setupWebSocket creates and returns a WebSocket connection
func setupWebSocket(t *testing.T, env *TestEnvironment) *websocket.Conn {
	c, _, err := websocket.DefaultDialer.Dial(env.WSURL(), nil)
	require.NoError(t, err)
	return c
}

// startWebSocketListener starts a goroutine to read WebSocket messages
func startWebSocketListener(c *websocket.Conn, messages chan map[string]any) {
	go func() {
		for {
			var msg map[string]any
			if c.ReadJSON(&msg) != nil {
				return
			}
			messages <- msg
		}
	}()
}

// verifyNoteEvent waits for a created/updated event carrying the full note
func verifyNoteEvent(t *testing.T, messages chan map[string]any, action, noteID, content string) {
	t.Helper()
	select {
	case msg := <-messages:
		assert.Equal(t, action, msg["action"])
		require.Contains(t, msg, "note")
		wsNote := msg["note"].(map[string]any)
		assert.Equal(t, noteID, wsNote["id"])
		assert.Equal(t, content, wsNote["content"])
	case <-time.After(1 * time.Second):
		t.Fatalf("did not receive %s event within 1 second", action)
	}
}

// verifyDeletedEvent waits for a deleted event, which carries only the id
func verifyDeletedEvent(t *testing.T, messages chan map[string]any, noteID string) {
	t.Helper()
	select {
	case msg := <-messages:
		assert.Equal(t, "deleted", msg["action"])
		assert.Equal(t, noteID, msg["noteId"])
		assert.NotContains(t, msg, "note")
	case <-time.After(1 * time.Second):
		t.Fatal("did not receive deleted event within 1 second")
	}
}

// testRealtimeClientConverges runs the realtime client against the live server
// and checks its incrementally-maintained stats against the stats endpoint.
func testRealtimeClientConverges(t *testing.T, env *TestEnvironment, noteAID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := realtime.New(env.BaseURL, env.WSURL(), quiet)

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	// wait for the initial snapshot
	require.Eventually(t, func() bool {
		return client.Stats().Total > 0
	}, 5*time.Second, 50*time.Millisecond)

	ExecuteHTTPJSONSteps(t, []HTTPJSONStep{
		{
			Name:           "create note C",
			Method:         "POST",
			URL:            notesEndpoint,
			Body:           map[string]any{"content": "Note C content"},
			ExpectedStatus: http.StatusCreated,
		},
		{
			Name:           "toggle note A",
			Method:         "PATCH",
			URL:            notesEndpoint + "/" + noteAID + "/toggle",
			ExpectedStatus: http.StatusOK,
		},
	}, env.BaseURL)

	require.Eventually(t, func() bool {
		server := fetchServerStats(t, env)
		local := client.Stats()
		return local.Total == server.Total &&
			local.Completed == server.Completed &&
			local.Pending == server.Pending
	}, 5*time.Second, 100*time.Millisecond, "client stats never converged to server stats")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop after cancel")
	}
}

type serverStats struct {
	Total     int
	Completed int
	Pending   int
}

func fetchServerStats(t *testing.T, env *TestEnvironment) serverStats {
	t.Helper()
	resp, err := env.Client.Get(env.BaseURL + notesEndpoint + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			Total     int `json:"total"`
			Completed int `json:"completed"`
			Pending   int `json:"pending"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return serverStats{
		Total:     payload.Data.Total,
		Completed: payload.Data.Completed,
		Pending:   payload.Data.Pending,
	}
}
