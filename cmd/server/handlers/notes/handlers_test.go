package notes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"taskpulse/cmd/server/testutil"
	"taskpulse/internal/services/notes"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService is a mock implementation of Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, req notes.CreateNoteRequest) (*notes.Note, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id string) (*notes.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockService) List(ctx context.Context) ([]*notes.Note, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notes.Note), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id string, req notes.UpdateNoteRequest) (*notes.Note, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockService) Toggle(ctx context.Context, id string) (*notes.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockService) MarkDone(ctx context.Context, id string) (*notes.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockService) MarkUndone(ctx context.Context, id string) (*notes.Note, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Note), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockService) Stats(ctx context.Context) (*notes.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notes.Stats), args.Error(1)
}

func setupNotesApp(t *testing.T) (*fiber.App, *MockService) {
	t.Helper()

	app := testutil.CreateTestApp(t)
	svc := new(MockService)
	h := NewHandlers(svc, testutil.CreateTestValidator(t))

	grp := app.Group("/api/v1/notes")
	grp.Get("/", h.List)
	grp.Post("/", h.Create)
	grp.Get("/stats", h.Stats)
	grp.Get("/:id", h.Get)
	grp.Patch("/:id", h.Update)
	grp.Delete("/:id", h.Delete)
	grp.Patch("/:id/toggle", h.Toggle)
	grp.Patch("/:id/mark-done", h.MarkDone)
	grp.Patch("/:id/mark-undone", h.MarkUndone)

	return app, svc
}

func sampleNote() *notes.Note {
	now := time.Now().UTC()
	return &notes.Note{
		ID:        notes.NewNoteID(),
		Content:   "Buy milk",
		Done:      false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestListNotes(t *testing.T) {
	app, svc := setupNotesApp(t)
	note := sampleNote()
	svc.On("List", mock.Anything).Return([]*notes.Note{note}, nil)

	resp, err := app.Test(testutil.CreateJSONRequest("GET", "/api/v1/notes/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, note.ID, data[0].(map[string]any)["id"])
}

func TestListNotesEmptyIsSuccess(t *testing.T) {
	app, svc := setupNotesApp(t)
	svc.On("List", mock.Anything).Return([]*notes.Note{}, nil)

	resp, err := app.Test(testutil.CreateJSONRequest("GET", "/api/v1/notes/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Empty(t, body["data"])
}

func TestCreateNote(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		setup      func(*MockService)
		wantStatus int
		check      func(*testing.T, map[string]any)
	}{
		{
			name: "created",
			body: map[string]string{"content": "Buy milk"},
			setup: func(svc *MockService) {
				svc.On("Create", mock.Anything, notes.CreateNoteRequest{Content: "Buy milk"}).
					Return(sampleNote(), nil)
			},
			wantStatus: 201,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Note created successfully.", body["message"])
				assert.NotNil(t, body["data"])
			},
		},
		{
			name:       "empty content rejected at the edge",
			body:       map[string]string{"content": ""},
			setup:      func(svc *MockService) {},
			wantStatus: 422,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Validation failed.", body["message"])
				errs := body["errors"].(map[string]any)
				assert.Contains(t, errs, "content")
			},
		},
		{
			name:       "over-length content rejected at the edge",
			body:       map[string]string{"content": strings.Repeat("a", 1001)},
			setup:      func(svc *MockService) {},
			wantStatus: 422,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Validation failed.", body["message"])
			},
		},
		{
			name: "domain validation failure maps to 422",
			body: map[string]string{"content": "<p></p>"},
			setup: func(svc *MockService) {
				svc.On("Create", mock.Anything, mock.Anything).
					Return(nil, &notes.ValidationError{
						Fields: map[string][]string{"content": {"Note content cannot be empty."}},
					})
			},
			wantStatus: 422,
			check: func(t *testing.T, body map[string]any) {
				errs := body["errors"].(map[string]any)
				msgs := errs["content"].([]any)
				assert.Equal(t, "Note content cannot be empty.", msgs[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, svc := setupNotesApp(t)
			tt.setup(svc)

			resp, err := app.Test(testutil.CreateJSONRequest("POST", "/api/v1/notes/", tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			tt.check(t, decodeBody(t, resp))
			svc.AssertExpectations(t)
		})
	}
}

func TestGetNote(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		app, svc := setupNotesApp(t)
		note := sampleNote()
		svc.On("Get", mock.Anything, note.ID).Return(note, nil)

		resp, err := app.Test(testutil.CreateJSONRequest("GET", "/api/v1/notes/"+note.ID, nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		app, svc := setupNotesApp(t)
		svc.On("Get", mock.Anything, "missing").Return(nil, notes.ErrNoteNotFound)

		resp, err := app.Test(testutil.CreateJSONRequest("GET", "/api/v1/notes/missing", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Note not found.", body["message"])
	})
}

func TestUpdateNote(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		app, svc := setupNotesApp(t)
		note := sampleNote()
		note.Done = true
		svc.On("Update", mock.Anything, note.ID, mock.AnythingOfType("notes.UpdateNoteRequest")).
			Return(note, nil)

		resp, err := app.Test(testutil.CreateJSONRequest("PATCH", "/api/v1/notes/"+note.ID,
			map[string]any{"done": true}))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Note updated successfully.", body["message"])
	})

	t.Run("not found", func(t *testing.T) {
		app, svc := setupNotesApp(t)
		svc.On("Update", mock.Anything, "missing", mock.Anything).
			Return(nil, notes.ErrNoteNotFound)

		resp, err := app.Test(testutil.CreateJSONRequest("PATCH", "/api/v1/notes/missing",
			map[string]any{"done": true}))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("invalid content", func(t *testing.T) {
		app, _ := setupNotesApp(t)

		resp, err := app.Test(testutil.CreateJSONRequest("PATCH", "/api/v1/notes/some-id",
			map[string]any{"content": strings.Repeat("a", 1001)}))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
	})
}

func TestDeleteNote(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		app, svc := setupNotesApp(t)
		svc.On("Delete", mock.Anything, "some-id").Return(nil)

		resp, err := app.Test(testutil.CreateJSONRequest("DELETE", "/api/v1/notes/some-id", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Note deleted successfully.", body["message"])
	})

	t.Run("second delete reports not found", func(t *testing.T) {
		app, svc := setupNotesApp(t)
		svc.On("Delete", mock.Anything, "some-id").Return(notes.ErrNoteNotFound)

		resp, err := app.Test(testutil.CreateJSONRequest("DELETE", "/api/v1/notes/some-id", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})
}

func TestToggleAndMarkHandlers(t *testing.T) {
	note := sampleNote()
	note.Done = true

	tests := []struct {
		name    string
		method  string
		path    string
		svcCall string
		wantMsg string
	}{
		{"toggle", "PATCH", "/api/v1/notes/" + note.ID + "/toggle", "Toggle", "Note status toggled successfully."},
		{"mark done", "PATCH", "/api/v1/notes/" + note.ID + "/mark-done", "MarkDone", "Note marked as done."},
		{"mark undone", "PATCH", "/api/v1/notes/" + note.ID + "/mark-undone", "MarkUndone", "Note marked as undone."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, svc := setupNotesApp(t)
			svc.On(tt.svcCall, mock.Anything, note.ID).Return(note, nil)

			resp, err := app.Test(testutil.CreateJSONRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Equal(t, tt.wantMsg, body["message"])
		})

		t.Run(tt.name+" not found", func(t *testing.T) {
			app, svc := setupNotesApp(t)
			svc.On(tt.svcCall, mock.Anything, note.ID).Return(nil, notes.ErrNoteNotFound)

			resp, err := app.Test(testutil.CreateJSONRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, 404, resp.StatusCode)
		})
	}
}

func TestStatsHandler(t *testing.T) {
	app, svc := setupNotesApp(t)
	svc.On("Stats", mock.Anything).Return(&notes.Stats{
		Total:     3,
		Completed: 1,
		Pending:   2,
		Recent:    []*notes.Note{sampleNote()},
	}, nil)

	resp, err := app.Test(testutil.CreateJSONRequest("GET", "/api/v1/notes/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(1), data["completed"])
	assert.Equal(t, float64(2), data["pending"])
}
