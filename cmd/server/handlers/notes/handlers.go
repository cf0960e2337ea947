package notes

import (
	"context"

	"taskpulse/cmd/server/handlers/handlerutil"
	"taskpulse/internal/services/notes"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Service defines the interface for the notes service
type Service interface {
	Create(ctx context.Context, req notes.CreateNoteRequest) (*notes.Note, error)
	Get(ctx context.Context, id string) (*notes.Note, error)
	List(ctx context.Context) ([]*notes.Note, error)
	Update(ctx context.Context, id string, req notes.UpdateNoteRequest) (*notes.Note, error)
	Toggle(ctx context.Context, id string) (*notes.Note, error)
	MarkDone(ctx context.Context, id string) (*notes.Note, error)
	MarkUndone(ctx context.Context, id string) (*notes.Note, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*notes.Stats, error)
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	service   Service
	validator *validator.Validate
}

// NewHandlers creates new notes handlers
func NewHandlers(service Service, validator *validator.Validate) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
	}
}

// noteResponse wraps a single note plus an optional human-readable message.
type noteResponse struct {
	Data    *notes.Note `json:"data"`
	Message string      `json:"message,omitempty"`
}

// listResponse wraps the full note snapshot.
type listResponse struct {
	Data []*notes.Note `json:"data"`
}

// statsResponse wraps the derived aggregate stats.
type statsResponse struct {
	Data *notes.Stats `json:"data"`
}

// messageResponse carries only a human-readable message.
type messageResponse struct {
	Message string `json:"message"`
}

// List returns a snapshot of all notes, newest first. An empty list is a
// success, not an error.
func (h *Handlers) List(c *fiber.Ctx) error {
	list, err := h.service.List(c.Context())
	if err != nil {
		return handlerutil.HandleServiceError(err, "List", "")
	}

	return c.JSON(listResponse{Data: list})
}

// Create handles note creation
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req notes.CreateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	note, err := h.service.Create(c.Context(), req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Create", "")
	}

	return c.Status(fiber.StatusCreated).JSON(noteResponse{
		Data:    note,
		Message: "Note created successfully.",
	})
}

// Get returns a single note by id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractNoteID(c, "Get")
	if err != nil {
		return err
	}

	note, err := h.service.Get(c.Context(), id)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Get", id)
	}

	return c.JSON(noteResponse{Data: note})
}

// Update handles partial note updates
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractNoteID(c, "Update")
	if err != nil {
		return err
	}

	var req notes.UpdateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	note, err := h.service.Update(c.Context(), id, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Update", id)
	}

	return c.JSON(noteResponse{
		Data:    note,
		Message: "Note updated successfully.",
	})
}

// Delete handles note deletion
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractNoteID(c, "Delete")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return handlerutil.HandleServiceError(err, "Delete", id)
	}

	return c.JSON(messageResponse{Message: "Note deleted successfully."})
}

// Toggle flips the done flag of a note
func (h *Handlers) Toggle(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractNoteID(c, "Toggle")
	if err != nil {
		return err
	}

	note, err := h.service.Toggle(c.Context(), id)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Toggle", id)
	}

	return c.JSON(noteResponse{
		Data:    note,
		Message: "Note status toggled successfully.",
	})
}

// MarkDone sets the done flag of a note
func (h *Handlers) MarkDone(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractNoteID(c, "MarkDone")
	if err != nil {
		return err
	}

	note, err := h.service.MarkDone(c.Context(), id)
	if err != nil {
		return handlerutil.HandleServiceError(err, "MarkDone", id)
	}

	return c.JSON(noteResponse{
		Data:    note,
		Message: "Note marked as done.",
	})
}

// MarkUndone clears the done flag of a note
func (h *Handlers) MarkUndone(c *fiber.Ctx) error {
	id, err := handlerutil.ExtractNoteID(c, "MarkUndone")
	if err != nil {
		return err
	}

	note, err := h.service.MarkUndone(c.Context(), id)
	if err != nil {
		return handlerutil.HandleServiceError(err, "MarkUndone", id)
	}

	return c.JSON(noteResponse{
		Data:    note,
		Message: "Note marked as undone.",
	})
}

// Stats returns derived aggregate counts plus the bounded recent projection
func (h *Handlers) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return handlerutil.HandleServiceError(err, "Stats", "")
	}

	return c.JSON(statsResponse{Data: stats})
}
