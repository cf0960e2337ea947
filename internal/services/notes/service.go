package notes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taskpulse/internal/utils/sanitize"
)

// Service handles notes business logic. Every mutation runs
// sanitize -> validate -> persist -> broadcast, in that order: a validation
// failure or a missing id means nothing is persisted and nothing is
// broadcast.
type Service struct {
	repo        Repository
	bus         Bus
	log         *slog.Logger
	recentLimit int
}

// NewService creates a new notes service
func NewService(repo Repository, bus Bus, log *slog.Logger, recentLimit int) *Service {
	return &Service{
		repo:        repo,
		bus:         bus,
		log:         log,
		recentLimit: recentLimit,
	}
}

// Create validates and persists a new note, then broadcasts a created event.
func (s *Service) Create(ctx context.Context, req CreateNoteRequest) (*Note, error) {
	content := sanitize.Clean(req.Content)
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &Note{
		ID:        NewNoteID(),
		Content:   content,
		Done:      false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.log.Error(ErrCreateNote.Error(), "error", err)
		return nil, ErrCreateNote
	}

	s.bus.Broadcast(ctx, NoteEvent{
		Action: ActionCreated,
		Note:   note,
	})

	return note, nil
}

// Get returns a single note by id.
func (s *Service) Get(ctx context.Context, id string) (*Note, error) {
	note, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		s.log.Error(ErrGetNote.Error(), "error", err, "note_id", id)
		return nil, ErrGetNote
	}
	return note, nil
}

// List returns a full snapshot of all notes, newest first.
func (s *Service) List(ctx context.Context) ([]*Note, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error(ErrListNotes.Error(), "error", err)
		return nil, ErrListNotes
	}
	return list, nil
}

// Update applies a partial update to a note and broadcasts an updated event.
// A supplied content field is re-validated before anything is written.
func (s *Service) Update(ctx context.Context, id string, req UpdateNoteRequest) (*Note, error) {
	patch := UpdateNote{Done: req.Done}
	if req.Content != nil {
		content := sanitize.Clean(*req.Content)
		if err := ValidateContent(content); err != nil {
			return nil, err
		}
		patch.Content = &content
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.mutationError(err, "update", id)
	}

	s.broadcastUpdated(ctx, updated)
	return updated, nil
}

// Toggle flips the done flag of a note and broadcasts an updated event.
func (s *Service) Toggle(ctx context.Context, id string) (*Note, error) {
	updated, err := s.repo.Toggle(ctx, id)
	if err != nil {
		return nil, s.mutationError(err, "toggle", id)
	}

	s.broadcastUpdated(ctx, updated)
	return updated, nil
}

// MarkDone sets the done flag and broadcasts an updated event.
func (s *Service) MarkDone(ctx context.Context, id string) (*Note, error) {
	return s.setDone(ctx, id, true)
}

// MarkUndone clears the done flag and broadcasts an updated event.
func (s *Service) MarkUndone(ctx context.Context, id string) (*Note, error) {
	return s.setDone(ctx, id, false)
}

func (s *Service) setDone(ctx context.Context, id string, done bool) (*Note, error) {
	updated, err := s.repo.SetDone(ctx, id, done)
	if err != nil {
		return nil, s.mutationError(err, "set done", id)
	}

	s.broadcastUpdated(ctx, updated)
	return updated, nil
}

// Delete removes a note permanently and broadcasts a deleted event carrying
// only the id. Deletion is terminal: later lookups report not found, and a
// second delete of the same id also reports not found.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("note not found for delete", "note_id", id)
			return ErrNoteNotFound
		}
		s.log.Error(ErrDeleteNote.Error(), "error", err, "note_id", id)
		return ErrDeleteNote
	}

	s.bus.Broadcast(ctx, NoteEvent{
		Action: ActionDeleted,
		NoteID: id,
	})

	return nil
}

// Stats derives aggregate counts and the bounded recent projection from a
// full snapshot, so the result can never drift from the underlying set.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(list, s.recentLimit)
	return &stats, nil
}

func (s *Service) broadcastUpdated(ctx context.Context, note *Note) {
	s.bus.Broadcast(ctx, NoteEvent{
		Action: ActionUpdated,
		Note:   note,
	})
}

func (s *Service) mutationError(err error, op, id string) error {
	if errors.Is(err, ErrNoteNotFound) {
		s.log.Info("note not found for "+op, "note_id", id)
		return ErrNoteNotFound
	}
	s.log.Error(ErrUpdateNote.Error(), "op", op, "error", err, "note_id", id)
	return ErrUpdateNote
}
