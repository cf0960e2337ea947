package notes

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Note represents a task-list entry. Notes are global and shared between all
// clients; there is no per-user ownership.
type Note struct {
	ID        string    `bson:"_id" json:"id" example:"01JX2Y0B4R8S8A4M0V8Z5T9QKD"`
	Content   string    `bson:"content" json:"content" validate:"required,max=1000" example:"Buy milk"`
	Done      bool      `bson:"done" json:"done" example:"false"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" example:"2025-06-01T23:00:26.005703677Z"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" example:"2025-06-01T23:00:26.005703677Z"`
}

// NewNoteID returns a fresh ULID string. ULIDs are time-ordered, so sorting by
// id is consistent with insertion order, and an id is never reused after the
// note is deleted.
func NewNoteID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Content string `json:"content" validate:"required,max=1000" example:"Buy milk"`
}

// UpdateNoteRequest represents a partial note update request
type UpdateNoteRequest struct {
	Content *string `json:"content,omitempty" validate:"omitempty,max=1000" example:"Buy oat milk"`
	Done    *bool   `json:"done,omitempty" example:"true"`
}

// UpdateNote represents the fields that can be updated in a note
type UpdateNote struct {
	Content *string
	Done    *bool
}

// Actions carried by a NoteEvent.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// NoteEvent is the payload fanned out on the shared notes topic. Created and
// updated events carry the full note snapshot; deleted events carry only the
// id of the removed note.
type NoteEvent struct {
	Note   *Note  `json:"note,omitempty"`
	NoteID string `json:"noteId,omitempty"`
	Action string `json:"action"`
}

// ID returns the note id the event refers to, or "" for a malformed event.
func (ev NoteEvent) ID() string {
	if ev.Note != nil {
		return ev.Note.ID
	}
	return ev.NoteID
}
