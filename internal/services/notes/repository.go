package notes

import "context"

// Repository defines the interface for notes repository operations.
// Each call is atomic with respect to a single note; concurrent writers to
// the same id race under last-write-wins.
type Repository interface {
	Create(ctx context.Context, n *Note) error
	Get(ctx context.Context, id string) (*Note, error)
	List(ctx context.Context) ([]*Note, error)
	Update(ctx context.Context, id string, patch UpdateNote) (*Note, error)
	Toggle(ctx context.Context, id string) (*Note, error)
	SetDone(ctx context.Context, id string, done bool) (*Note, error)
	Delete(ctx context.Context, id string) error
}

// Bus defines the interface for event broadcasting
type Bus interface {
	Broadcast(ctx context.Context, ev NoteEvent)
}
