package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskpulse/internal/logger"
	"taskpulse/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotesRepo implements the notes.Repository interface for MongoDB.
// Every write touches a single document, so the driver's row-level atomicity
// is the only serialization between writers: the last committed write wins.
type NotesRepo struct {
	collection *mongo.Collection
}

func repoCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return WithRepoTimeout(parent, OpTimeout)
}

// translateNotFound maps the driver ErrNoDocuments to the domain-level ErrNoteNotFound.
func translateNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoteNotFound
	}
	return err
}

// NewNotesRepo creates a new notes repository
func NewNotesRepo(parentCtx context.Context, db *mongo.Database) (*NotesRepo, error) {
	collection := db.Collection("notes")

	// _id is a ULID string, time-ordered, so (created_at desc, _id desc)
	// yields newest-first with insertion order as the tiebreaker.
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "done", Value: 1},
			},
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		_, err := collection.Indexes().CreateOne(ctx, indexModel)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "notes")
			} else {
				logger.L().Error("failed to create index", "collection", "notes", "error", err)
				return nil, fmt.Errorf("failed to create notes collection index: %w", err)
			}
		}
	}

	return &NotesRepo{
		collection: collection,
	}, nil
}

// Create inserts a new note document.
func (r *NotesRepo) Create(ctx context.Context, note *notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	_, err := r.collection.InsertOne(ctx, note)
	return err
}

// Get fetches a single note by id.
func (r *NotesRepo) Get(ctx context.Context, id string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var note notes.Note
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&note)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &note, nil
}

// List returns the full snapshot of all notes ordered by created_at
// descending, ties broken by id descending (insertion order).
func (r *NotesRepo) List(ctx context.Context) ([]*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	notesList := []*notes.Note{}
	if err := cursor.All(ctx, &notesList); err != nil {
		return nil, err
	}

	return notesList, nil
}

// Update applies a partial update and returns the post-update snapshot.
// updated_at is always refreshed on an accepted change.
func (r *NotesRepo) Update(ctx context.Context, id string, patch notes.UpdateNote) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Done != nil {
		set["done"] = *patch.Done
	}

	return r.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

// Toggle atomically flips the done flag using an aggregation-pipeline update,
// so two concurrent toggles can never read the same prior value.
func (r *NotesRepo) Toggle(ctx context.Context, id string) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"done":       bson.M{"$not": "$done"},
			"updated_at": time.Now().UTC(),
		}}},
	}

	return r.findOneAndUpdate(ctx, id, pipeline)
}

// SetDone sets the done flag to an explicit value.
func (r *NotesRepo) SetDone(ctx context.Context, id string, done bool) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"done":       done,
		"updated_at": time.Now().UTC(),
	}}

	return r.findOneAndUpdate(ctx, id, update)
}

// Delete removes a note permanently.
func (r *NotesRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return notes.ErrNoteNotFound
	}
	return nil
}

func (r *NotesRepo) findOneAndUpdate(ctx context.Context, id string, update any) (*notes.Note, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated notes.Note
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&updated)
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &updated, nil
}
