package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ghichu/ghichu/internal/note"
	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// noteKey is the compound _id: every query is scoped by owner.
type noteKey struct {
	Owner string `bson:"owner"`
	ID    string `bson:"id"`
}

type mongoNote struct {
	Key       noteKey `bson:"_id"`
	note.Note `bson:",inline"`
}

// MongoRepo implements the note store on a MongoDB collection. Server
// timestamps come from the database clock ($$NOW) and live queries are change
// streams, so the deployment must be a replica set.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// setStage builds the $set stage of an update pipeline. String values are
// wrapped in $literal so user text is never read as an expression. On create
// both timestamps share the same $$NOW; on update updatedAt is kept strictly
// after its previous value.
func setStage(fields note.Fields, create bool) bson.D {
	set := bson.D{}
	for _, k := range []string{note.FieldTitle, note.FieldContent, note.FieldCreatedAt, note.FieldUpdatedAt} {
		v, ok := fields[k]
		if !ok {
			continue
		}
		switch {
		case !note.IsServerTimestamp(v):
			set = append(set, bson.E{Key: k, Value: bson.D{{Key: "$literal", Value: v}}})
		case create || k != note.FieldUpdatedAt:
			set = append(set, bson.E{Key: k, Value: "$$NOW"})
		default:
			set = append(set, bson.E{Key: k, Value: bson.D{{Key: "$max", Value: bson.A{
				"$$NOW",
				bson.D{{Key: "$add", Value: bson.A{"$" + k, 1}}},
			}}}})
		}
	}
	return set
}

func (m *MongoRepo) Create(ctx context.Context, owner string, fields note.Fields) (string, error) {
	if owner == "" {
		return "", note.ErrNoOwner
	}
	if err := fields.Validate(true); err != nil {
		return "", err
	}
	key := noteKey{Owner: owner, ID: strings.ToLower(ulid.Make().String())}
	set := setStage(fields, true)
	for _, k := range []string{note.FieldTitle, note.FieldContent} {
		if _, ok := fields[k]; !ok {
			set = append(set, bson.E{Key: k, Value: ""})
		}
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}
	if _, err := m.col.UpdateOne(ctx, bson.M{"_id": key}, pipeline, options.Update().SetUpsert(true)); err != nil {
		return "", fmt.Errorf("create note: %w", err)
	}
	return key.ID, nil
}

func (m *MongoRepo) Update(ctx context.Context, owner, id string, fields note.Fields) error {
	if owner == "" {
		return note.ErrNoOwner
	}
	if err := fields.Validate(false); err != nil {
		return err
	}
	if len(fields) == 0 {
		_, err := m.Get(ctx, owner, id)
		return err
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: setStage(fields, false)}}}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": noteKey{Owner: owner, ID: id}}, pipeline)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if res.MatchedCount == 0 {
		return note.ErrNotFound
	}
	return nil
}

// Delete removes the note; deleting a missing note succeeds.
func (m *MongoRepo) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return note.ErrNoOwner
	}
	if _, err := m.col.DeleteOne(ctx, bson.M{"_id": noteKey{Owner: owner, ID: id}}); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (m *MongoRepo) Get(ctx context.Context, owner, id string) (*note.Note, error) {
	var d mongoNote
	err := m.col.FindOne(ctx, bson.M{"_id": noteKey{Owner: owner, ID: id}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, note.ErrNotFound
		}
		return nil, err
	}
	n := d.toNote()
	return &n, nil
}

func (m *MongoRepo) List(ctx context.Context, owner string) ([]note.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id.id", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"_id.owner": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []note.Note{}
	for cur.Next(ctx) {
		var d mongoNote
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toNote())
	}
	return out, cur.Err()
}

func (d mongoNote) toNote() note.Note {
	n := d.Note
	n.ID = d.Key.ID
	if n.CreatedAt != nil {
		t := n.CreatedAt.UTC()
		n.CreatedAt = &t
	}
	if n.UpdatedAt != nil {
		t := n.UpdatedAt.UTC()
		n.UpdatedAt = &t
	}
	return n
}

// watchFilter matches change events for one owner, or one note when id is set.
func watchFilter(owner, id string) mongo.Pipeline {
	match := bson.D{{Key: "documentKey._id.owner", Value: owner}}
	if id != "" {
		match = append(match, bson.E{Key: "documentKey._id.id", Value: id})
	}
	return mongo.Pipeline{{{Key: "$match", Value: match}}}
}

// watch opens the change stream before the first read so no write between
// the two is missed. emit runs once up front and again after each batch of
// events; done runs when the stream ends.
func (m *MongoRepo) watch(ctx context.Context, owner, id string, emit func() bool, fail func(error), done func()) error {
	if owner == "" {
		return note.ErrNoOwner
	}
	stream, err := m.col.Watch(ctx, watchFilter(owner, id))
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	go func() {
		defer done()
		defer stream.Close(context.Background())
		if !emit() {
			return
		}
		for stream.Next(ctx) {
			// one read covers every event already buffered
			for stream.RemainingBatchLength() > 0 && stream.Next(ctx) {
			}
			if !emit() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			fail(err)
		}
	}()
	return nil
}

func (m *MongoRepo) WatchCollection(ctx context.Context, owner string) (<-chan note.CollectionSnapshot, error) {
	out := make(chan note.CollectionSnapshot)
	send := func(s note.CollectionSnapshot) bool {
		select {
		case out <- s:
			return s.Err == nil
		case <-ctx.Done():
			return false
		}
	}
	emit := func() bool {
		notes, err := m.List(ctx, owner)
		if err != nil {
			return ctx.Err() == nil && send(note.CollectionSnapshot{Err: err})
		}
		return send(note.CollectionSnapshot{Notes: notes})
	}
	fail := func(err error) { send(note.CollectionSnapshot{Err: err}) }
	if err := m.watch(ctx, owner, "", emit, fail, func() { close(out) }); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoRepo) WatchDocument(ctx context.Context, owner, id string) (<-chan note.DocumentSnapshot, error) {
	out := make(chan note.DocumentSnapshot)
	send := func(s note.DocumentSnapshot) bool {
		select {
		case out <- s:
			return s.Err == nil
		case <-ctx.Done():
			return false
		}
	}
	emit := func() bool {
		n, err := m.Get(ctx, owner, id)
		switch {
		case errors.Is(err, note.ErrNotFound):
			return send(note.DocumentSnapshot{Note: note.Note{ID: id}})
		case err != nil:
			return ctx.Err() == nil && send(note.DocumentSnapshot{Err: err})
		}
		return send(note.DocumentSnapshot{Note: *n, Exists: true})
	}
	fail := func(err error) { send(note.DocumentSnapshot{Err: err}) }
	if err := m.watch(ctx, owner, id, emit, fail, func() { close(out) }); err != nil {
		return nil, err
	}
	return out, nil
}
