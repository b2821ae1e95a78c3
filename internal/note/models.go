package note

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("note not found")
	ErrNoOwner      = errors.New("note owner required")
	ErrTitleTooLong = errors.New("note title too long")
)

// Field names accepted in Fields.
const (
	FieldTitle     = "title"
	FieldContent   = "content"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Note is one snapshot of a note document. Timestamps are nil until the store
// has committed them.
type Note struct {
	ID        string     `json:"id" bson:"-"`
	Title     string     `json:"title" bson:"title"`
	Content   string     `json:"content" bson:"content"`
	CreatedAt *time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

type serverTimestamp struct{}

func (serverTimestamp) String() string { return "serverTimestamp" }

// ServerTimestamp is replaced by the store's clock at commit when used as a
// timestamp field value.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Fields is a partial document write.
type Fields map[string]any

// Validate checks field names and value types. createdAt may only be written
// on create.
func (f Fields) Validate(create bool) error {
	for k, v := range f {
		switch k {
		case FieldTitle, FieldContent:
			if _, ok := v.(string); !ok {
				return fmt.Errorf("field %q: want string, got %T", k, v)
			}
		case FieldCreatedAt:
			if !create {
				return fmt.Errorf("field %q is immutable", k)
			}
			if !IsServerTimestamp(v) {
				return fmt.Errorf("field %q: only the server timestamp is accepted", k)
			}
		case FieldUpdatedAt:
			if !IsServerTimestamp(v) {
				return fmt.Errorf("field %q: only the server timestamp is accepted", k)
			}
		default:
			return fmt.Errorf("unknown field %q", k)
		}
	}
	return nil
}

// Title returns the title value or "" when not present.
func (f Fields) Title() string {
	s, _ := f[FieldTitle].(string)
	return s
}

// CollectionSnapshot is the full ordered collection at one point in time, or
// a delivery failure. A snapshot with Err set is the last one on its channel.
type CollectionSnapshot struct {
	Notes []Note
	Err   error
}

// DocumentSnapshot is one note document, Exists=false once it is deleted.
type DocumentSnapshot struct {
	Note   Note
	Exists bool
	Err    error
}

// Store is the per-owner document store. Watch channels are closed when ctx
// is done or after a snapshot carrying Err.
type Store interface {
	Create(ctx context.Context, owner string, fields Fields) (string, error)
	Update(ctx context.Context, owner, id string, fields Fields) error
	Delete(ctx context.Context, owner, id string) error
	Get(ctx context.Context, owner, id string) (*Note, error)
	List(ctx context.Context, owner string) ([]Note, error)
	WatchCollection(ctx context.Context, owner string) (<-chan CollectionSnapshot, error)
	WatchDocument(ctx context.Context, owner, id string) (<-chan DocumentSnapshot, error)
}
