package app

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/note"
)

const defaultMaxTitleLength = 100

// MutationError is a failed create, update or delete.
type MutationError struct {
	Op  string
	ID  string
	Err error
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s note: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s note %s: %v", e.Op, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Gateway writes notes of the current identity. Results are observed
// through subscriptions, never returned as local state.
type Gateway struct {
	store    note.Store
	current  func() *auth.Identity
	maxTitle int
}

// NewGateway returns a gateway writing as whoever current reports.
func NewGateway(store note.Store, current func() *auth.Identity, maxTitle int) *Gateway {
	if maxTitle <= 0 {
		maxTitle = defaultMaxTitleLength
	}
	return &Gateway{store: store, current: current, maxTitle: maxTitle}
}

func (g *Gateway) owner() (string, error) {
	id := g.current()
	if id == nil || id.UID == "" {
		return "", ErrNotAuthenticated
	}
	return id.UID, nil
}

func (g *Gateway) checkTitle(op, id, title string) error {
	if n := utf8.RuneCountInString(title); n > g.maxTitle {
		return &MutationError{Op: op, ID: id, Err: fmt.Errorf("%w: %d > %d", ErrTitleTooLong, n, g.maxTitle)}
	}
	return nil
}

// Create stores a new note with both timestamps set by the store.
func (g *Gateway) Create(ctx context.Context, title, content string) (string, error) {
	owner, err := g.owner()
	if err != nil {
		return "", err
	}
	return g.create(ctx, owner, note.Fields{
		note.FieldTitle:     title,
		note.FieldContent:   content,
		note.FieldCreatedAt: note.ServerTimestamp,
		note.FieldUpdatedAt: note.ServerTimestamp,
	})
}

func (g *Gateway) create(ctx context.Context, owner string, fields note.Fields) (string, error) {
	if err := g.checkTitle("create", "", fields.Title()); err != nil {
		return "", err
	}
	id, err := g.store.Create(ctx, owner, fields)
	if err != nil {
		return "", &MutationError{Op: "create", Err: err}
	}
	return id, nil
}

// Update overwrites title and content and restamps updatedAt. A missing
// note is an error.
func (g *Gateway) Update(ctx context.Context, id, title, content string) error {
	owner, err := g.owner()
	if err != nil {
		return err
	}
	if err := g.checkTitle("update", id, title); err != nil {
		return err
	}
	err = g.store.Update(ctx, owner, id, note.Fields{
		note.FieldTitle:     title,
		note.FieldContent:   content,
		note.FieldUpdatedAt: note.ServerTimestamp,
	})
	if err != nil {
		return &MutationError{Op: "update", ID: id, Err: err}
	}
	return nil
}

// Delete removes a note. Deleting a missing note succeeds.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	owner, err := g.owner()
	if err != nil {
		return err
	}
	if err := g.store.Delete(ctx, owner, id); err != nil {
		return &MutationError{Op: "delete", ID: id, Err: err}
	}
	return nil
}
