package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/pkg/logger"
)

// SubscriptionError is a delivery failure of a live subscription.
type SubscriptionError struct {
	Kind string
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("%s subscription failed: %v", e.Kind, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// live is the lifecycle shared by both subscription kinds: a producer
// goroutine, a one-slot change signal and an idempotent cancel.
type live struct {
	updates chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	active  bool
}

func (l *live) init() {
	l.updates = make(chan struct{}, 1)
	l.done = make(chan struct{})
	l.cancel = func() {}
}

func (l *live) notify() {
	select {
	case l.updates <- struct{}{}:
	default:
	}
}

// Updates signals that State may have changed. Signals coalesce; read State
// after each one. An inactive subscription never signals.
func (l *live) Updates() <-chan struct{} { return l.updates }

// Done is closed once the subscription stopped receiving events.
func (l *live) Done() <-chan struct{} { return l.done }

// Active reports whether a store listener was opened.
func (l *live) Active() bool { return l.active }

// Cancel releases the store listener. Calling it again is a no-op.
func (l *live) Cancel() {
	l.once.Do(l.cancel)
}

func localTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	lt := t.Local()
	return &lt
}

// CollectionState is the latest snapshot of the owner's notes.
type CollectionState struct {
	Notes   []note.Note
	Loading bool
	Err     *SubscriptionError
}

// CollectionSubscription keeps the owner's note list, newest first.
type CollectionSubscription struct {
	live
	mu    sync.Mutex
	state CollectionState
}

// SubscribeCollection opens a live query over id's notes. A nil identity
// yields an empty, inactive subscription.
func SubscribeCollection(ctx context.Context, store note.Store, id *auth.Identity) *CollectionSubscription {
	s := &CollectionSubscription{}
	s.init()
	if id == nil || id.UID == "" {
		close(s.done)
		return s
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel, s.active = cancel, true
	s.state.Loading = true
	go s.run(ctx, store, id.UID)
	return s
}

func (s *CollectionSubscription) run(ctx context.Context, store note.Store, owner string) {
	defer close(s.done)
	ch, err := store.WatchCollection(ctx, owner)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	for snap := range ch {
		if snap.Err != nil {
			s.fail(ctx, snap.Err)
			continue
		}
		notes := make([]note.Note, len(snap.Notes))
		for i, n := range snap.Notes {
			n.CreatedAt, n.UpdatedAt = localTime(n.CreatedAt), localTime(n.UpdatedAt)
			notes[i] = n
		}
		s.set(ctx, CollectionState{Notes: notes})
	}
}

// fail clears the list and stops loading.
func (s *CollectionSubscription) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	logger.Named("collection").Errorf("%v", err)
	s.set(ctx, CollectionState{Notes: []note.Note{}, Err: &SubscriptionError{Kind: "collection", Err: err}})
}

func (s *CollectionSubscription) set(ctx context.Context, st CollectionState) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()
	s.notify()
}

func (s *CollectionSubscription) State() CollectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Notes = append([]note.Note(nil), s.state.Notes...)
	return st
}

// Draft is the title and content an editor starts from.
type Draft struct {
	Title   string
	Content string
}

// DocumentState is the latest snapshot of one note. A deleted note reads
// as blank with Exists false.
type DocumentState struct {
	Title     string
	Content   string
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Exists    bool
	Loading   bool
	Err       *SubscriptionError
}

// DocumentSubscription keeps one note in step with the store.
type DocumentSubscription struct {
	live
	mu    sync.Mutex
	state DocumentState
}

// SubscribeDocument opens a live query over one note. Without a note id or
// an identity no listener is opened and the state stays at initial.
func SubscribeDocument(ctx context.Context, store note.Store, id *auth.Identity, noteID string, initial Draft) *DocumentSubscription {
	s := &DocumentSubscription{}
	s.init()
	s.state = DocumentState{Title: initial.Title, Content: initial.Content}
	if noteID == "" || id == nil || id.UID == "" {
		close(s.done)
		return s
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel, s.active = cancel, true
	s.state.Loading = true
	go s.run(ctx, store, id.UID, noteID)
	return s
}

func (s *DocumentSubscription) run(ctx context.Context, store note.Store, owner, noteID string) {
	defer close(s.done)
	ch, err := store.WatchDocument(ctx, owner, noteID)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	for snap := range ch {
		switch {
		case snap.Err != nil:
			s.fail(ctx, snap.Err)
		case !snap.Exists:
			s.set(ctx, func(st *DocumentState) { *st = DocumentState{} })
		default:
			n := snap.Note
			s.set(ctx, func(st *DocumentState) {
				*st = DocumentState{
					Title:     n.Title,
					Content:   n.Content,
					CreatedAt: localTime(n.CreatedAt),
					UpdatedAt: localTime(n.UpdatedAt),
					Exists:    true,
				}
			})
		}
	}
}

// fail keeps the displayed fields.
func (s *DocumentSubscription) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	logger.Named("document").Errorf("%v", err)
	s.set(ctx, func(st *DocumentState) {
		st.Loading = false
		st.Err = &SubscriptionError{Kind: "document", Err: err}
	})
}

func (s *DocumentSubscription) set(ctx context.Context, apply func(*DocumentState)) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	apply(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *DocumentSubscription) State() DocumentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
