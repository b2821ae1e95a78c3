package app

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ghichu/ghichu/pkg/logger"
)

// EditorParams opens an editor. Title and Content are shown until the first
// snapshot arrives; NoteID empty means a new note.
type EditorParams struct {
	NoteID  string
	Title   string
	Content string
}

// Editor is the note screen: local fields, refreshed by the note's live
// subscription, and a save control that is either idle or in flight.
type Editor struct {
	app    *App
	noteID string
	sub    *DocumentSubscription
	cancel context.CancelFunc
	log    logger.Component

	mu        sync.Mutex
	title     string
	content   string
	createdAt *time.Time
	updatedAt *time.Time
	busy      bool
	seen      *SubscriptionError

	updates chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (a *App) OpenEditor(ctx context.Context, p EditorParams) *Editor {
	ctx, id, cancel := a.session.Scope(ctx)
	e := &Editor{
		app:     a,
		noteID:  p.NoteID,
		cancel:  cancel,
		log:     logger.Named("editor"),
		content: p.Content,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	e.title = clip(p.Title, a.gateway.maxTitle)
	e.sub = SubscribeDocument(ctx, a.store, id, p.NoteID, Draft{Title: e.title, Content: p.Content})
	go e.follow(ctx)
	return e
}

func (e *Editor) follow(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.sub.Updates():
		}
		st := e.sub.State()
		alert := false
		e.mu.Lock()
		if st.Err != nil {
			alert = st.Err != e.seen
			e.seen = st.Err
		} else if !st.Loading {
			e.title = st.Title
			e.content = st.Content
			e.createdAt, e.updatedAt = st.CreatedAt, st.UpdatedAt
		}
		e.mu.Unlock()
		if alert {
			e.app.alerts.Alert(TitleError, MsgNoteLoadFailed)
		}
		e.notify()
	}
}

func (e *Editor) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}

// Updates signals that the fields may have changed.
func (e *Editor) Updates() <-chan struct{} { return e.updates }

func (e *Editor) NoteID() string { return e.noteID }

// CanDelete reports whether the note exists in the store.
func (e *Editor) CanDelete() bool { return e.noteID != "" }

func (e *Editor) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

func (e *Editor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// Timestamps returns the store times of the note, nil when absent.
func (e *Editor) Timestamps() (createdAt, updatedAt *time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createdAt, e.updatedAt
}

// SetTitle keeps at most the title limit in runes.
func (e *Editor) SetTitle(s string) {
	e.mu.Lock()
	e.title = clip(s, e.app.gateway.maxTitle)
	e.mu.Unlock()
}

func (e *Editor) SetContent(s string) {
	e.mu.Lock()
	e.content = s
	e.mu.Unlock()
}

// Saving reports whether a save or delete is in flight.
func (e *Editor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// CanLeave is false while a save or delete is in flight, so its outcome is
// always reported on this screen.
func (e *Editor) CanLeave() bool { return !e.Saving() }

func (e *Editor) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Editor) end() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
	e.notify()
}

// Save creates or updates the note. On nil the caller leaves the screen;
// on failure the fields are kept and the user has been alerted.
func (e *Editor) Save(ctx context.Context) error {
	if !e.begin() {
		return ErrSaveInFlight
	}
	defer e.end()
	e.mu.Lock()
	title, content := e.title, e.content
	e.mu.Unlock()

	var err error
	if e.noteID == "" {
		_, err = e.app.gateway.Create(ctx, title, content)
	} else {
		err = e.app.gateway.Update(ctx, e.noteID, title, content)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotAuthenticated):
		e.app.alerts.Alert(TitleError, MsgSignInToSave)
	default:
		e.log.Errorf("%v", err)
		e.app.alerts.Alert(TitleError, MsgSaveFailed)
	}
	return err
}

// Delete asks for confirmation and removes the note. It reports whether
// the note was deleted, in which case the caller leaves the screen.
func (e *Editor) Delete(ctx context.Context) (bool, error) {
	if e.noteID == "" {
		return false, nil
	}
	if !e.app.confirm.Confirm(TitleConfirm, MsgConfirmDelete, ButtonCancel, ButtonDelete) {
		return false, nil
	}
	if !e.begin() {
		return false, ErrSaveInFlight
	}
	defer e.end()
	err := e.app.gateway.Delete(ctx, e.noteID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotAuthenticated):
		e.app.alerts.Alert(TitleError, MsgSignInToDelete)
	default:
		e.log.Errorf("%v", err)
		e.app.alerts.Alert(TitleError, MsgDeleteFailed)
	}
	return false, err
}

// Close releases the note subscription.
func (e *Editor) Close() {
	e.once.Do(func() {
		e.sub.Cancel()
		e.cancel()
		<-e.done
	})
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
