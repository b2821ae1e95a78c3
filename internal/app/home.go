package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ghichu/ghichu/internal/note"
)

// DateLayout is how note times are shown (vi-VN).
const DateLayout = "15:04 02/01/2006"

// FormatDate renders t in local time, "" when absent.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(DateLayout)
}

// Row is one line of the note list.
type Row struct {
	Note      note.Note
	Preview   string
	CreatedAt string
	UpdatedAt string
}

// EditorParams opens the row's note with its fields shown immediately.
func (r Row) EditorParams() EditorParams {
	return EditorParams{NoteID: r.Note.ID, Title: r.Note.Title, Content: r.Note.Content}
}

// preview keeps the first two lines of content.
func preview(content string) string {
	lines := strings.SplitN(content, "\n", 3)
	if len(lines) <= 2 {
		return content
	}
	return lines[0] + "\n" + lines[1] + "…"
}

// Home is the note list screen: the collection subscription narrowed by
// the search query.
type Home struct {
	app    *App
	sub    *CollectionSubscription
	cancel context.CancelFunc

	mu    sync.Mutex
	query string
	seen  *SubscriptionError

	updates chan struct{}
	done    chan struct{}
	once    sync.Once
}

// OpenHome subscribes to the signed-in user's notes.
func (a *App) OpenHome(ctx context.Context) *Home {
	ctx, id, cancel := a.session.Scope(ctx)
	h := &Home{
		app:     a,
		cancel:  cancel,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	h.sub = SubscribeCollection(ctx, a.store, id)
	go h.follow(ctx)
	return h
}

func (h *Home) follow(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.sub.Updates():
		}
		st := h.sub.State()
		h.mu.Lock()
		alert := st.Err != nil && st.Err != h.seen
		if st.Err != nil {
			h.seen = st.Err
		}
		h.mu.Unlock()
		if alert {
			h.app.alerts.Alert(TitleError, MsgListLoadFailed)
		}
		h.notify()
	}
}

func (h *Home) notify() {
	select {
	case h.updates <- struct{}{}:
	default:
	}
}

// Updates signals that the list may have changed.
func (h *Home) Updates() <-chan struct{} { return h.updates }

func (h *Home) Loading() bool { return h.sub.State().Loading }

// Err is the last delivery failure, if any.
func (h *Home) Err() error {
	if err := h.sub.State().Err; err != nil {
		return err
	}
	return nil
}

func (h *Home) SetQuery(q string) {
	h.mu.Lock()
	h.query = q
	h.mu.Unlock()
	h.notify()
}

func (h *Home) Query() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.query
}

// Notes is the current snapshot filtered by the query.
func (h *Home) Notes() []note.Note {
	return note.Filter(h.sub.State().Notes, h.Query())
}

func (h *Home) Rows() []Row {
	notes := h.Notes()
	rows := make([]Row, len(notes))
	for i, n := range notes {
		rows[i] = Row{
			Note:      n,
			Preview:   preview(n.Content),
			CreatedAt: FormatDate(n.CreatedAt),
			UpdatedAt: FormatDate(n.UpdatedAt),
		}
	}
	return rows
}

// Close releases the list subscription.
func (h *Home) Close() {
	h.once.Do(func() {
		h.sub.Cancel()
		h.cancel()
		<-h.done
	})
}
