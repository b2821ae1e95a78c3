package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ghichu/ghichu/internal/note"
	"github.com/oklog/ulid/v2"
)

// MemoryRepo is an in-process note store with live queries. A write kicks
// the owner's collection watchers and the document watchers of the written
// note; watchers re-read the current state when they deliver, so a slow
// consumer only ever sees the latest snapshot.
type MemoryRepo struct {
	mu       sync.Mutex
	notes    map[string]map[string]*note.Note // owner -> id -> note
	watchers map[string]map[chan struct{}]string // owner -> kick -> note id, "" for the collection
	last     time.Time
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		notes:    make(map[string]map[string]*note.Note),
		watchers: make(map[string]map[chan struct{}]string),
		now:      time.Now,
	}
}

// tick returns the store clock. It never repeats or goes backwards.
func (m *MemoryRepo) tick() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}
	m.last = t
	return t
}

func (m *MemoryRepo) Create(ctx context.Context, owner string, fields note.Fields) (string, error) {
	if owner == "" {
		return "", note.ErrNoOwner
	}
	if err := fields.Validate(true); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := &note.Note{ID: strings.ToLower(ulid.Make().String())}
	apply(n, fields, m.tick())
	if m.notes[owner] == nil {
		m.notes[owner] = make(map[string]*note.Note)
	}
	m.notes[owner][n.ID] = n
	m.kick(owner, n.ID)
	return n.ID, nil
}

func (m *MemoryRepo) Update(ctx context.Context, owner, id string, fields note.Fields) error {
	if owner == "" {
		return note.ErrNoOwner
	}
	if err := fields.Validate(false); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[owner][id]
	if !ok {
		return note.ErrNotFound
	}
	apply(n, fields, m.tick())
	m.kick(owner, id)
	return nil
}

// Delete removes the note; deleting a missing note succeeds.
func (m *MemoryRepo) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return note.ErrNoOwner
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[owner][id]; !ok {
		return nil
	}
	delete(m.notes[owner], id)
	m.kick(owner, id)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, owner, id string) (*note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[owner][id]
	if !ok {
		return nil, note.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *MemoryRepo) List(ctx context.Context, owner string) ([]note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(owner), nil
}

// list returns copies ordered by createdAt desc, then id desc. Caller holds mu.
func (m *MemoryRepo) list(owner string) []note.Note {
	out := make([]note.Note, 0, len(m.notes[owner]))
	for _, n := range m.notes[owner] {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		switch {
		case a == nil && b == nil:
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.After(*b)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *MemoryRepo) WatchCollection(ctx context.Context, owner string) (<-chan note.CollectionSnapshot, error) {
	if owner == "" {
		return nil, note.ErrNoOwner
	}
	kick := m.subscribe(owner, "")
	out := make(chan note.CollectionSnapshot)
	go func() {
		defer close(out)
		defer m.unsubscribe(owner, kick)
		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
			}
			m.mu.Lock()
			snap := note.CollectionSnapshot{Notes: m.list(owner)}
			m.mu.Unlock()
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (m *MemoryRepo) WatchDocument(ctx context.Context, owner, id string) (<-chan note.DocumentSnapshot, error) {
	if owner == "" {
		return nil, note.ErrNoOwner
	}
	kick := m.subscribe(owner, id)
	out := make(chan note.DocumentSnapshot)
	go func() {
		defer close(out)
		defer m.unsubscribe(owner, kick)
		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
			}
			m.mu.Lock()
			snap := note.DocumentSnapshot{Note: note.Note{ID: id}}
			if n, ok := m.notes[owner][id]; ok {
				snap.Note, snap.Exists = *n, true
			}
			m.mu.Unlock()
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// subscribe registers a watcher with a pending kick so the first snapshot is
// delivered right away.
func (m *MemoryRepo) subscribe(owner, id string) chan struct{} {
	kick := make(chan struct{}, 1)
	kick <- struct{}{}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchers[owner] == nil {
		m.watchers[owner] = make(map[chan struct{}]string)
	}
	m.watchers[owner][kick] = id
	return kick
}

func (m *MemoryRepo) unsubscribe(owner string, kick chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers[owner], kick)
	if len(m.watchers[owner]) == 0 {
		delete(m.watchers, owner)
	}
}

// kick wakes the collection watchers of owner and the watchers of note id.
// Caller holds mu.
func (m *MemoryRepo) kick(owner, id string) {
	for k, watched := range m.watchers[owner] {
		if watched != "" && watched != id {
			continue
		}
		select {
		case k <- struct{}{}:
		default:
		}
	}
}

// Watchers reports the number of live watchers for owner.
func (m *MemoryRepo) Watchers(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers[owner])
}

func apply(n *note.Note, fields note.Fields, now time.Time) {
	for k, v := range fields {
		switch k {
		case note.FieldTitle:
			n.Title = v.(string)
		case note.FieldContent:
			n.Content = v.(string)
		case note.FieldCreatedAt:
			t := now
			n.CreatedAt = &t
		case note.FieldUpdatedAt:
			t := now
			n.UpdatedAt = &t
		}
	}
}
