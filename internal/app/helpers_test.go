package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/note/repository"
	"github.com/stretchr/testify/require"
)

const wait = 2 * time.Second

// accounts is an in-memory auth.Backend.
type accounts struct {
	mu        sync.Mutex
	passwords map[string]string
	signOut   error
}

func newAccounts() *accounts { return &accounts{passwords: map[string]string{}} }

func (b *accounts) session(email string) *auth.Session {
	return &auth.Session{
		Identity:     auth.Identity{UID: "uid-" + email, Email: email},
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func (b *accounts) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.passwords[email]; ok {
		return nil, &auth.Error{Code: auth.CodeEmailInUse, Message: "The email address is already in use by another account."}
	}
	b.passwords[email] = password
	return b.session(email), nil
}

func (b *accounts) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.passwords[email]; !ok || p != password {
		return nil, &auth.Error{Code: auth.CodeInvalidCredential, Message: "The email or password is incorrect."}
	}
	return b.session(email), nil
}

func (b *accounts) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return nil, &auth.Error{Code: auth.CodeSessionExpired, Message: "expired"}
}

func (b *accounts) SignOut(ctx context.Context, s *auth.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signOut
}

func (b *accounts) SendPasswordReset(ctx context.Context, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.passwords[email]; !ok {
		return &auth.Error{Code: auth.CodeUserNotFound, Message: "There is no user record corresponding to this email."}
	}
	return nil
}

type alert struct{ Title, Message string }

type alerts struct {
	mu  sync.Mutex
	got []alert
}

func (a *alerts) Alert(title, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, alert{title, message})
}

func (a *alerts) all() []alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]alert(nil), a.got...)
}

// flakyStore fails the operations it is told to and otherwise delegates.
type flakyStore struct {
	note.Store
	mu       sync.Mutex
	writeErr error
	watchErr error
	collFail chan error
	docFail  chan error
	gate     chan struct{}
}

// err waits for the gate, if one is set, then returns the injected error.
func (s *flakyStore) err() error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeErr
}

func (s *flakyStore) hold() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	return s.gate
}

func (s *flakyStore) failWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

func (s *flakyStore) Create(ctx context.Context, owner string, fields note.Fields) (string, error) {
	if err := s.err(); err != nil {
		return "", err
	}
	return s.Store.Create(ctx, owner, fields)
}

func (s *flakyStore) Update(ctx context.Context, owner, id string, fields note.Fields) error {
	if err := s.err(); err != nil {
		return err
	}
	return s.Store.Update(ctx, owner, id, fields)
}

func (s *flakyStore) Delete(ctx context.Context, owner, id string) error {
	if err := s.err(); err != nil {
		return err
	}
	return s.Store.Delete(ctx, owner, id)
}

// WatchCollection forwards snapshots until a value is sent on collFail,
// which ends the stream with that error.
func (s *flakyStore) WatchCollection(ctx context.Context, owner string) (<-chan note.CollectionSnapshot, error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	in, err := s.Store.WatchCollection(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make(chan note.CollectionSnapshot)
	go func() {
		defer close(out)
		for {
			select {
			case snap, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			case err := <-s.collFail:
				select {
				case out <- note.CollectionSnapshot{Err: err}:
				case <-ctx.Done():
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *flakyStore) WatchDocument(ctx context.Context, owner, id string) (<-chan note.DocumentSnapshot, error) {
	in, err := s.Store.WatchDocument(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	out := make(chan note.DocumentSnapshot)
	go func() {
		defer close(out)
		for {
			select {
			case snap, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			case err := <-s.docFail:
				select {
				case out <- note.DocumentSnapshot{Err: err}:
				case <-ctx.Done():
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

var errBoom = errors.New("boom")

type fixture struct {
	app      *App
	client   *auth.Client
	accounts *accounts
	repo     *repository.MemoryRepo
	store    *flakyStore
	alerts   *alerts
	confirm  bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: newAccounts(),
		repo:     repository.NewMemoryRepo(),
		alerts:   &alerts{},
		confirm:  true,
	}
	f.store = &flakyStore{Store: f.repo, collFail: make(chan error, 1), docFail: make(chan error, 1)}
	f.client = auth.NewClient(f.accounts)
	f.app = New(Options{
		Auth:    f.client,
		Store:   f.store,
		Alerts:  f.alerts,
		Confirm: ConfirmFunc(func(string, string, string, string) bool { return f.confirm }),
	})
	t.Cleanup(f.app.Close)
	return f
}

// signIn creates an account without a welcome note, logs in and waits
// until the session reflects it.
func (f *fixture) signIn(t *testing.T, email string) auth.Identity {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	_, err := f.accounts.SignUp(ctx, email, "pass1234")
	require.NoError(t, err)
	id, err := f.app.Login(ctx, email, "pass1234")
	require.NoError(t, err)
	_, err = f.app.Session().WaitFor(ctx, func(cur *auth.Identity) bool { return cur != nil && cur.UID == id.UID })
	require.NoError(t, err)
	return id
}

func (f *fixture) seed(t *testing.T, owner, title, content string) string {
	t.Helper()
	id, err := f.repo.Create(context.Background(), owner, note.Fields{
		note.FieldTitle:     title,
		note.FieldContent:   content,
		note.FieldCreatedAt: note.ServerTimestamp,
		note.FieldUpdatedAt: note.ServerTimestamp,
	})
	require.NoError(t, err)
	return id
}

func titles(notes []note.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}
