package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghichu/ghichu/internal/auth"
	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/note/repository"
	"github.com/stretchr/testify/require"
)

const tick = 5 * time.Millisecond

func seedNote(t *testing.T, repo note.Store, owner, title, content string) string {
	t.Helper()
	id, err := repo.Create(context.Background(), owner, note.Fields{
		note.FieldTitle:     title,
		note.FieldContent:   content,
		note.FieldCreatedAt: note.ServerTimestamp,
		note.FieldUpdatedAt: note.ServerTimestamp,
	})
	require.NoError(t, err)
	return id
}

func TestCollectionInactiveWithoutIdentity(t *testing.T) {
	s := SubscribeCollection(context.Background(), repository.NewMemoryRepo(), nil)
	require.False(t, s.Active())
	st := s.State()
	require.Empty(t, st.Notes)
	require.False(t, st.Loading)
	require.Nil(t, st.Err)
	<-s.Done()
	s.Cancel()
	s.Cancel()
}

func TestCollectionFollowsStore(t *testing.T) {
	repo := repository.NewMemoryRepo()
	id := &auth.Identity{UID: "u1"}
	seedNote(t, repo, "u1", "first", "")
	seedNote(t, repo, "u1", "second", "")
	seedNote(t, repo, "u2", "other", "")

	s := SubscribeCollection(context.Background(), repo, id)
	defer s.Cancel()
	require.True(t, s.Active())

	require.Eventually(t, func() bool { return len(s.State().Notes) == 2 }, wait, tick)
	st := s.State()
	require.False(t, st.Loading)
	require.Equal(t, []string{"second", "first"}, titles(st.Notes))
	require.Equal(t, time.Local, st.Notes[0].CreatedAt.Location())

	third := seedNote(t, repo, "u1", "third", "")
	require.Eventually(t, func() bool { return len(s.State().Notes) == 3 }, wait, tick)
	require.Equal(t, "third", s.State().Notes[0].Title)

	require.NoError(t, repo.Delete(context.Background(), "u1", third))
	require.Eventually(t, func() bool { return len(s.State().Notes) == 2 }, wait, tick)
}

func TestCollectionCancelReleasesListener(t *testing.T) {
	repo := repository.NewMemoryRepo()
	s := SubscribeCollection(context.Background(), repo, &auth.Identity{UID: "u1"})
	require.Eventually(t, func() bool { return repo.Watchers("u1") == 1 }, wait, tick)

	s.Cancel()
	s.Cancel()
	select {
	case <-s.Done():
	case <-time.After(wait):
		t.Fatal("subscription still running after cancel")
	}
	require.Eventually(t, func() bool { return repo.Watchers("u1") == 0 }, wait, tick)

	before := s.State()
	seedNote(t, repo, "u1", "late", "")
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, before, s.State())
}

func TestCollectionFailureClearsList(t *testing.T) {
	repo := repository.NewMemoryRepo()
	store := &flakyStore{Store: repo, collFail: make(chan error, 1)}
	seedNote(t, repo, "u1", "kept?", "")

	s := SubscribeCollection(context.Background(), store, &auth.Identity{UID: "u1"})
	defer s.Cancel()
	require.Eventually(t, func() bool { return len(s.State().Notes) == 1 }, wait, tick)

	store.collFail <- errBoom
	require.Eventually(t, func() bool { return s.State().Err != nil }, wait, tick)
	st := s.State()
	require.Empty(t, st.Notes)
	require.False(t, st.Loading)
	require.ErrorIs(t, st.Err, errBoom)
	require.Equal(t, "collection", st.Err.Kind)
}

func TestCollectionOpenFailure(t *testing.T) {
	store := &flakyStore{Store: repository.NewMemoryRepo(), watchErr: errBoom}
	s := SubscribeCollection(context.Background(), store, &auth.Identity{UID: "u1"})
	defer s.Cancel()
	<-s.Done()
	require.ErrorIs(t, s.State().Err, errBoom)
	require.False(t, s.State().Loading)
}

func TestDocumentWithoutIDKeepsDraft(t *testing.T) {
	s := SubscribeDocument(context.Background(), repository.NewMemoryRepo(), &auth.Identity{UID: "u1"}, "", Draft{Title: "t", Content: "c"})
	defer s.Cancel()
	require.False(t, s.Active())
	st := s.State()
	require.Equal(t, "t", st.Title)
	require.Equal(t, "c", st.Content)
	require.False(t, st.Loading)
}

func TestDocumentFollowsUpdatesAndDeletion(t *testing.T) {
	repo := repository.NewMemoryRepo()
	ctx := context.Background()
	id := seedNote(t, repo, "u1", "draft", "body")

	s := SubscribeDocument(ctx, repo, &auth.Identity{UID: "u1"}, id, Draft{Title: "draft"})
	defer s.Cancel()
	require.Eventually(t, func() bool { return s.State().Exists }, wait, tick)
	require.Equal(t, "body", s.State().Content)
	require.NotNil(t, s.State().CreatedAt)

	require.NoError(t, repo.Update(ctx, "u1", id, note.Fields{note.FieldTitle: "final", note.FieldUpdatedAt: note.ServerTimestamp}))
	require.Eventually(t, func() bool { return s.State().Title == "final" }, wait, tick)

	require.NoError(t, repo.Delete(ctx, "u1", id))
	require.Eventually(t, func() bool { return !s.State().Exists }, wait, tick)
	require.Equal(t, DocumentState{}, s.State())
}

func TestDocumentAfterDeleteIsNotFound(t *testing.T) {
	repo := repository.NewMemoryRepo()
	ctx := context.Background()
	id := seedNote(t, repo, "u1", "gone", "")
	require.NoError(t, repo.Delete(ctx, "u1", id))

	s := SubscribeDocument(ctx, repo, &auth.Identity{UID: "u1"}, id, Draft{Title: "stale"})
	defer s.Cancel()
	require.Eventually(t, func() bool { return !s.State().Loading }, wait, tick)
	st := s.State()
	require.False(t, st.Exists)
	require.Empty(t, st.Title)
	require.Nil(t, st.Err)
}

func TestDocumentFailureKeepsFields(t *testing.T) {
	repo := repository.NewMemoryRepo()
	store := &flakyStore{Store: repo, docFail: make(chan error, 1)}
	id := seedNote(t, repo, "u1", "title", "content")

	s := SubscribeDocument(context.Background(), store, &auth.Identity{UID: "u1"}, id, Draft{})
	defer s.Cancel()
	require.Eventually(t, func() bool { return s.State().Exists }, wait, tick)

	store.docFail <- errBoom
	require.Eventually(t, func() bool { return s.State().Err != nil }, wait, tick)
	st := s.State()
	require.Equal(t, "title", st.Title)
	require.Equal(t, "content", st.Content)
	var se *SubscriptionError
	require.True(t, errors.As(st.Err, &se))
	require.Equal(t, "document", se.Kind)
}
