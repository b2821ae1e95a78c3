package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/ghichu/ghichu/internal/note"
	"github.com/ghichu/ghichu/internal/note/repository"
	"github.com/ghichu/ghichu/pkg/logger"
	"github.com/ghichu/ghichu/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultMaxTitleLength is the title limit, counted in runes.
const DefaultMaxTitleLength = 100

// Service is the note store used by the HTTP layer and by in-process clients.
type Service interface {
	note.Store
}

// Options tunes validation on the write path.
type Options struct {
	MaxTitleLength int
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts Options) Service {
	return New(repository.NewMemoryRepo(), opts)
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoService(col *mongo.Collection, opts Options) Service {
	return New(repository.NewMongoRepo(col), opts)
}

// New wraps any store with title validation, metrics and logging.
func New(repo note.Store, opts Options) Service {
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = DefaultMaxTitleLength
	}
	return &noteService{repo: repo, opts: opts, log: logger.Named("notes")}
}

type noteService struct {
	repo note.Store
	opts Options
	log  logger.Component
}

func (s *noteService) checkTitle(fields note.Fields) error {
	if n := utf8.RuneCountInString(fields.Title()); n > s.opts.MaxTitleLength {
		return fmt.Errorf("%w: %d > %d", note.ErrTitleTooLong, n, s.opts.MaxTitleLength)
	}
	return nil
}

func (s *noteService) record(op string, err error) {
	metrics.NoteMutations.WithLabelValues(op, metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warnf("%s failed: %v", op, err)
	}
}

func (s *noteService) Create(ctx context.Context, owner string, fields note.Fields) (id string, err error) {
	defer func() { s.record("create", err) }()
	if err := s.checkTitle(fields); err != nil {
		return "", err
	}
	return s.repo.Create(ctx, owner, fields)
}

func (s *noteService) Update(ctx context.Context, owner, id string, fields note.Fields) (err error) {
	defer func() { s.record("update", err) }()
	if err := s.checkTitle(fields); err != nil {
		return err
	}
	return s.repo.Update(ctx, owner, id, fields)
}

func (s *noteService) Delete(ctx context.Context, owner, id string) (err error) {
	defer func() { s.record("delete", err) }()
	return s.repo.Delete(ctx, owner, id)
}

func (s *noteService) Get(ctx context.Context, owner, id string) (*note.Note, error) {
	return s.repo.Get(ctx, owner, id)
}

func (s *noteService) List(ctx context.Context, owner string) ([]note.Note, error) {
	return s.repo.List(ctx, owner)
}

func (s *noteService) WatchCollection(ctx context.Context, owner string) (<-chan note.CollectionSnapshot, error) {
	ch, err := s.repo.WatchCollection(ctx, owner)
	if err != nil {
		return nil, err
	}
	s.track(ctx, "collection")
	return ch, nil
}

func (s *noteService) WatchDocument(ctx context.Context, owner, id string) (<-chan note.DocumentSnapshot, error) {
	ch, err := s.repo.WatchDocument(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.track(ctx, "document")
	return ch, nil
}

// track counts a live subscription until its context ends.
func (s *noteService) track(ctx context.Context, kind string) {
	g := metrics.ActiveSubscriptions.WithLabelValues(kind)
	g.Inc()
	s.log.Debugf("%s subscription opened", kind)
	go func() {
		<-ctx.Done()
		g.Dec()
		s.log.Debugf("%s subscription closed", kind)
	}()
}
