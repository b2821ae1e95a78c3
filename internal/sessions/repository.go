package sessions

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository persists refresh sessions keyed by token digest.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, tokenHash string) (*Session, error)
	Delete(ctx context.Context, tokenHash string) error
	// DeleteByUID removes every session of an account and reports how many went.
	DeleteByUID(ctx context.Context, uid string) (int, error)
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, tokenHash string) (*Session, error) {
	var s Session
	err := r.col.FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"tokenHash": tokenHash})
	return err
}

func (r *MongoRepository) DeleteByUID(ctx context.Context, uid string) (int, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"uid": uid})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

// MemoryRepository keeps sessions in process memory (single node, CLI, tests).
type MemoryRepository struct {
	mu     sync.Mutex
	byHash map[string]Session
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byHash: map[string]Session{}, now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[s.TokenHash] = *s
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, tokenHash string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	if s.Expired(r.now()) {
		delete(r.byHash, tokenHash)
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHash, tokenHash)
	return nil
}

func (r *MemoryRepository) DeleteByUID(ctx context.Context, uid string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for h, s := range r.byHash {
		if s.UID == uid {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}
