package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetStore holds single-use password reset tokens.
type ResetStore interface {
	Put(ctx context.Context, token, uid string, ttl time.Duration) error
	// Take consumes the token and returns its owner, or "" when unknown/expired.
	Take(ctx context.Context, token string) (string, error)
}

// IssueResetToken creates a random reset token for uid and stores it.
func IssueResetToken(ctx context.Context, store ResetStore, uid string, ttl time.Duration) (string, error) {
	tok, err := randomToken()
	if err != nil {
		return "", err
	}
	if err := store.Put(ctx, tok, uid, ttl); err != nil {
		return "", err
	}
	return tok, nil
}

type RedisResetStore struct {
	client *redis.Client
}

func NewRedisResetStore(client *redis.Client) *RedisResetStore {
	return &RedisResetStore{client: client}
}

func (r *RedisResetStore) Put(ctx context.Context, token, uid string, ttl time.Duration) error {
	return r.client.Set(ctx, "reset:"+token, uid, ttl).Err()
}

func (r *RedisResetStore) Take(ctx context.Context, token string) (string, error) {
	key := "reset:" + token
	uid, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return "", err
	}
	return uid, nil
}

type resetEntry struct {
	uid       string
	expiresAt time.Time
}

type MemoryResetStore struct {
	mu      sync.Mutex
	entries map[string]resetEntry
	now     func() time.Time
}

func NewMemoryResetStore() *MemoryResetStore {
	return &MemoryResetStore{entries: map[string]resetEntry{}, now: time.Now}
}

func (m *MemoryResetStore) Put(ctx context.Context, token, uid string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = resetEntry{uid: uid, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryResetStore) Take(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return "", nil
	}
	delete(m.entries, token)
	if m.now().After(e.expiresAt) {
		return "", nil
	}
	return e.uid, nil
}
