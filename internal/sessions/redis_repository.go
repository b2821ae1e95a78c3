package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository stores each session as JSON under <prefix><tokenHash> with
// a TTL matching its expiry. An account index set <prefix>uid:<uid> lists the
// digests so all of an account's sessions can be dropped at once.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-based session repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) key(tokenHash string) string { return r.prefix + tokenHash }
func (r *RedisRepository) index(uid string) string     { return r.prefix + "uid:" + uid }

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key(s.TokenHash), b, ttl)
		p.SAdd(ctx, r.index(s.UID), s.TokenHash)
		p.Expire(ctx, r.index(s.UID), ttl)
		return nil
	})
	return err
}

func (r *RedisRepository) Get(ctx context.Context, tokenHash string) (*Session, error) {
	b, err := r.client.Get(ctx, r.key(tokenHash)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisRepository) Delete(ctx context.Context, tokenHash string) error {
	s, err := r.Get(ctx, tokenHash)
	if err != nil || s == nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key(tokenHash))
		p.SRem(ctx, r.index(s.UID), tokenHash)
		return nil
	})
	return err
}

func (r *RedisRepository) DeleteByUID(ctx context.Context, uid string) (int, error) {
	hashes, err := r.client.SMembers(ctx, r.index(uid)).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, r.key(h))
	}
	keys = append(keys, r.index(uid))
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	// the index key itself is counted by DEL
	if n > 0 {
		n--
	}
	return int(n), nil
}
