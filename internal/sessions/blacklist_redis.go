package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "revoked:access:"

// Blacklist records revoked access tokens, by digest, until they would have
// expired anyway. A Blacklist with a nil client is a no-op.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

func (b *Blacklist) enabled() bool { return b != nil && b.client != nil }

// Revoke blocks token for ttl. Non-positive ttls are ignored.
func (b *Blacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if !b.enabled() || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistPrefix+HashToken(token), "1", ttl).Err()
}

func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if !b.enabled() {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistPrefix+HashToken(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
