package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session keeps one signed-in device alive across access token expiry.
// Only the digest of the refresh token is persisted.
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	TokenHash string    `bson:"tokenHash" json:"tokenHash"`
	UID       string    `bson:"uid" json:"uid"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// HashToken returns the digest a refresh token is stored under.
func HashToken(refresh string) string {
	sum := sha256.Sum256([]byte(refresh))
	return hex.EncodeToString(sum[:])
}
