package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
)

// Service opens, rotates and closes refresh sessions.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(r Repository) *Service { return &Service{repo: r, now: time.Now} }

// Open starts a session for uid and returns its refresh token.
func (s *Service) Open(ctx context.Context, uid string, ttl time.Duration) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	sess := &Session{
		ID:        ulid.Make().String(),
		TokenHash: HashToken(token),
		UID:       uid,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup returns the live session behind refresh, or nil when it is unknown
// or expired. Expired sessions are removed.
func (s *Service) Lookup(ctx context.Context, refresh string) (*Session, error) {
	h := HashToken(refresh)
	sess, err := s.repo.Get(ctx, h)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		_ = s.repo.Delete(ctx, h)
		return nil, nil
	}
	return sess, nil
}

// Rotate exchanges a live refresh token for a new one. The old token stops
// working. A nil session means refresh was not live.
func (s *Service) Rotate(ctx context.Context, refresh string, ttl time.Duration) (*Session, string, error) {
	sess, err := s.Lookup(ctx, refresh)
	if err != nil || sess == nil {
		return nil, "", err
	}
	if err := s.repo.Delete(ctx, sess.TokenHash); err != nil {
		return nil, "", err
	}
	next, err := s.Open(ctx, sess.UID, ttl)
	if err != nil {
		return nil, "", err
	}
	return sess, next, nil
}

// Close ends the session behind refresh.
func (s *Service) Close(ctx context.Context, refresh string) error {
	return s.repo.Delete(ctx, HashToken(refresh))
}

// CloseAll ends every session of uid.
func (s *Service) CloseAll(ctx context.Context, uid string) (int, error) {
	return s.repo.DeleteByUID(ctx, uid)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
