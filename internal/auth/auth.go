// Package auth is the authentication capability: email/password accounts on
// the server side (Service) and the signed-in session of one client (Client).
package auth

import (
	"context"
	"time"
)

// Identity is the opaque handle of a signed-in user. UID scopes every note.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Session is a signed-in identity with its tokens.
type Session struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Backend performs account operations; Service implements it in process and
// HTTPBackend over the network.
type Backend interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, s *Session) error
	SendPasswordReset(ctx context.Context, email string) error
}

// Provider is what the client screens use. OnSessionChange calls fn with the
// current identity right after registration and again after every change;
// nil means signed out.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	OnSessionChange(fn func(*Identity)) (unsubscribe func())
}
