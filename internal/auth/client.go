package auth

import (
	"context"
	"sync"
	"time"
)

// refreshSkew is how long before expiry AccessToken renews the token.
const refreshSkew = 30 * time.Second

// Client holds the session of one signed-in user and implements Provider.
type Client struct {
	backend Backend

	mu        sync.Mutex
	session   *Session
	listeners map[*listener]struct{}
}

var _ Provider = (*Client)(nil)

func NewClient(b Backend) *Client {
	return &Client{backend: b, listeners: make(map[*listener]struct{})}
}

// listener delivers session changes to one callback from its own goroutine,
// always with the latest identity.
type listener struct {
	kick chan struct{}
	stop chan struct{}
	once sync.Once
}

func (c *Client) OnSessionChange(fn func(*Identity)) func() {
	l := &listener{kick: make(chan struct{}, 1), stop: make(chan struct{})}
	l.kick <- struct{}{}
	c.mu.Lock()
	c.listeners[l] = struct{}{}
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-l.stop:
				return
			case <-l.kick:
			}
			id := c.Current()
			select {
			case <-l.stop:
				return
			default:
			}
			fn(id)
		}
	}()

	return func() {
		l.once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, l)
			c.mu.Unlock()
			close(l.stop)
		})
	}
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	for l := range c.listeners {
		select {
		case l.kick <- struct{}{}:
		default:
		}
	}
}

// Current returns the signed-in identity or nil.
func (c *Client) Current() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	id := c.session.Identity
	return &id
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Identity, error) {
	s, err := c.backend.SignIn(ctx, email, password)
	if err != nil {
		return Identity{}, AsError(err)
	}
	c.setSession(s)
	return s.Identity, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (Identity, error) {
	s, err := c.backend.SignUp(ctx, email, password)
	if err != nil {
		return Identity{}, AsError(err)
	}
	c.setSession(s)
	return s.Identity, nil
}

// SignOut clears the local session even when the backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	err := c.backend.SignOut(ctx, s)
	c.setSession(nil)
	if err != nil {
		return AsError(err)
	}
	return nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	if err := c.backend.SendPasswordReset(ctx, email); err != nil {
		return AsError(err)
	}
	return nil
}

// AccessToken returns a token for the current session, refreshing it when it
// is about to expire. An expired refresh session signs the client out.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return "", newError(CodeSessionExpired, nil)
	}
	if time.Until(s.ExpiresAt) > refreshSkew {
		return s.AccessToken, nil
	}
	fresh, err := c.backend.Refresh(ctx, s.RefreshToken)
	if err != nil {
		ae := AsError(err)
		if ae.Code == CodeSessionExpired {
			c.setSession(nil)
		}
		return "", ae
	}
	c.mu.Lock()
	if c.session == s {
		c.session = fresh
	}
	c.mu.Unlock()
	return fresh.AccessToken, nil
}
