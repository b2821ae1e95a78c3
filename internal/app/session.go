package app

import (
	"context"
	"sync"

	"github.com/ghichu/ghichu/internal/auth"
)

// SessionObserver follows the provider's session-change stream. It reports
// Resolving until the first event arrives, whatever identity that event
// carries.
type SessionObserver struct {
	mu       sync.Mutex
	resolved bool
	identity *auth.Identity
	changed  chan struct{}
	unsub    func()
	closed   bool
}

// ObserveSession registers with p. The registration lasts until Close.
func ObserveSession(p auth.Provider) *SessionObserver {
	o := &SessionObserver{changed: make(chan struct{})}
	unsub := p.OnSessionChange(o.update)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		unsub()
		return o
	}
	o.unsub = unsub
	o.mu.Unlock()
	return o
}

func (o *SessionObserver) update(id *auth.Identity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.resolved = true
	if id != nil {
		cp := *id
		id = &cp
	}
	o.identity = id
	close(o.changed)
	o.changed = make(chan struct{})
}

func (o *SessionObserver) Resolving() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.resolved
}

// Current returns a copy of the latest identity, nil when signed out or
// still resolving.
func (o *SessionObserver) Current() *auth.Identity {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.identity == nil {
		return nil
	}
	cp := *o.identity
	return &cp
}

// Changed returns a channel closed by the next session event.
func (o *SessionObserver) Changed() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.changed
}

// WaitFor blocks until the session is resolved and ok accepts the identity.
func (o *SessionObserver) WaitFor(ctx context.Context, ok func(*auth.Identity) bool) (*auth.Identity, error) {
	for {
		o.mu.Lock()
		resolved, changed := o.resolved, o.changed
		o.mu.Unlock()
		if resolved {
			if id := o.Current(); ok(id) {
				return id, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}

// WaitResolved blocks until the first session event.
func (o *SessionObserver) WaitResolved(ctx context.Context) (*auth.Identity, error) {
	return o.WaitFor(ctx, func(*auth.Identity) bool { return true })
}

// Scope returns a context that ends when the current identity is replaced
// or lost, together with that identity. Subscriptions opened under it are
// released on sign-out.
func (o *SessionObserver) Scope(parent context.Context) (context.Context, *auth.Identity, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	o.mu.Lock()
	id, changed := o.identity, o.changed
	o.mu.Unlock()
	var uid string
	if id != nil {
		cp := *id
		id, uid = &cp, cp.UID
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
			o.mu.Lock()
			cur := o.identity
			changed = o.changed
			o.mu.Unlock()
			if cur == nil || cur.UID != uid {
				cancel()
				return
			}
		}
	}()
	return ctx, id, cancel
}

// Close unregisters from the provider. It is safe to call more than once.
func (o *SessionObserver) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	unsub := o.unsub
	o.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
