// Package identity resolves the single trusted user id of the current
// session. Every mutating operation takes its user id from a Guard, never
// from caller-supplied parameters.
package identity

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSession indicates that no user is signed in.
var ErrNoSession = errors.New("identity: no session")

// Provider is the session/auth collaborator.
type Provider interface {
	// CurrentIdentity returns the signed-in user id, or ErrNoSession.
	CurrentIdentity(ctx context.Context) (string, error)

	// OnIdentityChange registers fn to be called with the new user id
	// (empty on sign-out). The returned func unregisters it.
	OnIdentityChange(fn func(userID string)) (cancel func())
}

// Guard resolves the trusted identity from a Provider.
type Guard struct {
	provider Provider
}

// NewGuard creates a Guard backed by p.
func NewGuard(p Provider) *Guard {
	return &Guard{provider: p}
}

// Resolve returns the trusted user id. It returns ErrNoSession when nobody
// is signed in or the provider returns an empty id.
func (g *Guard) Resolve(ctx context.Context) (string, error) {
	if g == nil || g.provider == nil {
		return "", ErrNoSession
	}
	id, err := g.provider.CurrentIdentity(ctx)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

// listeners is the registration bookkeeping shared by providers.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(string)
}

func (l *listeners) add(fn func(string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(string))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) notify(userID string) {
	l.mu.Lock()
	fns := make([]func(string), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(userID)
	}
}

// MemoryProvider holds the identity in memory.
type MemoryProvider struct {
	mu     sync.RWMutex
	userID string
	ls     listeners
}

// NewMemoryProvider creates a provider signed in as userID. An empty id
// means signed out.
func NewMemoryProvider(userID string) *MemoryProvider {
	return &MemoryProvider{userID: userID}
}

var _ Provider = (*MemoryProvider)(nil)

// CurrentIdentity implements Provider.
func (p *MemoryProvider) CurrentIdentity(_ context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.userID == "" {
		return "", ErrNoSession
	}
	return p.userID, nil
}

// OnIdentityChange implements Provider.
func (p *MemoryProvider) OnIdentityChange(fn func(string)) func() {
	return p.ls.add(fn)
}

// SetIdentity switches the signed-in user and notifies listeners when it changes.
func (p *MemoryProvider) SetIdentity(userID string) {
	p.mu.Lock()
	changed := p.userID != userID
	p.userID = userID
	p.mu.Unlock()

	if changed {
		p.ls.notify(userID)
	}
}
