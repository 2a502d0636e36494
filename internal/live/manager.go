package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flemzord/coffee/internal/identity"
	"github.com/flemzord/coffee/internal/realtime"
	"github.com/flemzord/coffee/internal/store"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Session Config
	// Channel feeds every session. Nil disables realtime merging.
	Channel realtime.Channel
	Backoff realtime.Backoff
}

// Manager keeps one Session per signed-in user. Sessions never share
// state, and every session not owned by the current identity is torn down
// when the identity changes.
type Manager struct {
	guard    *identity.Guard
	store    store.Store
	cfg      ManagerConfig
	logger   *slog.Logger
	unwatch  func()
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. It watches p for identity changes.
func NewManager(p identity.Provider, s store.Store, cfg ManagerConfig) *Manager {
	logger := cfg.Session.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		guard:    identity.NewGuard(p),
		store:    s,
		cfg:      cfg,
		logger:   logger.With("component", "live.manager"),
		sessions: make(map[string]*Session),
	}
	m.unwatch = p.OnIdentityChange(m.identityChanged)
	return m
}

// Current returns the session of the signed-in user, creating it and
// starting its realtime merger on first use.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	self, err := m.guard.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[self]; ok && !s.Closed() {
		return s, nil
	}

	s := NewSession(self, m.store, m.cfg.Session)
	m.sessions[self] = s
	if m.cfg.Channel != nil {
		mg := NewMerger(s, m.cfg.Channel, m.cfg.Backoff, m.cfg.Session.Metrics, m.logger)
		go func() { _ = mg.Run(s.Context()) }()
	}
	m.logger.Info("live session started", "user_id", self)
	return s, nil
}

// Len returns the number of sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close tears every session down and stops watching the provider.
func (m *Manager) Close() {
	if m.unwatch != nil {
		m.unwatch()
	}
	m.closeExcept("")
}

func (m *Manager) identityChanged(userID string) {
	m.logger.Info("identity changed, tearing down other sessions", "user_id", userID)
	m.closeExcept(userID)
}

func (m *Manager) closeExcept(keep string) {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if id == keep && keep != "" {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
}
