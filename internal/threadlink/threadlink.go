// Package threadlink persists agent thread lifecycle notifications
// (thread changed, thread loaded) against the signed-in user. Notify never
// blocks the caller; writes happen on a background worker.
package threadlink

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// DefaultInboxSize is the number of queued notifications before drops.
const DefaultInboxSize = 32

// DefaultWriteTimeout bounds one persistence call.
const DefaultWriteTimeout = 10 * time.Second

// Errors returned by Notify.
var (
	ErrInboxFull     = errors.New("threadlink: inbox full")
	ErrStopped       = errors.New("threadlink: stopped")
	ErrEmptyThreadID = errors.New("threadlink: thread id must not be empty")
)

// Kind is the lifecycle event type.
type Kind string

// Lifecycle events emitted by the agent runtime.
const (
	ThreadChanged Kind = "thread.change"
	ThreadLoaded  Kind = "thread.load.end"
)

// Event is one lifecycle notification.
type Event struct {
	Kind     Kind
	ThreadID string
	Title    string
}

// Resolver yields the trusted session identity.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Config configures a Linker.
type Config struct {
	Store        store.ThreadStore
	Resolver     Resolver
	InboxSize    int
	WriteTimeout time.Duration
	Logger       *slog.Logger
	// OnSaved, if set, is called after every successful write.
	OnSaved func(message.AgentThread)
}

type job struct {
	thread message.AgentThread
}

// Linker forwards lifecycle events to the thread store.
type Linker struct {
	cfg     Config
	inbox   chan job
	inboxMu sync.RWMutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stopped atomic.Bool
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Linker. Call Start before Notify.
func New(cfg Config) *Linker {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		cfg:    cfg,
		inbox:  make(chan job, cfg.InboxSize),
		logger: logger.With("component", "threadlink"),
		now:    time.Now,
	}
}

// Start launches the worker.
func (l *Linker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.inboxMu.Lock()
	l.cancel = cancel
	l.inboxMu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for j := range l.inbox {
			l.save(ctx, j)
		}
	}()
}

// Notify resolves the session identity and queues ev for persistence.
// It returns ErrInboxFull instead of waiting when the worker lags.
func (l *Linker) Notify(ctx context.Context, ev Event) error {
	id := strings.TrimSpace(ev.ThreadID)
	if id == "" {
		return ErrEmptyThreadID
	}

	userID, err := l.cfg.Resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	l.inboxMu.RLock()
	defer l.inboxMu.RUnlock()
	if l.stopped.Load() {
		return ErrStopped
	}

	j := job{thread: message.AgentThread{
		ThreadID:  id,
		UserID:    userID,
		Title:     strings.TrimSpace(ev.Title),
		UpdatedAt: l.now().UTC(),
	}}
	select {
	case l.inbox <- j:
		return nil
	default:
		l.logger.Warn("inbox full, thread event dropped", "thread_id", id, "kind", ev.Kind)
		return ErrInboxFull
	}
}

// Stop drains queued events and waits for the worker.
func (l *Linker) Stop() {
	l.inboxMu.Lock()
	if l.stopped.Swap(true) {
		l.inboxMu.Unlock()
		return
	}
	close(l.inbox)
	cancel := l.cancel
	l.inboxMu.Unlock()

	l.wg.Wait()
	if cancel != nil {
		cancel()
	}
}

func (l *Linker) save(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	if err := l.cfg.Store.SaveThread(ctx, j.thread); err != nil {
		l.logger.Warn("thread link failed", "thread_id", j.thread.ThreadID, "user_id", j.thread.UserID, "error", err)
		return
	}
	l.logger.Debug("thread linked", "thread_id", j.thread.ThreadID, "user_id", j.thread.UserID)
	if l.cfg.OnSaved != nil {
		l.cfg.OnSaved(j.thread)
	}
}
