// Package live owns the per-user realtime state: the conversation list,
// the open thread with its optimistic sends, and the merge of pushed
// messages. Every mutation happens under one session mutex and renderers
// only ever see snapshots.
package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/coffee/internal/conversation"
	"github.com/flemzord/coffee/internal/ingest"
	"github.com/flemzord/coffee/internal/metrics"
	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/internal/thread"
	"github.com/flemzord/coffee/pkg/message"
)

// Default tuning values.
const (
	DefaultSendTimeout = 10 * time.Second
	DefaultDedupWindow = 5 * time.Second
	DefaultSeenLimit   = 1024
)

// EventKind identifies a state change a renderer should react to.
type EventKind int

const (
	// ThreadChanged fires when the open thread's entries change.
	ThreadChanged EventKind = iota
	// ConversationsChanged fires when the conversation list changes.
	ConversationsChanged
	// ScrollToLatest asks the renderer to scroll the thread to its end.
	ScrollToLatest
	// StaleChanged fires when the stale-data indicator flips.
	StaleChanged
)

// Event is delivered to the OnEvent callback outside the session lock.
type Event struct {
	Kind        EventKind
	Counterpart string
	Stale       bool
}

// Limiter throttles sends. security.RateLimiter satisfies it.
type Limiter interface {
	Allow(kind string) error
}

// Config configures a Session.
type Config struct {
	// SendTimeout bounds how long a send stays pending.
	SendTimeout time.Duration
	// DedupWindow is the timestamp tolerance when matching an echo to a pending send.
	DedupWindow time.Duration
	// SeenLimit bounds the set of message ids remembered for deduplication.
	SeenLimit int

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Limiter Limiter
	// OnEvent receives state change notifications. It must not block.
	OnEvent func(Event)
}

func (c *Config) defaults() {
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = DefaultDedupWindow
	}
	if c.SeenLimit <= 0 {
		c.SeenLimit = DefaultSeenLimit
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ThreadView is a snapshot of the open thread.
type ThreadView struct {
	Counterpart string
	Entries     []thread.Entry
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Self          string
	Conversations []message.Conversation
	Thread        *ThreadView
	Stale         bool
}

// Session is the live state of one signed-in user.
type Session struct {
	self   string
	cfg    Config
	logger *slog.Logger

	store    store.MessageStore
	ingestor *ingest.Ingestor
	agg      *conversation.Aggregator

	// now and newID are injectable for testing.
	now   func() time.Time
	newID func() string

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	list        *conversation.List
	thread      *thread.Thread
	scope       context.Context
	scopeCancel context.CancelFunc
	gen         uint64
	timers      map[string]*time.Timer
	attempts    map[string]uint64
	seen        *seenSet
	stale       bool

	inflight sync.WaitGroup
}

// NewSession creates the live state for self on top of s.
func NewSession(self string, s store.Store, cfg Config) *Session {
	cfg.defaults()
	logger := cfg.Logger.With("component", "live", "user_id", self)
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		self:     self,
		cfg:      cfg,
		logger:   logger,
		store:    s,
		ingestor: ingest.New(s, logger),
		agg:      conversation.NewAggregator(s, logger),
		now:      time.Now,
		newID:    uuid.NewString,
		ctx:      ctx,
		cancel:   cancel,
		list:     conversation.NewList(self),
		timers:   make(map[string]*time.Timer),
		attempts: make(map[string]uint64),
		seen:     newSeenSet(cfg.SeenLimit),
	}
}

// Self returns the session owner.
func (s *Session) Self() string { return s.self }

// Context is canceled when the session closes.
func (s *Session) Context() context.Context { return s.ctx }

// LoadConversations rebuilds the conversation list from history. Unread
// counts accumulated from live pushes survive the reload.
func (s *Session) LoadConversations(ctx context.Context) error {
	raw, err := s.ingestor.LoadConversationsRaw(ctx, s.self)
	if err != nil {
		return err
	}
	convs := s.agg.Aggregate(ctx, s.self, raw)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.list.Replace(convs)
	if s.thread != nil {
		s.list.MarkRead(s.thread.Counterpart)
	}
	s.mu.Unlock()

	s.emit(Event{Kind: ConversationsChanged})
	return nil
}

// OpenThread makes counterpart the active thread and loads its history.
// The previous thread, its pending callbacks and any in-flight load are
// abandoned. A load that completes after another thread was opened is
// discarded.
func (s *Session) OpenThread(ctx context.Context, counterpart string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.resetScopeLocked()
	s.thread = thread.New(s.self, counterpart)
	gen := s.gen
	scope := s.scope
	read := s.list.MarkRead(counterpart)
	s.mu.Unlock()

	s.emit(Event{Kind: ThreadChanged, Counterpart: counterpart})
	if read {
		s.emit(Event{Kind: ConversationsChanged})
	}

	loadCtx, cancel := mergeCancel(ctx, scope)
	defer cancel()

	msgs, err := s.ingestor.LoadThread(loadCtx, s.self, counterpart)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded thread load", "counterpart", counterpart)
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.thread.Load(msgs)
	for _, m := range msgs {
		s.seen.add(m.ID)
	}
	s.mu.Unlock()

	s.emit(
		Event{Kind: ThreadChanged, Counterpart: counterpart},
		Event{Kind: ScrollToLatest, Counterpart: counterpart},
	)
	return nil
}

// Resync reloads the conversation list and the open thread's history. It
// recovers messages pushed while the realtime channel was down, so both
// views catch up together.
func (s *Session) Resync(ctx context.Context) error {
	if err := s.LoadConversations(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed || s.thread == nil {
		s.mu.Unlock()
		return nil
	}
	cp, gen, scope := s.thread.Counterpart, s.gen, s.scope
	s.mu.Unlock()

	loadCtx, cancel := mergeCancel(ctx, scope)
	defer cancel()

	msgs, err := s.ingestor.LoadThread(loadCtx, s.self, cp)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	added := s.thread.Load(msgs)
	for _, m := range msgs {
		s.seen.add(m.ID)
	}
	s.mu.Unlock()

	if added > 0 {
		s.emit(
			Event{Kind: ThreadChanged, Counterpart: cp},
			Event{Kind: ScrollToLatest, Counterpart: cp},
		)
	}
	return nil
}

// CloseThread abandons the open thread, if any.
func (s *Session) CloseThread() {
	s.mu.Lock()
	if s.thread == nil {
		s.mu.Unlock()
		return
	}
	cp := s.thread.Counterpart
	s.resetScopeLocked()
	s.thread = nil
	s.mu.Unlock()

	s.emit(Event{Kind: ThreadChanged, Counterpart: cp})
}

// Close tears the session down. Pending callbacks and subscriptions bound
// to the session are canceled.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.resetScopeLocked()
	s.thread = nil
	s.mu.Unlock()

	s.cancel()
	s.logger.Debug("session closed")
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Self:          s.self,
		Conversations: s.list.Snapshot(),
		Stale:         s.stale,
	}
	if s.thread != nil {
		snap.Thread = &ThreadView{
			Counterpart: s.thread.Counterpart,
			Entries:     s.thread.Entries(),
		}
	}
	return snap
}

// SetStale flips the stale-data indicator.
func (s *Session) SetStale(stale bool) {
	s.mu.Lock()
	changed := s.stale != stale
	s.stale = stale
	s.mu.Unlock()

	if changed {
		s.emit(Event{Kind: StaleChanged, Stale: stale})
	}
}

// resetScopeLocked cancels the current thread scope and its timers and
// starts a new generation. Callers hold s.mu.
func (s *Session) resetScopeLocked() {
	if s.scopeCancel != nil {
		s.scopeCancel()
	}
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	clear(s.attempts)
	s.gen++
	s.scope, s.scopeCancel = context.WithCancel(s.ctx)
}

func (s *Session) emit(evs ...Event) {
	if s.cfg.OnEvent == nil {
		return
	}
	for _, ev := range evs {
		s.cfg.OnEvent(ev)
	}
}

// mergeCancel returns a context canceled when either parent is done.
func mergeCancel(ctx, scope context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(scope, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// seenSet is a bounded FIFO set of message ids.
type seenSet struct {
	limit int
	ids   map[string]struct{}
	order []string
}

func newSeenSet(limit int) *seenSet {
	return &seenSet{limit: limit, ids: make(map[string]struct{}, limit)}
}

func (s *seenSet) has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *seenSet) add(id string) {
	if id == "" || s.has(id) {
		return
	}
	if len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}
