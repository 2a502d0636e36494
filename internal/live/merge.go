package live

import (
	"context"
	"log/slog"
	"time"

	"github.com/flemzord/coffee/internal/metrics"
	"github.com/flemzord/coffee/internal/realtime"
	"github.com/flemzord/coffee/pkg/message"
)

// MergeResult describes what Merge did with a pushed message.
type MergeResult int

const (
	// Discarded messages were outside the session scope or incomplete.
	Discarded MergeResult = iota
	// Duplicate messages were already merged.
	Duplicate
	// EchoConfirmed messages confirmed a pending local send.
	EchoConfirmed
	// Appended messages were added to the open thread and the list.
	Appended
	// ConversationOnly messages only updated the conversation list.
	ConversationOnly
)

// String implements fmt.Stringer.
func (r MergeResult) String() string {
	switch r {
	case Discarded:
		return "discarded"
	case Duplicate:
		return "duplicate"
	case EchoConfirmed:
		return "echo_confirmed"
	case Appended:
		return "appended"
	case ConversationOnly:
		return "conversation_only"
	default:
		return "unknown"
	}
}

// Merge folds one pushed message into the session as a single atomic step.
// Pushes are at-least-once, so Merge is idempotent per message id.
func (s *Session) Merge(m message.Message) MergeResult {
	result, evs := s.merge(m)
	s.cfg.Metrics.IncMerged(result.String())
	s.emit(evs...)
	return result
}

func (s *Session) merge(raw message.Message) (MergeResult, []Event) {
	m, ok := message.Normalize(raw)
	if !ok {
		return Discarded, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Discarded, nil
	}
	if s.seen.has(m.ID) {
		return Duplicate, nil
	}

	// An echo of our own send may beat the store acknowledgement, or
	// arrive after the entry already timed out.
	if m.SenderID == s.self && s.thread != nil && s.thread.Belongs(m) {
		if tempID, ok := s.thread.MatchPending(m, s.cfg.DedupWindow); ok {
			s.stopTimerLocked(tempID)
			s.thread.Confirm(tempID, m)
			s.seen.add(m.ID)
			s.list.Apply(m, false)
			return EchoConfirmed, []Event{
				{Kind: ThreadChanged, Counterpart: m.ReceiverID},
				{Kind: ConversationsChanged},
			}
		}
	}

	if m.ReceiverID != s.self {
		return Discarded, nil
	}
	s.seen.add(m.ID)

	open := s.thread != nil && s.thread.Counterpart == m.SenderID
	var evs []Event
	result := ConversationOnly
	if open {
		if !s.thread.Insert(m) {
			return Duplicate, nil
		}
		result = Appended
		evs = append(evs,
			Event{Kind: ThreadChanged, Counterpart: m.SenderID},
			Event{Kind: ScrollToLatest, Counterpart: m.SenderID},
		)
	}
	if s.list.Apply(m, !open) {
		evs = append(evs, Event{Kind: ConversationsChanged})
	}
	return result, evs
}

// Merger keeps a session subscribed to a push channel, resubscribing with
// exponential backoff when the channel drops.
type Merger struct {
	session *Session
	channel realtime.Channel
	backoff realtime.Backoff
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewMerger creates a Merger feeding s from ch.
func NewMerger(s *Session, ch realtime.Channel, backoff realtime.Backoff, m *metrics.Metrics, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		session: s,
		channel: ch,
		backoff: backoff,
		metrics: m,
		logger:  logger.With("component", "live.merger", "user_id", s.Self()),
	}
}

// Run subscribes and merges until ctx is canceled. It always returns nil
// once ctx is done.
func (mg *Merger) Run(ctx context.Context) error {
	for {
		sub, err := mg.channel.Subscribe(ctx, mg.session.Self())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			mg.logger.Warn("subscribe failed", "error", err, "failures", mg.backoff.Failures()+1)
			if !mg.wait(ctx) {
				return nil
			}
			continue
		}

		recovered := mg.backoff.Failures() > 0
		mg.backoff.Reset()
		mg.session.SetStale(false)
		if recovered {
			// Messages pushed while unsubscribed only reach us through history.
			if err := mg.session.Resync(ctx); err != nil {
				mg.logger.Warn("catch-up reload failed", "error", err)
			}
		}

		err = mg.consume(ctx, sub)
		sub.Close()
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			// Closed without error by the channel itself: treat as a drop.
			err = realtime.ErrChannelDropped
		}
		mg.logger.Warn("push channel dropped, resubscribing", "error", err)
		if !mg.wait(ctx) {
			return nil
		}
	}
}

func (mg *Merger) consume(ctx context.Context, sub realtime.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			mg.drain(sub)
			return sub.Err()
		case m := <-sub.Events():
			mg.session.Merge(m)
		}
	}
}

// drain merges events still buffered in an ended subscription.
func (mg *Merger) drain(sub realtime.Subscription) {
	for {
		select {
		case m := <-sub.Events():
			mg.session.Merge(m)
		default:
			return
		}
	}
}

// wait sleeps for the next backoff delay. It reports false when ctx ends first.
func (mg *Merger) wait(ctx context.Context) bool {
	d := mg.backoff.Next()
	mg.metrics.IncResubscribe()
	if mg.backoff.Stale() {
		mg.session.SetStale(true)
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
