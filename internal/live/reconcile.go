package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flemzord/coffee/internal/metrics"
	"github.com/flemzord/coffee/internal/thread"
	"github.com/flemzord/coffee/pkg/message"
)

// Send appends content to the open thread as a pending entry and issues
// the create request in the background. It returns the temporary id of
// the entry. Empty drafts are rejected without a store call.
func (s *Session) Send(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyDraft
	}
	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Allow("message"); err != nil {
			return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	if s.thread == nil {
		s.mu.Unlock()
		return "", ErrNoThread
	}

	tempID := s.newID()
	entry := s.thread.AppendPending(tempID, content, s.now().UTC())
	s.list.Apply(entry.Message, false)
	cp := s.thread.Counterpart
	gen := s.gen
	attempt := s.armTimerLocked(tempID, gen)
	s.inflight.Add(1)
	s.mu.Unlock()

	s.emit(
		Event{Kind: ThreadChanged, Counterpart: cp},
		Event{Kind: ScrollToLatest, Counterpart: cp},
		Event{Kind: ConversationsChanged},
	)

	go s.deliver(gen, attempt, tempID, cp, content)
	return tempID, nil
}

// Retry resends a failed entry once.
func (s *Session) Retry(tempID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.thread == nil {
		s.mu.Unlock()
		return ErrNoThread
	}
	entry, ok := s.thread.Retry(tempID, s.now().UTC())
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFailed, tempID)
	}
	cp := s.thread.Counterpart
	gen := s.gen
	attempt := s.armTimerLocked(tempID, gen)
	s.inflight.Add(1)
	s.mu.Unlock()

	s.emit(Event{Kind: ThreadChanged, Counterpart: cp})

	go s.deliver(gen, attempt, tempID, cp, entry.Content)
	return nil
}

// Discard removes a failed entry from the thread.
func (s *Session) Discard(tempID string) error {
	s.mu.Lock()
	if s.thread == nil {
		s.mu.Unlock()
		return ErrNoThread
	}
	entry, ok := s.thread.Get(tempID)
	if !ok || entry.State != thread.Failed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFailed, tempID)
	}
	s.thread.Remove(tempID)
	cp := s.thread.Counterpart
	s.mu.Unlock()

	s.emit(Event{Kind: ThreadChanged, Counterpart: cp})
	return nil
}

// Flush waits until every create request issued by Send or Retry has
// completed, or ctx is done.
func (s *Session) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver performs the create request for a pending entry. The request is
// bound to the session, not the thread: leaving the thread only detaches
// the thread reconciliation. A failure reported by a superseded attempt
// is ignored.
func (s *Session) deliver(gen, attempt uint64, tempID, counterpart, content string) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SendTimeout)
	defer cancel()

	m, err := s.store.CreateMessage(ctx, s.self, counterpart, content)
	if err == nil {
		var ok bool
		if m, ok = message.Normalize(m); !ok {
			err = errIncompleteMessage
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if err != nil {
			s.cfg.Metrics.IncSend(metrics.SendFailed)
			s.logger.Warn("send failed after session closed", "temp_id", tempID, "counterpart", counterpart, "error", err)
		}
		return
	}
	attached := gen == s.gen && s.thread != nil

	if err != nil {
		if !attached {
			s.mu.Unlock()
			s.abandonedFailure(tempID, counterpart, err)
			return
		}
		current := s.attempts[tempID] == attempt
		if current {
			s.stopTimerLocked(tempID)
		}
		failed := current && s.thread.Fail(tempID)
		s.mu.Unlock()

		s.logger.Warn("send failed", "temp_id", tempID, "counterpart", counterpart, "error", err)
		if failed {
			s.cfg.Metrics.IncSend(sendOutcome(err))
			s.emit(Event{Kind: ThreadChanged, Counterpart: counterpart})
		}
		return
	}

	changed := false
	switch {
	case attached:
		if s.attempts[tempID] == attempt {
			s.stopTimerLocked(tempID)
		}
		changed = s.thread.Confirm(tempID, m)
	case s.thread != nil:
		// The thread was reopened before the acknowledgement arrived.
		changed = s.thread.Insert(m)
	}
	s.seen.add(m.ID)
	listChanged := s.list.Apply(m, false)
	s.mu.Unlock()

	s.cfg.Metrics.IncSend(metrics.SendConfirmed)
	if changed {
		s.emit(Event{Kind: ThreadChanged, Counterpart: counterpart})
	}
	if listChanged {
		s.emit(Event{Kind: ConversationsChanged})
	}
}

// abandonedFailure handles a send that failed after its thread was left.
// The optimistic conversation preview is rolled back from history.
func (s *Session) abandonedFailure(tempID, counterpart string, err error) {
	s.cfg.Metrics.IncSend(sendOutcome(err))
	s.logger.Warn("send failed after thread was closed", "temp_id", tempID, "counterpart", counterpart, "error", err)
	if rerr := s.LoadConversations(s.ctx); rerr != nil && !errors.Is(rerr, ErrSessionClosed) {
		s.logger.Warn("conversation rollback failed", "error", rerr)
	}
}

func sendOutcome(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.SendTimedOut
	}
	return metrics.SendFailed
}

// armTimerLocked starts a new send attempt for tempID and fails it if it
// is still pending after SendTimeout. Callers hold s.mu.
func (s *Session) armTimerLocked(tempID string, gen uint64) uint64 {
	s.stopTimerLocked(tempID)
	s.attempts[tempID]++
	attempt := s.attempts[tempID]
	s.timers[tempID] = time.AfterFunc(s.cfg.SendTimeout, func() { s.expire(gen, attempt, tempID) })
	return attempt
}

func (s *Session) stopTimerLocked(tempID string) {
	if t, ok := s.timers[tempID]; ok {
		t.Stop()
		delete(s.timers, tempID)
	}
}

func (s *Session) expire(gen, attempt uint64, tempID string) {
	s.mu.Lock()
	if gen != s.gen || s.thread == nil || s.attempts[tempID] != attempt {
		s.mu.Unlock()
		return
	}
	delete(s.timers, tempID)
	failed := s.thread.Fail(tempID)
	cp := s.thread.Counterpart
	s.mu.Unlock()

	if failed {
		s.cfg.Metrics.IncSend(metrics.SendTimedOut)
		s.logger.Warn("send timed out", "temp_id", tempID, "counterpart", cp)
		s.emit(Event{Kind: ThreadChanged, Counterpart: cp})
	}
}
