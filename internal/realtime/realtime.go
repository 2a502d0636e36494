// Package realtime delivers newly created messages to subscribed users.
// Delivery is at-least-once: consumers must tolerate duplicates.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/flemzord/coffee/pkg/message"
)

// ErrChannelDropped indicates the push channel ended without being closed
// by its consumer. The consumer should resubscribe.
var ErrChannelDropped = errors.New("realtime: channel dropped")

// Subscription is an explicit handle on a push stream.
type Subscription interface {
	// Events yields pushed messages. It is never closed; select on Done.
	Events() <-chan message.Message

	// Done is closed when the subscription ends.
	Done() <-chan struct{}

	// Err reports why the subscription ended: nil after Close or context
	// cancellation, an ErrChannelDropped wrap otherwise.
	Err() error

	// Close ends the subscription. Safe to call more than once.
	Close()
}

// Channel opens subscriptions scoped to one receiver.
type Channel interface {
	// Subscribe streams messages whose receiver is receiverID. The
	// subscription ends when ctx is canceled.
	Subscribe(ctx context.Context, receiverID string) (Subscription, error)
}

// subscription is the Subscription shared by the hub and the websocket client.
type subscription struct {
	events chan message.Message
	done   chan struct{}

	once    sync.Once
	mu      sync.Mutex
	err     error
	onClose func()
}

func newSubscription(buffer int, onClose func()) *subscription {
	return &subscription{
		events:  make(chan message.Message, buffer),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

func (s *subscription) Events() <-chan message.Message { return s.events }
func (s *subscription) Done() <-chan struct{}          { return s.done }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() { s.end(nil) }

// end records err and closes the subscription once.
func (s *subscription) end(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if s.onClose != nil {
			s.onClose()
		}
		close(s.done)
	})
}

// watch ends the subscription when ctx is canceled.
func (s *subscription) watch(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.end(nil)
		case <-s.done:
		}
	}()
}

var _ Subscription = (*subscription)(nil)
