package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flemzord/coffee/pkg/message"
)

// DefaultBuffer is the per-subscription queue length of a Hub.
const DefaultBuffer = 64

// HubConfig configures a Hub.
type HubConfig struct {
	// Buffer is the per-subscription queue length. A subscriber whose queue
	// is full is dropped with ErrChannelDropped.
	Buffer int

	// EchoToSender also delivers each message to subscriptions of its sender.
	EchoToSender bool
}

// Hub is an in-process Channel fed by Publish.
type Hub struct {
	cfg    HubConfig
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[*subscription]string
}

// NewHub creates a Hub.
func NewHub(cfg HubConfig, logger *slog.Logger) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:    cfg,
		logger: logger.With("component", "realtime.hub"),
		subs:   make(map[*subscription]string),
	}
}

var _ Channel = (*Hub)(nil)

// Subscribe implements Channel.
func (h *Hub) Subscribe(ctx context.Context, receiverID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var s *subscription
	s = newSubscription(h.cfg.Buffer, func() { h.remove(s) })

	h.mu.Lock()
	h.subs[s] = receiverID
	h.mu.Unlock()

	s.watch(ctx)
	return s, nil
}

// Publish delivers m to every interested subscription without blocking.
func (h *Hub) Publish(m message.Message) {
	var dropped []*subscription

	h.mu.RLock()
	for s, receiver := range h.subs {
		if receiver != m.ReceiverID && (!h.cfg.EchoToSender || receiver != m.SenderID) {
			continue
		}
		select {
		case <-s.done:
		case s.events <- m:
		default:
			dropped = append(dropped, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range dropped {
		h.logger.Warn("dropping slow subscriber", "receiver_id", h.receiver(s))
		s.end(ErrChannelDropped)
	}
}

// DropAll ends every subscription with ErrChannelDropped.
func (h *Hub) DropAll() {
	h.mu.RLock()
	all := make([]*subscription, 0, len(h.subs))
	for s := range h.subs {
		all = append(all, s)
	}
	h.mu.RUnlock()

	for _, s := range all {
		s.end(ErrChannelDropped)
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) receiver(s *subscription) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs[s]
}

func (h *Hub) remove(s *subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}
