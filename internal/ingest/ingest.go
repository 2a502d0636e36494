// Package ingest loads historical messages from the store and normalizes
// them into canonical records for threads and conversation lists.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// ErrMissingParticipant indicates an empty self or counterpart id.
var ErrMissingParticipant = errors.New("ingest: missing participant")

// Ingestor fetches message history. It never retries; failures surface
// as store.ErrStoreUnavailable so the caller can offer a retry.
type Ingestor struct {
	store  store.MessageStore
	logger *slog.Logger
}

// New creates an Ingestor reading from s.
func New(s store.MessageStore, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: s, logger: logger.With("component", "ingest")}
}

// LoadThread returns the exchange between self and counterpart, oldest
// first. An empty, non-nil slice means there are no messages yet.
func (i *Ingestor) LoadThread(ctx context.Context, self, counterpart string) ([]message.Message, error) {
	if self == "" || counterpart == "" {
		return nil, ErrMissingParticipant
	}

	raw, err := i.store.QueryMessages(ctx, store.MessageQuery{
		Involving: self,
		Peer:      counterpart,
		Order:     store.Asc,
	})
	if err != nil {
		return nil, unavailable("loading thread", err)
	}

	out := make([]message.Message, 0, len(raw))
	for _, m := range raw {
		n, ok := message.Normalize(m)
		if !ok || !n.Between(self, counterpart) {
			i.logger.Debug("dropping message outside thread", "message_id", m.ID)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// LoadConversationsRaw returns every message touching self, newest first.
func (i *Ingestor) LoadConversationsRaw(ctx context.Context, self string) ([]message.Message, error) {
	if self == "" {
		return nil, ErrMissingParticipant
	}

	raw, err := i.store.QueryMessages(ctx, store.MessageQuery{
		Involving: self,
		Order:     store.Desc,
	})
	if err != nil {
		return nil, unavailable("loading conversations", err)
	}

	out := make([]message.Message, 0, len(raw))
	for _, m := range raw {
		n, ok := message.Normalize(m)
		if !ok || !n.Touches(self) {
			i.logger.Debug("dropping message not involving user", "message_id", m.ID)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, store.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, store.ErrStoreUnavailable, err)
}
