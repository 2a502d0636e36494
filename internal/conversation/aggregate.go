// Package conversation reduces a user's message history into one summary
// per counterpart and keeps that list current as live messages arrive.
package conversation

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// Summarize builds one conversation per counterpart from msgs, which must
// be ordered newest first. The first message seen for a counterpart is its
// summary. Names default to the counterpart id. The result is sorted.
func Summarize(self string, msgs []message.Message) []message.Conversation {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]message.Conversation, 0)

	for _, m := range msgs {
		if !m.Touches(self) {
			continue
		}
		cp := m.Counterpart(self)
		if _, ok := seen[cp]; ok {
			continue
		}
		seen[cp] = struct{}{}
		out = append(out, message.Conversation{
			CounterpartID: cp,
			Name:          cp,
			LastMessage:   m.Content,
			LastTimestamp: m.CreatedAt,
		})
	}

	Sort(out)
	return out
}

// Sort orders conversations by last timestamp descending, ties by
// counterpart id ascending.
func Sort(cs []message.Conversation) {
	slices.SortFunc(cs, compare)
}

func compare(a, b message.Conversation) int {
	if c := b.LastTimestamp.Compare(a.LastTimestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.CounterpartID, b.CounterpartID)
}

// Aggregator turns raw history into named conversation summaries.
type Aggregator struct {
	profiles store.ProfileReader
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator that resolves names through profiles.
func NewAggregator(profiles store.ProfileReader, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{profiles: profiles, logger: logger.With("component", "conversation")}
}

// Aggregate summarizes msgs (newest first) and resolves counterpart names
// with a single batch profile lookup. A failed lookup keeps the ids as
// names rather than failing the whole list.
func (a *Aggregator) Aggregate(ctx context.Context, self string, msgs []message.Message) []message.Conversation {
	convs := Summarize(self, msgs)
	if len(convs) == 0 || a.profiles == nil {
		return convs
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.CounterpartID
	}

	profiles, err := a.profiles.QueryProfiles(ctx, ids)
	if err != nil {
		a.logger.Warn("profile lookup failed, showing ids", "user_id", self, "error", err)
		return convs
	}

	names := make(map[string]string, len(profiles))
	for _, p := range profiles {
		names[p.UserID] = p.DisplayName()
	}
	for i := range convs {
		if n, ok := names[convs[i].CounterpartID]; ok {
			convs[i].Name = n
		}
	}
	return convs
}
