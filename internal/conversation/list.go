package conversation

import (
	"slices"

	"github.com/flemzord/coffee/pkg/message"
)

// List is the incrementally maintained conversation list of one user.
// It is not safe for concurrent use; the owning live session serializes
// access.
type List struct {
	self  string
	items []message.Conversation
}

// NewList creates an empty list for self.
func NewList(self string) *List {
	return &List{self: self}
}

// Self returns the owner of the list.
func (l *List) Self() string { return l.self }

// Replace swaps the list contents with a freshly aggregated set. Unread
// counts accumulated for counterparts still present are carried over.
func (l *List) Replace(cs []message.Conversation) {
	unread := make(map[string]int, len(l.items))
	for _, c := range l.items {
		unread[c.CounterpartID] = c.UnreadCount
	}

	items := slices.Clone(cs)
	for i := range items {
		if n := unread[items[i].CounterpartID]; n > items[i].UnreadCount {
			items[i].UnreadCount = n
		}
	}
	Sort(items)
	l.items = items
}

// Apply folds m into the list: the counterpart's summary is updated or
// inserted and moved to its sorted position. A message older than the
// current summary does not replace it. When countUnread is true and the
// message was received, the unread count is incremented.
// Apply reports whether the list changed.
func (l *List) Apply(m message.Message, countUnread bool) bool {
	if !m.Touches(l.self) {
		return false
	}
	cp := m.Counterpart(l.self)

	idx := l.index(cp)
	if idx < 0 {
		c := message.Conversation{
			CounterpartID: cp,
			Name:          cp,
			LastMessage:   m.Content,
			LastTimestamp: m.CreatedAt,
		}
		if countUnread && m.ReceiverID == l.self {
			c.UnreadCount = 1
		}
		l.items = append(l.items, c)
		Sort(l.items)
		return true
	}

	c := &l.items[idx]
	changed := false
	if !m.CreatedAt.Before(c.LastTimestamp) {
		c.LastMessage = m.Content
		c.LastTimestamp = m.CreatedAt
		changed = true
	}
	if countUnread && m.ReceiverID == l.self {
		c.UnreadCount++
		changed = true
	}
	if changed {
		Sort(l.items)
	}
	return changed
}

// MarkRead resets the unread count for counterpart.
func (l *List) MarkRead(counterpart string) bool {
	idx := l.index(counterpart)
	if idx < 0 || l.items[idx].UnreadCount == 0 {
		return false
	}
	l.items[idx].UnreadCount = 0
	return true
}

// SetName updates the display name of counterpart.
func (l *List) SetName(counterpart, name string) bool {
	idx := l.index(counterpart)
	if idx < 0 || name == "" || l.items[idx].Name == name {
		return false
	}
	l.items[idx].Name = name
	return true
}

// Get returns the summary for counterpart.
func (l *List) Get(counterpart string) (message.Conversation, bool) {
	idx := l.index(counterpart)
	if idx < 0 {
		return message.Conversation{}, false
	}
	return l.items[idx], true
}

// Snapshot returns a copy of the list safe to hand to a renderer.
func (l *List) Snapshot() []message.Conversation {
	out := make([]message.Conversation, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of conversations.
func (l *List) Len() int { return len(l.items) }

func (l *List) index(counterpart string) int {
	return slices.IndexFunc(l.items, func(c message.Conversation) bool {
		return c.CounterpartID == counterpart
	})
}
