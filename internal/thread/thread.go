// Package thread holds the ordered messages of one open conversation,
// including locally authored messages that are not yet confirmed.
package thread

import (
	"slices"
	"time"

	"github.com/flemzord/coffee/pkg/message"
)

// State is the delivery state of a thread entry.
type State int

const (
	// Confirmed entries carry a store-assigned id.
	Confirmed State = iota
	// Pending entries were sent and await acknowledgement.
	Pending
	// Failed entries were rejected or timed out and can be retried or removed.
	Failed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one message in a thread. TempID is set for locally authored
// messages and survives confirmation.
type Entry struct {
	message.Message
	TempID string
	State  State

	seq uint64
}

// Thread is the ordered exchange between Self and Counterpart. Entries are
// kept by non-decreasing CreatedAt, ties broken by insertion sequence.
// Thread is not safe for concurrent use; the owning live session
// serializes access.
type Thread struct {
	Self        string
	Counterpart string

	entries []Entry
	seq     uint64
}

// New creates an empty thread.
func New(self, counterpart string) *Thread {
	return &Thread{Self: self, Counterpart: counterpart}
}

// Belongs reports whether m was exchanged between the thread participants.
func (t *Thread) Belongs(m message.Message) bool {
	return m.Between(t.Self, t.Counterpart)
}

// Load merges canonical history into the thread. Messages already present
// by id and messages outside the pair are skipped.
func (t *Thread) Load(msgs []message.Message) int {
	added := 0
	for _, m := range msgs {
		if t.Insert(m) {
			added++
		}
	}
	return added
}

// Insert adds a confirmed message. It reports false when the message is a
// duplicate or does not belong to the thread.
func (t *Thread) Insert(m message.Message) bool {
	if !t.Belongs(m) || t.Has(m.ID) {
		return false
	}
	t.add(Entry{Message: m, State: Confirmed})
	return true
}

// AppendPending adds a locally authored message under tempID.
func (t *Thread) AppendPending(tempID, content string, at time.Time) Entry {
	e := Entry{
		Message: message.Message{
			SenderID:   t.Self,
			ReceiverID: t.Counterpart,
			Content:    content,
			CreatedAt:  at,
		},
		TempID: tempID,
		State:  Pending,
	}
	return t.add(e)
}

// Confirm reconciles the entry tempID with its canonical record. If the
// canonical id is already in the thread the temporary entry is removed.
// Confirming twice is a no-op. Confirm reports whether the thread changed.
func (t *Thread) Confirm(tempID string, canonical message.Message) bool {
	idx := t.indexTemp(tempID)
	if idx < 0 {
		return false
	}
	e := &t.entries[idx]
	if e.State == Confirmed && e.ID == canonical.ID {
		return false
	}
	if other := t.indexID(canonical.ID); canonical.ID != "" && other >= 0 && other != idx {
		t.entries = slices.Delete(t.entries, idx, idx+1)
		return true
	}

	e.Message = canonical
	e.State = Confirmed
	t.sort()
	return true
}

// Fail marks a pending entry as failed.
func (t *Thread) Fail(tempID string) bool {
	idx := t.indexTemp(tempID)
	if idx < 0 || t.entries[idx].State != Pending {
		return false
	}
	t.entries[idx].State = Failed
	return true
}

// Retry moves a failed entry back to pending and returns it.
func (t *Thread) Retry(tempID string, at time.Time) (Entry, bool) {
	idx := t.indexTemp(tempID)
	if idx < 0 || t.entries[idx].State != Failed {
		return Entry{}, false
	}
	t.entries[idx].State = Pending
	t.entries[idx].CreatedAt = at
	t.seq++
	t.entries[idx].seq = t.seq
	t.sort()
	return t.entries[t.indexTemp(tempID)], true
}

// Remove drops the entry tempID regardless of its state.
func (t *Thread) Remove(tempID string) bool {
	idx := t.indexTemp(tempID)
	if idx < 0 {
		return false
	}
	t.entries = slices.Delete(t.entries, idx, idx+1)
	return true
}

// MatchPending finds the unconfirmed entry that m echoes: same sender,
// receiver and content, created within window of the entry. Failed entries
// match too, since a timed-out send may still have been persisted. The
// oldest candidate wins.
func (t *Thread) MatchPending(m message.Message, window time.Duration) (string, bool) {
	for _, e := range t.entries {
		if e.State == Confirmed {
			continue
		}
		if e.SenderID != m.SenderID || e.ReceiverID != m.ReceiverID || e.Content != m.Content {
			continue
		}
		if d := m.CreatedAt.Sub(e.CreatedAt); d < -window || d > window {
			continue
		}
		return e.TempID, true
	}
	return "", false
}

// Get returns the entry tempID.
func (t *Thread) Get(tempID string) (Entry, bool) {
	idx := t.indexTemp(tempID)
	if idx < 0 {
		return Entry{}, false
	}
	return t.entries[idx], true
}

// Has reports whether a confirmed message with id is present.
func (t *Thread) Has(id string) bool {
	return id != "" && t.indexID(id) >= 0
}

// Entries returns a copy of the thread entries in display order.
func (t *Thread) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Messages returns the messages of all entries in display order.
func (t *Thread) Messages() []message.Message {
	out := make([]message.Message, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Message
	}
	return out
}

// Len returns the number of entries.
func (t *Thread) Len() int { return len(t.entries) }

func (t *Thread) add(e Entry) Entry {
	t.seq++
	e.seq = t.seq
	t.entries = append(t.entries, e)
	t.sort()
	return e
}

func (t *Thread) sort() {
	slices.SortStableFunc(t.entries, func(a, b Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
}

func (t *Thread) indexTemp(tempID string) int {
	if tempID == "" {
		return -1
	}
	return slices.IndexFunc(t.entries, func(e Entry) bool { return e.TempID == tempID })
}

func (t *Thread) indexID(id string) int {
	return slices.IndexFunc(t.entries, func(e Entry) bool { return e.ID == id })
}
