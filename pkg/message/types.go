// Package message defines the canonical records shared by the client core,
// the backend gateway and the stores: direct messages between two users,
// user profiles and computed matches.
package message

import (
	"strings"
	"time"
)

// Message is a direct message from one user to another.
// It is immutable once persisted; ID is assigned by the store.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Counterpart returns the other participant of m as seen by self.
func (m Message) Counterpart(self string) string {
	if m.SenderID == self {
		return m.ReceiverID
	}
	return m.SenderID
}

// Touches reports whether user sent or received m.
func (m Message) Touches(user string) bool {
	return m.SenderID == user || m.ReceiverID == user
}

// Between reports whether m was exchanged between a and b, in either direction.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Normalize trims identifiers and converts the timestamp to UTC.
// It reports false when the record lacks an id or a participant and
// must not be shown.
func Normalize(m Message) (Message, bool) {
	m.ID = strings.TrimSpace(m.ID)
	m.SenderID = strings.TrimSpace(m.SenderID)
	m.ReceiverID = strings.TrimSpace(m.ReceiverID)
	if m.ID == "" || m.SenderID == "" || m.ReceiverID == "" {
		return m, false
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, true
}

// AgentThread links a hosted agent conversation thread to a user.
type AgentThread struct {
	ThreadID  string    `json:"thread_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Conversation summarizes the latest exchange with one counterpart.
type Conversation struct {
	CounterpartID string    `json:"counterpart_id"`
	Name          string    `json:"name"`
	LastMessage   string    `json:"last_message"`
	LastTimestamp time.Time `json:"last_timestamp"`
	UnreadCount   int       `json:"unread_count"`
}
