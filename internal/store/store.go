// Package store defines the persistence boundary for direct messages,
// profiles, matches and agent threads, plus an in-memory implementation.
package store

import (
	"context"

	"github.com/flemzord/coffee/pkg/message"
)

// ServiceName is the core service under which a server store module
// publishes its Backend.
const ServiceName = "store.backend"

// Order selects the created_at ordering of a message query.
type Order int

const (
	// Asc returns the oldest message first.
	Asc Order = iota
	// Desc returns the newest message first.
	Desc
)

// MessageQuery filters messages.
type MessageQuery struct {
	// Involving restricts results to messages sent or received by this user.
	Involving string
	// Peer further restricts results to the exchange between Involving and Peer.
	Peer  string
	Order Order
	// Limit caps the number of results. Zero means unlimited.
	Limit int
}

// Validate reports whether the query is well formed.
func (q MessageQuery) Validate() error {
	if q.Involving == "" {
		return ErrInvalidQuery
	}
	return nil
}

// Matches reports whether m satisfies the participant filter of q.
func (q MessageQuery) Matches(m message.Message) bool {
	if q.Peer != "" {
		return m.Between(q.Involving, q.Peer)
	}
	return m.Touches(q.Involving)
}

// MessageStore persists direct messages.
// Implementations must be safe for concurrent use.
type MessageStore interface {
	// CreateMessage persists a new message. The store assigns ID and CreatedAt.
	CreateMessage(ctx context.Context, senderID, receiverID, content string) (message.Message, error)

	// QueryMessages returns the messages matching q.
	QueryMessages(ctx context.Context, q MessageQuery) ([]message.Message, error)
}

// ProfileReader looks up public profiles.
type ProfileReader interface {
	// QueryProfiles returns the profiles of the given users. Unknown ids are
	// omitted from the result.
	QueryProfiles(ctx context.Context, userIDs []string) ([]message.Profile, error)
}

// Store is what the client core needs from persistence.
type Store interface {
	MessageStore
	ProfileReader
}

// ProfileWriter owns profile mutations issued by the onboarding agent.
type ProfileWriter interface {
	// SaveProfileSection merges attrs into the user's profile, creating it if needed.
	SaveProfileSection(ctx context.Context, userID string, attrs message.Attributes) (message.Profile, error)

	// GetProfile returns ErrNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID string) (message.Profile, error)

	// ListProfiles returns every stored profile.
	ListProfiles(ctx context.Context) ([]message.Profile, error)

	// SyncUser ensures a profile row exists and updates non-empty contact fields.
	SyncUser(ctx context.Context, userID, email, phone string) (message.Profile, error)
}

// MatchStore persists computed matches.
type MatchStore interface {
	// ReplaceMatches drops the user's previous matches and stores these.
	ReplaceMatches(ctx context.Context, userID string, matches []message.Match) error

	// GetMatches returns at most limit matches ordered by score descending.
	GetMatches(ctx context.Context, userID string, limit int) ([]message.Match, error)
}

// ThreadStore persists agent conversation threads.
type ThreadStore interface {
	// SaveThread inserts or updates the thread by ThreadID.
	SaveThread(ctx context.Context, t message.AgentThread) error

	// ListThreads returns the user's threads, most recently updated first.
	ListThreads(ctx context.Context, userID string) ([]message.AgentThread, error)
}

// Backend is the full persistence surface served by the gateway.
type Backend interface {
	Store
	ProfileWriter
	MatchStore
	ThreadStore
}
