package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/coffee/pkg/message"
)

// InMemoryStore is a thread-safe, in-memory implementation of Backend.
// Messages keep their insertion sequence so equal timestamps order stably.
type InMemoryStore struct {
	mu       sync.RWMutex
	messages []message.Message
	profiles map[string]message.Profile
	matches  map[string][]message.Match
	threads  map[string]message.AgentThread

	onCreate func(message.Message)

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewInMemoryStore creates a new empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]message.Profile),
		matches:  make(map[string][]message.Match),
		threads:  make(map[string]message.AgentThread),
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ Backend = (*InMemoryStore)(nil)

// SetClock replaces the time source. Intended for tests.
func (s *InMemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetOnCreate registers fn to be called with every newly created message,
// outside the store lock. It is how an in-process realtime hub is fed.
func (s *InMemoryStore) SetOnCreate(fn func(message.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCreate = fn
}

// CreateMessage stores a message and assigns its id and timestamp.
func (s *InMemoryStore) CreateMessage(_ context.Context, senderID, receiverID, content string) (message.Message, error) {
	if senderID == "" || receiverID == "" || strings.TrimSpace(content) == "" {
		return message.Message{}, ErrInvalidMessage
	}

	s.mu.Lock()
	m := message.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	s.messages = append(s.messages, m)
	hook := s.onCreate
	s.mu.Unlock()

	if hook != nil {
		hook(m)
	}
	return m, nil
}

// Insert stores a message as-is. Used to seed fixtures with fixed ids and timestamps.
func (s *InMemoryStore) Insert(m message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// QueryMessages returns matching messages in the requested order.
func (s *InMemoryStore) QueryMessages(_ context.Context, q MessageQuery) ([]message.Message, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]message.Message, 0)
	for _, m := range s.messages {
		if q.Matches(m) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	// Stable sort keeps insertion order for equal timestamps.
	slices.SortStableFunc(out, func(a, b message.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if q.Order == Desc {
		slices.Reverse(out)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// QueryProfiles returns the known profiles among userIDs.
func (s *InMemoryStore) QueryProfiles(_ context.Context, userIDs []string) ([]message.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]message.Profile, 0, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// SaveProfile stores p, replacing any previous profile for the same user.
func (s *InMemoryStore) SaveProfile(p message.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// SaveProfileSection merges attrs into the user's profile.
func (s *InMemoryStore) SaveProfileSection(_ context.Context, userID string, attrs message.Attributes) (message.Profile, error) {
	if userID == "" {
		return message.Profile{}, fmt.Errorf("%w: empty user id", ErrInvalidQuery)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = message.Profile{UserID: userID}
	}
	p.Merge(attrs)
	p.UpdatedAt = s.now().UTC()
	s.profiles[userID] = p
	return p, nil
}

// GetProfile returns the user's profile or ErrNotFound.
func (s *InMemoryStore) GetProfile(_ context.Context, userID string) (message.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return message.Profile{}, fmt.Errorf("%w: profile %s", ErrNotFound, userID)
	}
	return p, nil
}

// ListProfiles returns all profiles ordered by user id.
func (s *InMemoryStore) ListProfiles(_ context.Context) ([]message.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]message.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b message.Profile) int { return cmp.Compare(a.UserID, b.UserID) })
	return out, nil
}

// SyncUser ensures a profile exists and updates non-empty contact fields.
func (s *InMemoryStore) SyncUser(_ context.Context, userID, email, phone string) (message.Profile, error) {
	if userID == "" {
		return message.Profile{}, fmt.Errorf("%w: empty user id", ErrInvalidQuery)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		p = message.Profile{UserID: userID}
	}
	if email != "" {
		p.Email = email
	}
	if phone != "" {
		p.Phone = phone
	}
	p.UpdatedAt = s.now().UTC()
	s.profiles[userID] = p
	return p, nil
}

// ReplaceMatches stores matches for userID, dropping previous ones.
func (s *InMemoryStore) ReplaceMatches(_ context.Context, userID string, matches []message.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[userID] = slices.Clone(matches)
	return nil
}

// GetMatches returns at most limit matches ordered by score descending.
func (s *InMemoryStore) GetMatches(_ context.Context, userID string, limit int) ([]message.Match, error) {
	s.mu.RLock()
	out := slices.Clone(s.matches[userID])
	s.mu.RUnlock()

	if out == nil {
		out = make([]message.Match, 0)
	}
	SortMatches(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveThread upserts t by thread id.
func (s *InMemoryStore) SaveThread(_ context.Context, t message.AgentThread) error {
	if t.ThreadID == "" || t.UserID == "" {
		return fmt.Errorf("%w: thread and user ids are required", ErrInvalidQuery)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = s.now().UTC()
	}
	s.threads[t.ThreadID] = t
	return nil
}

// ListThreads returns the user's threads, most recently updated first.
func (s *InMemoryStore) ListThreads(_ context.Context, userID string) ([]message.AgentThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]message.AgentThread, 0)
	for _, t := range s.threads {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b message.AgentThread) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ThreadID, b.ThreadID)
	})
	return out, nil
}

// SortMatches orders matches by score descending, then by user id.
func SortMatches(ms []message.Match) {
	slices.SortStableFunc(ms, func(a, b message.Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.MatchUserID, b.MatchUserID)
	})
}
