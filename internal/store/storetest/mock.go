// Package storetest provides test helpers and mocks for the store package.
package storetest

import (
	"context"
	"sync"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

// MockStore is a configurable mock implementation of store.Store.
type MockStore struct {
	CreateMessageFunc func(ctx context.Context, senderID, receiverID, content string) (message.Message, error)
	QueryMessagesFunc func(ctx context.Context, q store.MessageQuery) ([]message.Message, error)
	QueryProfilesFunc func(ctx context.Context, userIDs []string) ([]message.Profile, error)

	mu                 sync.Mutex
	CreateMessageCalls int
	QueryMessagesCalls int
	QueryProfilesCalls int
}

// CreateMessage implements store.MessageStore.
func (m *MockStore) CreateMessage(ctx context.Context, senderID, receiverID, content string) (message.Message, error) {
	m.mu.Lock()
	m.CreateMessageCalls++
	m.mu.Unlock()

	if m.CreateMessageFunc != nil {
		return m.CreateMessageFunc(ctx, senderID, receiverID, content)
	}
	return message.Message{ID: "mock-id", SenderID: senderID, ReceiverID: receiverID, Content: content}, nil
}

// QueryMessages implements store.MessageStore.
func (m *MockStore) QueryMessages(ctx context.Context, q store.MessageQuery) ([]message.Message, error) {
	m.mu.Lock()
	m.QueryMessagesCalls++
	m.mu.Unlock()

	if m.QueryMessagesFunc != nil {
		return m.QueryMessagesFunc(ctx, q)
	}
	return nil, nil
}

// QueryProfiles implements store.ProfileReader.
func (m *MockStore) QueryProfiles(ctx context.Context, userIDs []string) ([]message.Profile, error) {
	m.mu.Lock()
	m.QueryProfilesCalls++
	m.mu.Unlock()

	if m.QueryProfilesFunc != nil {
		return m.QueryProfilesFunc(ctx, userIDs)
	}
	return nil, nil
}

// Calls returns the number of calls per method, read under the lock.
func (m *MockStore) Calls() (create, query, profiles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CreateMessageCalls, m.QueryMessagesCalls, m.QueryProfilesCalls
}

// Named returns a profile with the given id and display name.
func Named(userID, name string) message.Profile {
	return message.Profile{UserID: userID, Attributes: message.Attributes{Name: &name}}
}

// Interface guard.
var _ store.Store = (*MockStore)(nil)
