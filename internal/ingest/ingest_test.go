package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/internal/store/storetest"
	"github.com/flemzord/coffee/pkg/message"
)

var t0 = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

func at(id, from, to string, sec int) message.Message {
	return message.Message{ID: id, SenderID: from, ReceiverID: to, Content: id, CreatedAt: t0.Add(time.Duration(sec) * time.Second)}
}

func TestLoadThread_OrdersAscending(t *testing.T) {
	t.Parallel()

	s := store.NewInMemoryStore()
	s.Insert(at("c", "u1", "u2", 3))
	s.Insert(at("a", "u2", "u1", 1))
	s.Insert(at("b", "u1", "u2", 2))

	got, err := New(s, nil).LoadThread(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("LoadThread: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestLoadThread_EmptyIsNotAnError(t *testing.T) {
	t.Parallel()

	got, err := New(store.NewInMemoryStore(), nil).LoadThread(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("LoadThread: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestLoadThread_StoreFailure(t *testing.T) {
	t.Parallel()

	mock := &storetest.MockStore{
		QueryMessagesFunc: func(context.Context, store.MessageQuery) ([]message.Message, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := New(mock, nil).LoadThread(context.Background(), "u1", "u2")
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if _, queries, _ := mock.Calls(); queries != 1 {
		t.Errorf("queries = %d, want exactly one attempt", queries)
	}
}

func TestLoadThread_DropsForeignAndIncomplete(t *testing.T) {
	t.Parallel()

	mock := &storetest.MockStore{
		QueryMessagesFunc: func(context.Context, store.MessageQuery) ([]message.Message, error) {
			return []message.Message{
				at("ok", "u1", "u2", 1),
				at("foreign", "u1", "u3", 2),
				{ID: "", SenderID: "u2", ReceiverID: "u1"},
			}, nil
		},
	}

	got, err := New(mock, nil).LoadThread(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("LoadThread: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("got %+v, want only ok", got)
	}
}

func TestLoadThread_MissingParticipant(t *testing.T) {
	t.Parallel()

	_, err := New(store.NewInMemoryStore(), nil).LoadThread(context.Background(), "u1", "")
	if !errors.Is(err, ErrMissingParticipant) {
		t.Fatalf("err = %v, want ErrMissingParticipant", err)
	}
}

func TestLoadConversationsRaw_NewestFirst(t *testing.T) {
	t.Parallel()

	s := store.NewInMemoryStore()
	s.Insert(at("m1", "u2", "u1", 10))
	s.Insert(at("m2", "u1", "u2", 11))
	s.Insert(at("m3", "u3", "u1", 5))
	s.Insert(at("m4", "u4", "u5", 20))

	got, err := New(s, nil).LoadConversationsRaw(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LoadConversationsRaw: %v", err)
	}
	want := []string{"m2", "m1", "m3"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}
}
