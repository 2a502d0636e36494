package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestStore opens a fresh database whose clock advances one second per call.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	var (
		mu   sync.Mutex
		tick int
	)
	s.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return t0.Add(time.Duration(tick) * time.Second)
	})
	return s
}

func ptr[T any](v T) *T { return &v }

func contents(ms []message.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Content
	}
	return out
}

func TestOpen_MigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "coffee.db")
	ctx := context.Background()

	s, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := s.CreateMessage(ctx, "u1", "u2", "hi"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	_ = s.Close()

	s, err = Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s.Close()

	msgs, err := s.QueryMessages(ctx, store.MessageQuery{Involving: "u1"})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("got %d messages after reopen, want 1", len(msgs))
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestConfig_ValidateRejectsNegativeBusyTimeout(t *testing.T) {
	t.Parallel()

	c := Config{BusyTimeout: -1}
	if err := c.validate(); err == nil {
		t.Fatal("expected error for negative busy_timeout")
	}
}

func TestStore_CreateAndQueryMessages(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var pushed []message.Message
	s.SetOnCreate(func(m message.Message) { pushed = append(pushed, m) })

	for _, m := range []struct{ from, to, content string }{
		{"u2", "u1", "hi"},
		{"u1", "u2", "hey"},
		{"u3", "u1", "yo"},
		{"u2", "u3", "not mine"},
	} {
		if _, err := s.CreateMessage(ctx, m.from, m.to, m.content); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}
	if len(pushed) != 4 {
		t.Errorf("onCreate called %d times, want 4", len(pushed))
	}

	thread, err := s.QueryMessages(ctx, store.MessageQuery{Involving: "u1", Peer: "u2"})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if got := contents(thread); len(got) != 2 || got[0] != "hi" || got[1] != "hey" {
		t.Errorf("thread = %v, want [hi hey]", got)
	}

	all, err := s.QueryMessages(ctx, store.MessageQuery{Involving: "u1", Order: store.Desc, Limit: 2})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if got := contents(all); len(got) != 2 || got[0] != "yo" || got[1] != "hey" {
		t.Errorf("newest first = %v, want [yo hey]", got)
	}
	if !all[0].CreatedAt.Equal(t0.Add(3 * time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", all[0].CreatedAt, t0.Add(3*time.Second))
	}
	if all[0].ID == "" {
		t.Error("store must assign an id")
	}
}

func TestStore_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.SetClock(func() time.Time { return t0 })
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c"} {
		if _, err := s.CreateMessage(ctx, "u1", "u2", c); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}

	asc, err := s.QueryMessages(ctx, store.MessageQuery{Involving: "u1", Peer: "u2"})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if got := contents(asc); got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("asc = %v, want [a b c]", got)
	}
}

func TestStore_CreateMessageValidation(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.CreateMessage(context.Background(), "u1", "u2", "   ")
	if !errors.Is(err, store.ErrInvalidMessage) {
		t.Errorf("err = %v, want ErrInvalidMessage", err)
	}
	_, err = s.QueryMessages(context.Background(), store.MessageQuery{})
	if !errors.Is(err, store.ErrInvalidQuery) {
		t.Errorf("err = %v, want ErrInvalidQuery", err)
	}
}

func TestStore_ClosedDatabaseIsUnavailable(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_ = s.Close()

	_, err := s.QueryMessages(context.Background(), store.MessageQuery{Involving: "u1"})
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestStore_ProfileSectionsMerge(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SaveProfileSection(ctx, "u1", message.Attributes{
		Name:      ptr("Anya"),
		Age:       ptr(29),
		Interests: []string{"climbing", "jazz"},
	}); err != nil {
		t.Fatalf("SaveProfileSection: %v", err)
	}
	p, err := s.SaveProfileSection(ctx, "u1", message.Attributes{City: ptr("Lyon")})
	if err != nil {
		t.Fatalf("SaveProfileSection: %v", err)
	}
	if p.Name == nil || *p.Name != "Anya" || p.City == nil || *p.City != "Lyon" {
		t.Errorf("merged profile = %+v", p.Attributes)
	}

	got, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Age == nil || *got.Age != 29 || len(got.Interests) != 2 {
		t.Errorf("stored profile = %+v", got.Attributes)
	}
	if !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, p.UpdatedAt)
	}

	if _, err := s.GetProfile(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing profile err = %v, want ErrNotFound", err)
	}
	if _, err := s.SaveProfileSection(ctx, "", message.Attributes{}); !errors.Is(err, store.ErrInvalidQuery) {
		t.Errorf("empty user err = %v, want ErrInvalidQuery", err)
	}
}

func TestStore_SyncUserAndQueryProfiles(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.SyncUser(ctx, "u2", "u2@example.com", ""); err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	if _, err := s.SaveProfileSection(ctx, "u2", message.Attributes{Name: ptr("Liam")}); err != nil {
		t.Fatalf("SaveProfileSection: %v", err)
	}
	p, err := s.SyncUser(ctx, "u2", "", "+33600000000")
	if err != nil {
		t.Fatalf("SyncUser: %v", err)
	}
	if p.Email != "u2@example.com" || p.Phone != "+33600000000" || p.DisplayName() != "Liam" {
		t.Errorf("synced profile = %+v", p)
	}
	if _, err := s.SyncUser(ctx, "u1", "", ""); err != nil {
		t.Fatalf("SyncUser: %v", err)
	}

	got, err := s.QueryProfiles(ctx, []string{"u2", "ghost", "u1"})
	if err != nil {
		t.Fatalf("QueryProfiles: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "u2" || got[1].UserID != "u1" {
		t.Errorf("QueryProfiles = %+v, want [u2 u1]", got)
	}

	empty, err := s.QueryProfiles(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("QueryProfiles(nil) = %v, %v", empty, err)
	}

	all, err := s.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(all) != 2 || all[0].UserID != "u1" {
		t.Errorf("ListProfiles = %+v", all)
	}
}

func TestStore_ReplaceAndGetMatches(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceMatches(ctx, "u1", []message.Match{
		{MatchUserID: "old", Score: 0.99},
	}); err != nil {
		t.Fatalf("ReplaceMatches: %v", err)
	}
	if err := s.ReplaceMatches(ctx, "u1", []message.Match{
		{MatchUserID: "u3", Score: 0.4, Name: "Cleo"},
		{MatchUserID: "u2", Score: 0.8, Name: "Liam", Age: ptr(31), City: "Paris", OverlapInterests: []string{"jazz"}},
		{MatchUserID: "u4", Score: 0.4},
	}); err != nil {
		t.Fatalf("ReplaceMatches: %v", err)
	}

	got, err := s.GetMatches(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("GetMatches: %v", err)
	}
	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.MatchUserID
	}
	if len(ids) != 3 || ids[0] != "u2" || ids[1] != "u3" || ids[2] != "u4" {
		t.Fatalf("order = %v, want [u2 u3 u4]", ids)
	}
	if got[0].Age == nil || *got[0].Age != 31 || got[0].City != "Paris" || len(got[0].OverlapInterests) != 1 {
		t.Errorf("match fields = %+v", got[0])
	}
	if got[1].Age != nil || got[1].OverlapInterests != nil {
		t.Errorf("empty optional fields = %+v", got[1])
	}

	limited, err := s.GetMatches(ctx, "u1", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("GetMatches(limit 1) = %v, %v", limited, err)
	}

	none, err := s.GetMatches(ctx, "nobody", 5)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("GetMatches(nobody) = %v, %v; want empty non-nil", none, err)
	}
}

func TestStore_Threads(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveThread(ctx, message.AgentThread{ThreadID: "t1", UserID: "u1", Title: "first"}); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}
	if err := s.SaveThread(ctx, message.AgentThread{ThreadID: "t2", UserID: "u1"}); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}
	if err := s.SaveThread(ctx, message.AgentThread{ThreadID: "t1", UserID: "u1", Title: "renamed"}); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}
	if err := s.SaveThread(ctx, message.AgentThread{ThreadID: "t3", UserID: "u2"}); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}

	got, err := s.ListThreads(ctx, "u1")
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(got) != 2 || got[0].ThreadID != "t1" || got[0].Title != "renamed" || got[1].ThreadID != "t2" {
		t.Errorf("ListThreads = %+v", got)
	}

	if err := s.SaveThread(ctx, message.AgentThread{ThreadID: "t9"}); !errors.Is(err, store.ErrInvalidQuery) {
		t.Errorf("missing user err = %v, want ErrInvalidQuery", err)
	}
}
