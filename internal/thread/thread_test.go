package thread

import (
	"testing"
	"time"

	"github.com/flemzord/coffee/pkg/message"
)

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func dm(id, from, to, content string, sec int) message.Message {
	return message.Message{ID: id, SenderID: from, ReceiverID: to, Content: content, CreatedAt: at(sec)}
}

func contents(th *Thread) []string {
	var out []string
	for _, e := range th.Entries() {
		out = append(out, e.Content)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestThread_LoadOrdersAscending(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.Load([]message.Message{
		dm("c", "u1", "u2", "3", 3),
		dm("a", "u2", "u1", "1", 1),
		dm("b", "u1", "u2", "2", 2),
	})

	if got := contents(th); !equal(got, []string{"1", "2", "3"}) {
		t.Errorf("order = %v, want [1 2 3]", got)
	}
}

func TestThread_InsertDeduplicates(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	m := dm("a", "u2", "u1", "hi", 1)
	if !th.Insert(m) {
		t.Fatal("first insert rejected")
	}
	if th.Insert(m) {
		t.Error("duplicate insert accepted")
	}
	if th.Insert(dm("z", "u3", "u1", "other", 2)) {
		t.Error("foreign message accepted")
	}
	if th.Len() != 1 {
		t.Errorf("Len = %d, want 1", th.Len())
	}
}

func TestThread_EqualTimestampsKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.AppendPending("t1", "first", at(5))
	th.Insert(dm("x", "u2", "u1", "second", 5))
	th.AppendPending("t2", "third", at(5))

	if got := contents(th); !equal(got, []string{"first", "second", "third"}) {
		t.Errorf("order = %v", got)
	}
}

func TestThread_ConfirmIsIdempotent(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.AppendPending("tmp", "hello", at(1))
	canonical := dm("m1", "u1", "u2", "hello", 2)

	if !th.Confirm("tmp", canonical) {
		t.Fatal("Confirm reported no change")
	}
	if th.Confirm("tmp", canonical) {
		t.Error("second Confirm reported a change")
	}

	e, ok := th.Get("tmp")
	if !ok || e.State != Confirmed || e.ID != "m1" {
		t.Errorf("entry = %+v", e)
	}
	if !th.Has("m1") || th.Len() != 1 {
		t.Errorf("Has(m1)=%v Len=%d", th.Has("m1"), th.Len())
	}
}

func TestThread_ConfirmWhenCanonicalAlreadyPresent(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.AppendPending("tmp", "hello", at(1))
	th.Insert(dm("m1", "u1", "u2", "hello", 1))

	th.Confirm("tmp", dm("m1", "u1", "u2", "hello", 1))

	if th.Len() != 1 {
		t.Fatalf("Len = %d, want the single canonical entry", th.Len())
	}
	if _, ok := th.Get("tmp"); ok {
		t.Error("temporary entry still present")
	}
}

func TestThread_FailRetryRemove(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.AppendPending("tmp", "hello", at(1))

	if _, ok := th.Retry("tmp", at(2)); ok {
		t.Error("Retry of a pending entry should be refused")
	}
	if !th.Fail("tmp") {
		t.Fatal("Fail reported no change")
	}
	if th.Fail("tmp") {
		t.Error("failing twice should be a no-op")
	}

	e, ok := th.Retry("tmp", at(3))
	if !ok || e.State != Pending || !e.CreatedAt.Equal(at(3)) {
		t.Errorf("Retry = %+v, %v", e, ok)
	}

	if !th.Remove("tmp") || th.Len() != 0 {
		t.Errorf("Remove failed, Len = %d", th.Len())
	}
}

func TestThread_ConfirmAfterFailure(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.AppendPending("tmp", "late ack", at(1))
	th.Fail("tmp")

	if !th.Confirm("tmp", dm("m9", "u1", "u2", "late ack", 1)) {
		t.Fatal("late confirmation ignored")
	}
	e, _ := th.Get("tmp")
	if e.State != Confirmed {
		t.Errorf("state = %v, want confirmed", e.State)
	}
}

func TestThread_MatchPending(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.AppendPending("tmp", "hello", at(10))

	tests := []struct {
		name string
		m    message.Message
		want bool
	}{
		{"echo within window", dm("m1", "u1", "u2", "hello", 12), true},
		{"different content", dm("m1", "u1", "u2", "hellO", 12), false},
		{"outside window", dm("m1", "u1", "u2", "hello", 30), false},
		{"other direction", dm("m1", "u2", "u1", "hello", 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := th.MatchPending(tt.m, 5*time.Second)
			if ok != tt.want {
				t.Fatalf("MatchPending ok = %v, want %v", ok, tt.want)
			}
			if ok && id != "tmp" {
				t.Errorf("temp id = %q", id)
			}
		})
	}
}

func TestThread_MatchPendingIncludesFailed(t *testing.T) {
	t.Parallel()

	th := New("u1", "u2")
	th.AppendPending("tmp", "hello", at(10))
	th.Fail("tmp")

	id, ok := th.MatchPending(dm("m1", "u1", "u2", "hello", 11), 5*time.Second)
	if !ok || id != "tmp" {
		t.Fatalf("MatchPending = %q, %v; want tmp", id, ok)
	}

	th.Confirm("tmp", dm("m1", "u1", "u2", "hello", 11))
	if _, ok := th.MatchPending(dm("m2", "u1", "u2", "hello", 11), 5*time.Second); ok {
		t.Error("confirmed entry matched a second echo")
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	if Pending.String() != "pending" || Failed.String() != "failed" || Confirmed.String() != "confirmed" {
		t.Error("unexpected state names")
	}
}
