package message

import (
	"testing"
	"time"
)

func TestMessage_Counterpart(t *testing.T) {
	t.Parallel()

	m := Message{SenderID: "u1", ReceiverID: "u2"}
	if got := m.Counterpart("u1"); got != "u2" {
		t.Errorf("Counterpart(u1) = %q, want u2", got)
	}
	if got := m.Counterpart("u2"); got != "u1" {
		t.Errorf("Counterpart(u2) = %q, want u1", got)
	}
}

func TestMessage_Between(t *testing.T) {
	t.Parallel()

	m := Message{SenderID: "u1", ReceiverID: "u2"}
	if !m.Between("u1", "u2") || !m.Between("u2", "u1") {
		t.Error("Between should hold in both directions")
	}
	if m.Between("u1", "u3") {
		t.Error("Between(u1, u3) should be false")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CET", 3600)
	got, ok := Normalize(Message{
		ID:         " m1 ",
		SenderID:   "u1 ",
		ReceiverID: " u2",
		CreatedAt:  time.Date(2026, 1, 1, 12, 0, 0, 0, loc),
	})
	if !ok {
		t.Fatal("expected message to be kept")
	}
	if got.ID != "m1" || got.SenderID != "u1" || got.ReceiverID != "u2" {
		t.Errorf("ids not trimmed: %+v", got)
	}
	if got.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", got.CreatedAt.Location())
	}

	if _, ok := Normalize(Message{ID: "m2", SenderID: "u1"}); ok {
		t.Error("message without receiver should be dropped")
	}
}

func TestAttributes_MergeKeepsExistingValues(t *testing.T) {
	t.Parallel()

	name, city, newCity := "Anya", "Paris", "Lyon"
	base := Attributes{Name: &name, City: &city, Interests: []string{"books"}}

	base.Merge(Attributes{City: &newCity})

	if base.Name == nil || *base.Name != "Anya" {
		t.Errorf("name overwritten: %v", base.Name)
	}
	if base.City == nil || *base.City != "Lyon" {
		t.Errorf("city = %v, want Lyon", base.City)
	}
	if len(base.Interests) != 1 {
		t.Errorf("interests = %v, want unchanged", base.Interests)
	}

	newCity = "Nice"
	if *base.City != "Lyon" {
		t.Error("merge must copy values, not alias the update")
	}
}

func TestProfile_DisplayName(t *testing.T) {
	t.Parallel()

	p := Profile{UserID: "u9"}
	if p.DisplayName() != "u9" {
		t.Errorf("DisplayName = %q, want fallback to id", p.DisplayName())
	}
	name := "Liam"
	p.Name = &name
	if p.DisplayName() != "Liam" {
		t.Errorf("DisplayName = %q, want Liam", p.DisplayName())
	}
}
