package ui

import (
	"context"
	"errors"
	"testing"
)

func TestRecordingNavigator(t *testing.T) {
	t.Parallel()

	var seen []string
	n := &RecordingNavigator{OnNavigate: func(r Route) { seen = append(seen, r.Path()) }}

	if err := n.Navigate(t.Context(), Route{Kind: RouteChat, ID: " u2 "}); err != nil {
		t.Fatal(err)
	}
	if err := n.Navigate(t.Context(), Route{Kind: RouteMatchProfile, ID: ""}); !errors.Is(err, ErrEmptyRoute) {
		t.Fatalf("err = %v, want ErrEmptyRoute", err)
	}

	last, ok := n.Last()
	if !ok || last.Path() != "/chat/u2" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	if len(n.Routes()) != 1 || len(seen) != 1 {
		t.Errorf("routes = %v, seen = %v", n.Routes(), seen)
	}
}

func TestOverlay_ShowAndClose(t *testing.T) {
	t.Parallel()

	var changes int
	o := NewOverlay(nil, func(OverlayState) { changes++ }, nil)

	o.ShowMatches(MatchesWidget{Headline: "h", Matches: []MatchCard{{UserID: "u2", Name: "Bea"}}})
	state := o.State()
	if state.Matches == nil || state.Matches.Matches[0].UserID != "u2" {
		t.Fatalf("state = %+v", state)
	}

	state.Matches.Matches[0].UserID = "mutated"
	if o.State().Matches.Matches[0].UserID != "u2" {
		t.Error("snapshot aliases overlay state")
	}

	o.CloseMatches()
	if o.State().Matches != nil {
		t.Error("matches still displayed")
	}
	if changes != 2 {
		t.Errorf("changes = %d, want 2", changes)
	}
}

func TestOverlay_SelectSendsLabel(t *testing.T) {
	t.Parallel()

	var sent []string
	o := NewOverlay(func(_ context.Context, text string) error {
		sent = append(sent, text)
		return nil
	}, nil, nil)

	if err := o.Select(t.Context(), "x"); !errors.Is(err, ErrNoWidget) {
		t.Fatalf("err = %v, want ErrNoWidget", err)
	}

	o.ShowProfileOptions(ProfileOptionsWidget{
		QuestionID: "q1",
		Prompt:     "Weekend plans?",
		Options: []Option{
			{ID: "o1", Label: "Hiking trip", Value: "hiking"},
			{ID: "o2", Label: "Museum day", Value: "museum"},
		},
	})

	if err := o.Select(t.Context(), "nope"); !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("err = %v, want ErrUnknownOption", err)
	}
	if err := o.Select(t.Context(), "museum"); err != nil {
		t.Fatal(err)
	}
	if len(sent) != 1 || sent[0] != "Museum day" {
		t.Errorf("sent = %v", sent)
	}
	if o.State().ProfileOptions != nil {
		t.Error("options widget still displayed")
	}
}

func TestOverlay_SelectKeepsWidgetOnSendError(t *testing.T) {
	t.Parallel()

	boom := errors.New("send failed")
	o := NewOverlay(func(context.Context, string) error { return boom }, nil, nil)
	o.ShowProfileOptions(ProfileOptionsWidget{Prompt: "p", Options: []Option{{ID: "a", Label: "A", Value: "a"}}})

	if err := o.Select(t.Context(), "a"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if o.State().ProfileOptions == nil {
		t.Error("widget closed despite send failure")
	}
}
