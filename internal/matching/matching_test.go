package matching

import (
	"errors"
	"testing"

	"github.com/flemzord/coffee/internal/store"
	"github.com/flemzord/coffee/pkg/message"
)

func ptr[T any](v T) *T { return &v }

func fixtureProfiles() []message.Profile {
	return []message.Profile{
		{UserID: "u1", Attributes: message.Attributes{
			Name:         ptr("Ada"),
			City:         ptr("Paris"),
			Interests:    []string{"coffee", "hiking"},
			LookingFor:   []string{"friendship"},
			Dealbreakers: []string{"smoking"},
		}},
		{UserID: "u2", Attributes: message.Attributes{
			Name:       ptr("Bea"),
			City:       ptr("paris"),
			Tagline:    ptr("trail runner"),
			Interests:  []string{"Coffee", "hiking"},
			LookingFor: []string{"friendship"},
		}},
		{UserID: "u3", Attributes: message.Attributes{
			Name:      ptr("Cy"),
			City:      ptr("Lyon"),
			Interests: []string{"coffee", "chess"},
		}},
		{UserID: "u4", Attributes: message.Attributes{
			Interests: []string{"smoking"},
		}},
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	ps := fixtureProfiles()
	res := Compute(ps[0], ps)

	if len(res.Flat) != 2 {
		t.Fatalf("flat = %d candidates, want 2", len(res.Flat))
	}
	if res.Flat[0].Profile.UserID != "u2" || res.Flat[1].Profile.UserID != "u3" {
		t.Errorf("flat order = %s, %s", res.Flat[0].Profile.UserID, res.Flat[1].Profile.UserID)
	}

	best := res.Flat[0].Match()
	if best.Score != 0.8 {
		t.Errorf("u2 score = %v, want 0.8", best.Score)
	}
	if best.City != "paris" || best.Tagline != "trail runner" || best.Name != "Bea" {
		t.Errorf("u2 match = %+v", best)
	}
	if len(best.OverlapInterests) != 2 {
		t.Errorf("overlap = %v", best.OverlapInterests)
	}
	if got := res.Flat[1].Match().Score; got != 0.1 {
		t.Errorf("u3 score = %v, want 0.1", got)
	}
}

func TestCompute_DealbreakerAndSelfExcluded(t *testing.T) {
	t.Parallel()

	ps := fixtureProfiles()
	for _, c := range Compute(ps[0], ps).Flat {
		if c.Profile.UserID == "u1" || c.Profile.UserID == "u4" {
			t.Errorf("unexpected candidate %s", c.Profile.UserID)
		}
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	if got := jaccard(nil, []string{"a"}); got != 0 {
		t.Errorf("empty = %v", got)
	}
	if got := jaccard([]string{"a", "b"}, []string{"B", "c"}); got != 1.0/3 {
		t.Errorf("jaccard = %v", got)
	}
}

func newService(t *testing.T) (*Service, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	for _, p := range fixtureProfiles() {
		st.SaveProfile(p)
	}
	return NewService(st, nil), st
}

func TestService_TriggerAndGetMatches(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)

	ms, err := svc.TriggerMatching(t.Context(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Fatalf("matches = %+v", ms)
	}

	got, err := svc.GetMatches(t.Context(), "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].MatchUserID != "u2" {
		t.Errorf("GetMatches = %+v", got)
	}

	// A second run replaces rather than appends.
	if _, err := svc.TriggerMatching(t.Context(), "u1"); err != nil {
		t.Fatal(err)
	}
	all, _ := svc.GetMatches(t.Context(), "u1", 0)
	if len(all) != 2 {
		t.Errorf("after rerun = %d matches, want 2", len(all))
	}
}

func TestService_TriggerWithoutProfile(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	if _, err := svc.TriggerMatching(t.Context(), "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
	if _, err := svc.TriggerMatching(t.Context(), " "); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("err = %v, want ErrMissingUser", err)
	}
}

func TestService_GetUserProfile(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)

	p, err := svc.GetUserProfile(t.Context(), "ghost")
	if err != nil || p != nil {
		t.Fatalf("missing profile = %v, %v; want nil, nil", p, err)
	}

	p, err = svc.GetUserProfile(t.Context(), "u2")
	if err != nil || p == nil || p.DisplayName() != "Bea" {
		t.Fatalf("GetUserProfile(u2) = %+v, %v", p, err)
	}
}

func TestService_SaveProfileSectionMerges(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)

	p, err := svc.SaveProfileSection(t.Context(), "u2", message.Attributes{Occupation: ptr("nurse")})
	if err != nil {
		t.Fatal(err)
	}
	if p.Occupation == nil || *p.Occupation != "nurse" || p.DisplayName() != "Bea" {
		t.Errorf("profile = %+v", p)
	}
}

func TestService_RematchAll(t *testing.T) {
	t.Parallel()

	svc, st := newService(t)

	n, err := svc.RematchAll(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("processed = %d, want 4", n)
	}
	ms, _ := st.GetMatches(t.Context(), "u2", 0)
	if len(ms) == 0 {
		t.Error("u2 has no matches after RematchAll")
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, def, want int }{
		{0, 6, 6},
		{-3, 10, 10},
		{4, 6, 4},
		{500, 6, MaxLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in, tt.def); got != tt.want {
			t.Errorf("ClampLimit(%d, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}
