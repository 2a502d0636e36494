// Package matching computes and serves match suggestions. The scorer is a
// reference implementation: clients treat scores as opaque.
package matching

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/flemzord/coffee/pkg/message"
)

// Score weights. They sum to 1.
const (
	weightInterests   = 0.3
	weightLookingFor  = 0.3
	weightLocation    = 0.2
	weightPersonality = 0.2
)

// categorySize is how many candidates each category contributes.
const categorySize = 5

// Candidate is a scored profile with its per-category sub-scores.
type Candidate struct {
	Profile          message.Profile
	Score            float64
	Interests        float64
	LookingFor       float64
	Personality      float64
	Activity         float64
	Location         float64
	OverlapInterests []string
}

// Match converts the candidate to its stored form. The score is rounded
// to two decimals.
func (c Candidate) Match() message.Match {
	m := message.Match{
		MatchUserID:      c.Profile.UserID,
		Name:             c.Profile.DisplayName(),
		Age:              c.Profile.Age,
		Score:            math.Round(c.Score*100) / 100,
		OverlapInterests: c.OverlapInterests,
	}
	if c.Profile.City != nil {
		m.City = *c.Profile.City
	}
	if c.Profile.Tagline != nil {
		m.Tagline = *c.Profile.Tagline
	}
	return m
}

// Result groups candidates by the dimension they score best on, plus a
// de-duplicated flat list in presentation order.
type Result struct {
	Location    []Candidate
	Interests   []Candidate
	Activity    []Candidate
	Personality []Candidate
	OverallVibe []Candidate
	Flat        []Candidate
}

// Compute scores every candidate against self. Candidates that hit one of
// self's dealbreakers, and self itself, are excluded.
func Compute(self message.Profile, candidates []message.Profile) Result {
	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.UserID == self.UserID {
			continue
		}
		if hitsDealbreaker(self.Dealbreakers, c) {
			continue
		}
		scored = append(scored, score(self, c))
	}

	r := Result{
		Location:    topBy(scored, func(c Candidate) float64 { return c.Location }),
		Interests:   topBy(scored, func(c Candidate) float64 { return c.Interests }),
		Activity:    topBy(scored, func(c Candidate) float64 { return c.Activity }),
		Personality: topBy(scored, func(c Candidate) float64 { return c.Personality }),
		OverallVibe: topBy(scored, func(c Candidate) float64 { return c.LookingFor }),
	}

	seen := make(map[string]bool)
	for _, block := range [][]Candidate{r.OverallVibe, r.Interests, r.Location, r.Personality, r.Activity} {
		for _, c := range block {
			if !seen[c.Profile.UserID] {
				seen[c.Profile.UserID] = true
				r.Flat = append(r.Flat, c)
			}
		}
	}
	return r
}

func score(self, c message.Profile) Candidate {
	cand := Candidate{
		Profile:          c,
		Interests:        jaccard(self.Interests, c.Interests),
		LookingFor:       jaccard(self.LookingFor, c.LookingFor),
		Personality:      jaccard(self.PersonalityTraits, c.PersonalityTraits),
		OverlapInterests: intersect(self.Interests, c.Interests),
	}
	if self.MeetingPreferences != nil && c.MeetingPreferences != nil &&
		*self.MeetingPreferences != "" && fold(*self.MeetingPreferences) == fold(*c.MeetingPreferences) {
		cand.Activity = 1
	}
	if self.City != nil && c.City != nil && fold(*self.City) == fold(*c.City) {
		cand.Location = 1
	}
	cand.Score = cand.Interests*weightInterests +
		cand.LookingFor*weightLookingFor +
		cand.Location*weightLocation +
		cand.Personality*weightPersonality
	return cand
}

func hitsDealbreaker(dealbreakers []string, c message.Profile) bool {
	if len(dealbreakers) == 0 {
		return false
	}
	attrs := make(map[string]bool)
	for _, list := range [][]string{c.Interests, c.PersonalityTraits, c.LookingFor} {
		for _, v := range list {
			attrs[fold(v)] = true
		}
	}
	for _, d := range dealbreakers {
		if attrs[fold(d)] {
			return true
		}
	}
	return false
}

func topBy(cs []Candidate, key func(Candidate) float64) []Candidate {
	out := slices.Clone(cs)
	slices.SortStableFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return cmp.Compare(a.Profile.UserID, b.Profile.UserID)
	})
	if len(out) > categorySize {
		out = out[:categorySize]
	}
	return out
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sa := toSet(a)
	sb := toSet(b)
	inter := 0
	for k := range sa {
		if sb[k] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// intersect returns the values of a also present in b, in a's order.
func intersect(a, b []string) []string {
	sb := toSet(b)
	var out []string
	seen := make(map[string]bool)
	for _, v := range a {
		k := fold(v)
		if sb[k] && !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func toSet(vs []string) map[string]bool {
	s := make(map[string]bool, len(vs))
	for _, v := range vs {
		s[fold(v)] = true
	}
	return s
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
