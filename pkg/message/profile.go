package message

import "time"

// Attributes is a partial profile section as produced by the onboarding
// agent. Nil fields are "not provided" and never overwrite stored values.
type Attributes struct {
	Name               *string  `json:"name,omitempty"`
	Age                *int     `json:"age,omitempty"`
	AgeRange           *string  `json:"age_range,omitempty"`
	City               *string  `json:"city,omitempty"`
	Area               *string  `json:"area,omitempty"`
	Gender             *string  `json:"gender,omitempty"`
	Occupation         *string  `json:"occupation,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	PersonalityTraits  []string `json:"personality_traits,omitempty"`
	LookingFor         []string `json:"looking_for,omitempty"`
	MeetingPreferences *string  `json:"meeting_preferences,omitempty"`
	Dealbreakers       []string `json:"dealbreakers,omitempty"`
	Tagline            *string  `json:"tagline,omitempty"`
}

// Merge copies every provided field of update onto a.
func (a *Attributes) Merge(update Attributes) {
	mergePtr(&a.Name, update.Name)
	mergePtr(&a.Age, update.Age)
	mergePtr(&a.AgeRange, update.AgeRange)
	mergePtr(&a.City, update.City)
	mergePtr(&a.Area, update.Area)
	mergePtr(&a.Gender, update.Gender)
	mergePtr(&a.Occupation, update.Occupation)
	mergePtr(&a.MeetingPreferences, update.MeetingPreferences)
	mergePtr(&a.Tagline, update.Tagline)
	mergeSlice(&a.Interests, update.Interests)
	mergeSlice(&a.PersonalityTraits, update.PersonalityTraits)
	mergeSlice(&a.LookingFor, update.LookingFor)
	mergeSlice(&a.Dealbreakers, update.Dealbreakers)
}

// IsEmpty reports whether no field is provided.
func (a Attributes) IsEmpty() bool {
	return a.Name == nil && a.Age == nil && a.AgeRange == nil && a.City == nil &&
		a.Area == nil && a.Gender == nil && a.Occupation == nil &&
		a.MeetingPreferences == nil && a.Tagline == nil &&
		a.Interests == nil && a.PersonalityTraits == nil &&
		a.LookingFor == nil && a.Dealbreakers == nil
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func mergeSlice(dst *[]string, src []string) {
	if src != nil {
		*dst = append([]string(nil), src...)
	}
}

// Profile is a user's public profile.
type Profile struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Attributes
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the profile name, falling back to the user id.
func (p Profile) DisplayName() string {
	if p.Name != nil && *p.Name != "" {
		return *p.Name
	}
	return p.UserID
}

// Match is a scored candidate for a user. Scores are opaque to the client.
type Match struct {
	MatchUserID      string   `json:"match_user_id"`
	Name             string   `json:"name,omitempty"`
	Age              *int     `json:"age,omitempty"`
	City             string   `json:"city,omitempty"`
	Tagline          string   `json:"tagline,omitempty"`
	Score            float64  `json:"score"`
	OverlapInterests []string `json:"overlap_interests,omitempty"`
}
