package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Overlay errors.
var (
	ErrNoWidget      = errors.New("ui: no widget displayed")
	ErrUnknownOption = errors.New("ui: unknown option")
)

// MatchCard is one entry of the matches widget.
type MatchCard struct {
	UserID           string   `json:"user_id"`
	Name             string   `json:"name"`
	Age              *int     `json:"age,omitempty"`
	City             string   `json:"city,omitempty"`
	Score            *float64 `json:"score,omitempty"`
	MatchReason      string   `json:"match_reason,omitempty"`
	OverlapInterests []string `json:"overlap_interests,omitempty"`
}

// MatchesWidget is the match list overlay.
type MatchesWidget struct {
	Headline string      `json:"headline,omitempty"`
	Matches  []MatchCard `json:"matches"`
}

// Option is one answer of a profile builder question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ProfileOptionsWidget is a multiple-choice question overlay.
type ProfileOptionsWidget struct {
	QuestionID    string   `json:"question_id"`
	Prompt        string   `json:"prompt"`
	Options       []Option `json:"options"`
	AllowMultiple bool     `json:"allow_multiple"`
}

// OverlayState is a snapshot of the visible widgets.
type OverlayState struct {
	Matches        *MatchesWidget
	ProfileOptions *ProfileOptionsWidget
}

// SendFunc delivers text to the agent as a user message.
type SendFunc func(ctx context.Context, text string) error

// Overlay owns the widget state. OnChange is called after every change
// with a fresh snapshot, outside the lock.
type Overlay struct {
	mu       sync.Mutex
	matches  *MatchesWidget
	options  *ProfileOptionsWidget
	send     SendFunc
	onChange func(OverlayState)
	logger   *slog.Logger
}

// NewOverlay creates an empty overlay. send may be nil, in which case
// selections only close the widget.
func NewOverlay(send SendFunc, onChange func(OverlayState), logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{send: send, onChange: onChange, logger: logger.With("component", "overlay")}
}

// ShowMatches replaces the matches widget.
func (o *Overlay) ShowMatches(w MatchesWidget) {
	o.update(func() { o.matches = &w })
}

// ShowProfileOptions replaces the profile options widget.
func (o *Overlay) ShowProfileOptions(w ProfileOptionsWidget) {
	o.update(func() { o.options = &w })
}

// CloseMatches hides the matches widget.
func (o *Overlay) CloseMatches() {
	o.update(func() { o.matches = nil })
}

// CloseProfileOptions hides the profile options widget.
func (o *Overlay) CloseProfileOptions() {
	o.update(func() { o.options = nil })
}

// State returns the current widgets.
func (o *Overlay) State() OverlayState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Select answers the displayed question with the option whose id or value
// is key. The option label goes back to the agent and the widget closes.
func (o *Overlay) Select(ctx context.Context, key string) error {
	o.mu.Lock()
	w := o.options
	o.mu.Unlock()
	if w == nil {
		return ErrNoWidget
	}

	var picked *Option
	for i := range w.Options {
		if w.Options[i].ID == key || w.Options[i].Value == key {
			picked = &w.Options[i]
			break
		}
	}
	if picked == nil {
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}

	if o.send != nil {
		if err := o.send(ctx, picked.Label); err != nil {
			return err
		}
	}
	o.logger.Debug("option selected", "question_id", w.QuestionID, "value", picked.Value)
	o.CloseProfileOptions()
	return nil
}

func (o *Overlay) update(fn func()) {
	o.mu.Lock()
	fn()
	state := o.stateLocked()
	cb := o.onChange
	o.mu.Unlock()

	if cb != nil {
		cb(state)
	}
}

func (o *Overlay) stateLocked() OverlayState {
	var s OverlayState
	if o.matches != nil {
		m := *o.matches
		m.Matches = append([]MatchCard(nil), m.Matches...)
		s.Matches = &m
	}
	if o.options != nil {
		p := *o.options
		p.Options = append([]Option(nil), p.Options...)
		s.ProfileOptions = &p
	}
	return s
}
