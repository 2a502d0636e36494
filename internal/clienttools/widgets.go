package clienttools

import (
	"cmp"
	"context"
	"encoding/json"
	"strings"

	"github.com/flemzord/coffee/internal/tool"
	"github.com/flemzord/coffee/internal/ui"
)

// rawMatch accepts both the widget shape and the get_matches shape, since
// the agent forwards either.
type rawMatch struct {
	UserID           string   `json:"user_id"`
	MatchUserID      string   `json:"match_user_id"`
	Name             string   `json:"name"`
	Age              *int     `json:"age"`
	City             string   `json:"city"`
	Score            *float64 `json:"score"`
	MatchReason      string   `json:"match_reason"`
	Tagline          string   `json:"tagline"`
	OverlapInterests []string `json:"overlap_interests"`
}

type matchesParams struct {
	Headline string     `json:"headline"`
	Matches  []rawMatch `json:"matches"`
}

// normalizeMatches maps agent-provided matches onto widget cards:
// user_id falls back to match_user_id and match_reason to tagline.
// Entries without any id are dropped.
func normalizeMatches(raw []rawMatch) []ui.MatchCard {
	cards := make([]ui.MatchCard, 0, len(raw))
	for _, m := range raw {
		id := cmp.Or(strings.TrimSpace(m.UserID), strings.TrimSpace(m.MatchUserID))
		if id == "" {
			continue
		}
		cards = append(cards, ui.MatchCard{
			UserID:           id,
			Name:             m.Name,
			Age:              m.Age,
			City:             m.City,
			Score:            m.Score,
			MatchReason:      cmp.Or(strings.TrimSpace(m.MatchReason), strings.TrimSpace(m.Tagline)),
			OverlapInterests: m.OverlapInterests,
		})
	}
	return cards
}

type matchesWidgetTool struct {
	meta
	overlay *ui.Overlay
}

func (t *matchesWidgetTool) Execute(_ context.Context, params json.RawMessage, _ tool.ExecutionEnv) (tool.Result, error) {
	p, err := tool.DecodeParams[matchesParams](params)
	if err != nil {
		return tool.Result{}, err
	}

	w := ui.MatchesWidget{Headline: p.Headline, Matches: normalizeMatches(p.Matches)}
	t.overlay.ShowMatches(w)
	return tool.Displayed(w), nil
}

type profileOptionsTool struct {
	meta
	overlay *ui.Overlay
}

func (t *profileOptionsTool) Execute(_ context.Context, params json.RawMessage, _ tool.ExecutionEnv) (tool.Result, error) {
	w, err := tool.DecodeParams[ui.ProfileOptionsWidget](params)
	if err != nil {
		return tool.Result{}, err
	}
	if strings.TrimSpace(w.Prompt) == "" {
		return tool.Result{}, badParams("prompt is required")
	}
	if len(w.Options) == 0 {
		return tool.Result{}, badParams("at least one option is required")
	}
	for i := range w.Options {
		o := &w.Options[i]
		if strings.TrimSpace(o.Label) == "" {
			return tool.Result{}, badParams("option %d has no label", i)
		}
		o.Value = cmp.Or(strings.TrimSpace(o.Value), strings.TrimSpace(o.Label))
		o.ID = cmp.Or(strings.TrimSpace(o.ID), o.Value)
	}

	t.overlay.ShowProfileOptions(w)
	return tool.Displayed(w), nil
}

type progressTool struct {
	meta
}

func (t *progressTool) Execute(context.Context, json.RawMessage, tool.ExecutionEnv) (tool.Result, error) {
	return tool.Success(map[string]bool{"updated": true}), nil
}
