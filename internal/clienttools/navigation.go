package clienttools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/flemzord/coffee/internal/tool"
	"github.com/flemzord/coffee/internal/ui"
)

type navigateParams struct {
	MatchUserID string `json:"match_user_id"`
}

type navigateTool struct {
	meta
	nav  ui.Navigator
	kind ui.RouteKind
}

func (t *navigateTool) Execute(ctx context.Context, params json.RawMessage, _ tool.ExecutionEnv) (tool.Result, error) {
	p, err := tool.DecodeParams[navigateParams](params)
	if err != nil {
		return tool.Result{}, err
	}
	id := strings.TrimSpace(p.MatchUserID)
	if id == "" {
		return tool.Result{}, badParams("match_user_id is required")
	}

	route := ui.Route{Kind: t.kind, ID: id}
	if err := t.nav.Navigate(ctx, route); err != nil {
		return tool.Result{}, err
	}
	return tool.Success(map[string]string{"route": route.Path()}), nil
}
