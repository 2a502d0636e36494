package clienttools

import (
	"context"
	"encoding/json"

	"github.com/flemzord/coffee/internal/matching"
	"github.com/flemzord/coffee/internal/tool"
	"github.com/flemzord/coffee/pkg/message"
)

// Identity-bound tools decode only their own fields; any user_id the agent
// sends is ignored and env.UserID is used instead.

type saveProfileParams struct {
	Attributes *message.Attributes `json:"attributes"`
}

type saveProfileTool struct {
	meta
	backend Backend
}

func (t *saveProfileTool) Execute(ctx context.Context, params json.RawMessage, env tool.ExecutionEnv) (tool.Result, error) {
	p, err := tool.DecodeParams[saveProfileParams](params)
	if err != nil {
		return tool.Result{}, err
	}
	if p.Attributes == nil {
		return tool.Result{}, badParams("attributes is required")
	}

	profile, err := t.backend.SaveProfileSection(ctx, env.UserID, *p.Attributes)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Success(map[string]any{"profile": profile}), nil
}

type getProfileTool struct {
	meta
	backend Backend
}

func (t *getProfileTool) Execute(ctx context.Context, _ json.RawMessage, env tool.ExecutionEnv) (tool.Result, error) {
	profile, err := t.backend.GetUserProfile(ctx, env.UserID)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Success(map[string]any{"profile": profile}), nil
}

type triggerMatchingTool struct {
	meta
	backend Backend
}

func (t *triggerMatchingTool) Execute(ctx context.Context, _ json.RawMessage, env tool.ExecutionEnv) (tool.Result, error) {
	matches, err := t.backend.TriggerMatching(ctx, env.UserID)
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Success(map[string]any{"matches": matches}), nil
}

type getMatchesParams struct {
	Limit int `json:"limit"`
}

type getMatchesTool struct {
	meta
	backend Backend
}

func (t *getMatchesTool) Execute(ctx context.Context, params json.RawMessage, env tool.ExecutionEnv) (tool.Result, error) {
	p, err := tool.DecodeParams[getMatchesParams](params)
	if err != nil {
		return tool.Result{}, err
	}

	matches, err := t.backend.GetMatches(ctx, env.UserID, matching.ClampLimit(p.Limit, ClientMatchLimit))
	if err != nil {
		return tool.Result{}, err
	}
	return tool.Success(map[string]any{"matches": matches}), nil
}

var _ Backend = (*matching.Service)(nil)
