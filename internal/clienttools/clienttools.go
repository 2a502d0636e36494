// Package clienttools is the dispatch table the onboarding agent drives:
// navigation, widget overlays, progress acknowledgement and the
// identity-bound profile and matching calls.
package clienttools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flemzord/coffee/internal/tool"
	"github.com/flemzord/coffee/internal/ui"
	"github.com/flemzord/coffee/pkg/message"
)

// Tool names.
const (
	OpenMatchProfile          = "open_match_profile"
	OpenP2PChat               = "open_p2p_chat"
	ShowMatchesWidget         = "show_matches_widget"
	ShowProfileBuilderOptions = "show_profile_builder_options"
	UpdateProfileProgress     = "update_profile_progress"
	SaveProfileSection        = "save_profile_section"
	GetUserProfile            = "get_user_profile"
	TriggerMatching           = "trigger_matching"
	GetMatches                = "get_matches"
)

// ClientMatchLimit is the get_matches default when the agent omits limit.
const ClientMatchLimit = 6

// Backend is the profile and matching RPC surface. Every method receives
// the resolved session identity.
type Backend interface {
	SaveProfileSection(ctx context.Context, userID string, attrs message.Attributes) (message.Profile, error)
	// GetUserProfile returns nil without error when the user has no profile.
	GetUserProfile(ctx context.Context, userID string) (*message.Profile, error)
	TriggerMatching(ctx context.Context, userID string) ([]message.Match, error)
	GetMatches(ctx context.Context, userID string, limit int) ([]message.Match, error)
}

// Deps are the collaborators of the dispatch table.
type Deps struct {
	Navigator ui.Navigator
	Overlay   *ui.Overlay
	Backend   Backend
}

// Tools builds the full dispatch table.
func Tools(d Deps) ([]tool.Tool, error) {
	var errs []error
	if d.Navigator == nil {
		errs = append(errs, errors.New("clienttools: navigator is required"))
	}
	if d.Overlay == nil {
		errs = append(errs, errors.New("clienttools: overlay is required"))
	}
	if d.Backend == nil {
		errs = append(errs, errors.New("clienttools: backend is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return []tool.Tool{
		&navigateTool{meta: metaOpenMatchProfile, nav: d.Navigator, kind: ui.RouteMatchProfile},
		&navigateTool{meta: metaOpenP2PChat, nav: d.Navigator, kind: ui.RouteChat},
		&matchesWidgetTool{meta: metaShowMatchesWidget, overlay: d.Overlay},
		&profileOptionsTool{meta: metaShowProfileBuilderOptions, overlay: d.Overlay},
		&progressTool{meta: metaUpdateProfileProgress},
		&saveProfileTool{meta: metaSaveProfileSection, backend: d.Backend},
		&getProfileTool{meta: metaGetUserProfile, backend: d.Backend},
		&triggerMatchingTool{meta: metaTriggerMatching, backend: d.Backend},
		&getMatchesTool{meta: metaGetMatches, backend: d.Backend},
	}, nil
}

// Register adds the full dispatch table to reg.
func Register(reg *tool.Registry, d Deps) error {
	tools, err := Tools(d)
	if err != nil {
		return err
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("clienttools: %w", err)
		}
	}
	return nil
}

// meta carries the static half of a tool.
type meta struct {
	name        string
	description string
	schema      json.RawMessage
	identity    bool
}

func (m meta) Name() string            { return m.name }
func (m meta) Description() string     { return m.description }
func (m meta) Schema() json.RawMessage { return m.schema }
func (m meta) RequiresIdentity() bool  { return m.identity }

func badParams(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{tool.ErrBadToolParams}, args...)...)
}
