package tool

import (
	"fmt"
	"strings"
)

// ApprovalLevel defines whether a tool may run.
type ApprovalLevel string

const (
	// ApprovalAllow permits tool execution.
	ApprovalAllow ApprovalLevel = "allow"

	// ApprovalDeny blocks tool execution entirely.
	ApprovalDeny ApprovalLevel = "deny"
)

// Policy decides which tools the agent may call. The zero Policy allows
// every registered tool.
type Policy struct {
	// Default is the level for tools not listed. Empty means allow.
	Default ApprovalLevel `yaml:"default"`

	// Allow lists tools that may run.
	Allow []string `yaml:"allow"`

	// Deny lists tools that must never run.
	Deny []string `yaml:"deny"`
}

// Resolve returns the effective level for a tool name. Explicit lists win
// over the default.
func (p Policy) Resolve(name string) ApprovalLevel {
	name = strings.TrimSpace(name)
	if inList(p.Deny, name) {
		return ApprovalDeny
	}
	if inList(p.Allow, name) {
		return ApprovalAllow
	}
	if p.Default != "" {
		return p.Default
	}
	return ApprovalAllow
}

// Validate checks the default level and that no tool is both allowed and
// denied.
func (p Policy) Validate() error {
	switch p.Default {
	case "", ApprovalAllow, ApprovalDeny:
	default:
		return fmt.Errorf("tool policy: invalid default level %q", p.Default)
	}

	seen := make(map[string]ApprovalLevel)
	check := func(list []string, level ApprovalLevel) error {
		for _, raw := range list {
			name := strings.TrimSpace(raw)
			if name == "" {
				return fmt.Errorf("tool policy: %s list contains empty tool name", level)
			}
			if existing, ok := seen[name]; ok && existing != level {
				return fmt.Errorf("%w: tool %q appears in both %q and %q", ErrToolInMultipleLists, name, existing, level)
			}
			seen[name] = level
		}
		return nil
	}

	if err := check(p.Allow, ApprovalAllow); err != nil {
		return err
	}
	return check(p.Deny, ApprovalDeny)
}

func inList(list []string, name string) bool {
	for _, candidate := range list {
		if strings.TrimSpace(candidate) == name {
			return true
		}
	}
	return false
}
