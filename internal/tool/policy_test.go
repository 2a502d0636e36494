package tool

import (
	"errors"
	"testing"
)

func TestPolicyResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy Policy
		tool   string
		want   ApprovalLevel
	}{
		{"zero policy allows", Policy{}, "get_matches", ApprovalAllow},
		{"default deny", Policy{Default: ApprovalDeny}, "get_matches", ApprovalDeny},
		{"allow list beats default", Policy{Default: ApprovalDeny, Allow: []string{"get_matches"}}, "get_matches", ApprovalAllow},
		{"deny list", Policy{Deny: []string{" trigger_matching "}}, "trigger_matching", ApprovalDeny},
		{"unlisted takes default", Policy{Default: ApprovalDeny, Allow: []string{"a"}}, "b", ApprovalDeny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.policy.Resolve(tt.tool); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.tool, got, tt.want)
			}
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	if err := (Policy{}).Validate(); err != nil {
		t.Errorf("empty policy: %v", err)
	}
	if err := (Policy{Default: ApprovalAllow, Allow: []string{"a"}, Deny: []string{"b"}}).Validate(); err != nil {
		t.Errorf("valid policy: %v", err)
	}
	if err := (Policy{Default: "ask"}).Validate(); err == nil {
		t.Error("expected error for invalid default")
	}
	if err := (Policy{Allow: []string{" "}}).Validate(); err == nil {
		t.Error("expected error for empty name")
	}
	err := (Policy{Allow: []string{"a"}, Deny: []string{"a"}}).Validate()
	if !errors.Is(err, ErrToolInMultipleLists) {
		t.Errorf("err = %v, want ErrToolInMultipleLists", err)
	}
}
