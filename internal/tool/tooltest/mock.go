// Package tooltest provides test helpers and mocks for the tool package.
package tooltest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flemzord/coffee/internal/tool"
)

// MockTool is a configurable mock implementation of tool.Tool.
type MockTool struct {
	NameFunc             func() string
	DescriptionFunc      func() string
	SchemaFunc           func() json.RawMessage
	RequiresIdentityFunc func() bool
	ExecuteFunc          func(ctx context.Context, params json.RawMessage, env tool.ExecutionEnv) (tool.Result, error)

	mu           sync.Mutex
	ExecuteCalls int
	LastEnv      tool.ExecutionEnv
}

// Name implements tool.Tool.
func (m *MockTool) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock_tool"
}

// Description implements tool.Tool.
func (m *MockTool) Description() string {
	if m.DescriptionFunc != nil {
		return m.DescriptionFunc()
	}
	return "a mock tool"
}

// Schema implements tool.Tool.
func (m *MockTool) Schema() json.RawMessage {
	if m.SchemaFunc != nil {
		return m.SchemaFunc()
	}
	return json.RawMessage(`{"type":"object"}`)
}

// RequiresIdentity implements tool.Tool.
func (m *MockTool) RequiresIdentity() bool {
	if m.RequiresIdentityFunc != nil {
		return m.RequiresIdentityFunc()
	}
	return false
}

// Execute implements tool.Tool.
func (m *MockTool) Execute(ctx context.Context, params json.RawMessage, env tool.ExecutionEnv) (tool.Result, error) {
	m.mu.Lock()
	m.ExecuteCalls++
	m.LastEnv = env
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, params, env)
	}
	return tool.Success(nil), nil
}

// Calls returns the number of Execute calls.
func (m *MockTool) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCalls
}

// Env returns the ExecutionEnv of the last Execute call.
func (m *MockTool) Env() tool.ExecutionEnv {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastEnv
}

// SimpleTool creates a minimal tool for testing.
func SimpleTool(name string, requiresIdentity bool) *MockTool {
	return &MockTool{
		NameFunc:             func() string { return name },
		DescriptionFunc:      func() string { return "simple test tool: " + name },
		RequiresIdentityFunc: func() bool { return requiresIdentity },
		ExecuteFunc: func(_ context.Context, _ json.RawMessage, env tool.ExecutionEnv) (tool.Result, error) {
			return tool.Success(map[string]string{"tool": name, "user_id": env.UserID}), nil
		},
	}
}

// StaticResolver is a tool.Resolver returning a fixed identity or error.
type StaticResolver struct {
	UserID string
	Err    error
}

// Resolve implements tool.Resolver.
func (s StaticResolver) Resolve(context.Context) (string, error) {
	return s.UserID, s.Err
}

// Interface guards.
var (
	_ tool.Tool     = (*MockTool)(nil)
	_ tool.Resolver = StaticResolver{}
)
