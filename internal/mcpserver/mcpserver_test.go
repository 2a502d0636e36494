package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/coffee/internal/tool"
	"github.com/flemzord/coffee/internal/tool/tooltest"
)

func newTestServer(t *testing.T, mocks ...*tooltest.MockTool) *Server {
	t.Helper()
	reg := tool.NewRegistry(nil)
	for _, m := range mocks {
		if err := reg.Register(m); err != nil {
			t.Fatal(err)
		}
	}
	return New(reg, "test", nil)
}

func callRequest(name string, args any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return text.Text
}

func TestHandle_Success(t *testing.T) {
	t.Parallel()

	echo := &tooltest.MockTool{
		NameFunc: func() string { return "echo" },
		ExecuteFunc: func(_ context.Context, params json.RawMessage, _ tool.ExecutionEnv) (tool.Result, error) {
			var p struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(params, &p); err != nil {
				return tool.Result{}, err
			}
			return tool.Success(map[string]string{"echo": p.Text}), nil
		},
	}
	s := newTestServer(t, echo)

	res, err := s.handle(context.Background(), callRequest("echo", map[string]any{"text": "hi"}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}

	var got tool.Result
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != tool.StatusSuccess {
		t.Errorf("status = %q", got.Status)
	}
	if p, _ := got.Payload.(map[string]any); p["echo"] != "hi" {
		t.Errorf("payload = %+v", got.Payload)
	}
}

func TestHandle_ToolFailure(t *testing.T) {
	t.Parallel()

	failing := &tooltest.MockTool{
		NameFunc: func() string { return "boom" },
		ExecuteFunc: func(context.Context, json.RawMessage, tool.ExecutionEnv) (tool.Result, error) {
			return tool.Result{}, errors.New("backend offline")
		},
	}
	s := newTestServer(t, failing)

	res, err := s.handle(context.Background(), callRequest("boom", nil))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(t, res), "backend offline") {
		t.Errorf("text = %q", resultText(t, res))
	}
}

func TestHandle_UnknownTool(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	res, err := s.handle(context.Background(), callRequest("nope", map[string]any{}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for unknown tool")
	}
}

func TestServer_ListsRegistryTools(t *testing.T) {
	t.Parallel()

	s := newTestServer(t,
		&tooltest.MockTool{NameFunc: func() string { return "get_matches" }},
		&tooltest.MockTool{NameFunc: func() string { return "navigate_to_chat" }},
	)

	resp := s.MCP().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"get_matches", "navigate_to_chat"} {
		if !strings.Contains(string(body), `"`+name+`"`) {
			t.Errorf("tools/list missing %q: %s", name, body)
		}
	}
}
