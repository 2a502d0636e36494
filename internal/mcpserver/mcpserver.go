// Package mcpserver exposes the client tool dispatch table to an agent
// runtime over the Model Context Protocol. Every MCP tool call goes through
// tool.Registry.Dispatch, so policy, identity, rate limits and audit apply
// exactly as they do for in-process invocations.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/coffee/internal/tool"
)

// Dispatcher is the subset of tool.Registry the bridge needs.
type Dispatcher interface {
	Schemas() []tool.Schema
	Dispatch(ctx context.Context, inv tool.Invocation) tool.Result
}

var _ Dispatcher = (*tool.Registry)(nil)

// Server wraps an MCP server whose tools mirror a Dispatcher.
type Server struct {
	mcp        *server.MCPServer
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New builds the MCP server and registers one MCP tool per schema.
func New(d Dispatcher, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp: server.NewMCPServer("coffee", version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		dispatcher: d,
		logger:     logger.With("component", "mcp"),
	}

	for _, sc := range d.Schemas() {
		s.mcp.AddTool(mcp.NewToolWithRawSchema(sc.Name, sc.Description, sc.Schema), s.handle)
	}
	return s
}

// MCP returns the underlying server, for transports other than stdio.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves newline-delimited JSON-RPC on in/out until ctx is done
// or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(io.Discard, "", 0))
	s.logger.Info("mcp server listening on stdio", "tools", len(s.dispatcher.Schemas()))
	return stdio.Listen(ctx, in, out)
}

// handle translates an MCP call into an Invocation. Tool failures are
// reported as MCP error results, never as protocol errors.
func (s *Server) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params json.RawMessage
	if req.Params.Arguments != nil {
		raw, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%v: %v", tool.ErrBadToolParams, err)), nil
		}
		params = raw
	}

	res := s.dispatcher.Dispatch(ctx, tool.Invocation{Name: req.Params.Name, Params: params})
	if !res.OK() {
		s.logger.Debug("tool call failed", "tool", req.Params.Name, "error", res.Message)
		return mcp.NewToolResultError(res.Message), nil
	}

	body, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}
