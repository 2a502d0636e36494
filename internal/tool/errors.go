package tool

import "errors"

var (
	// ErrUnknownTool is returned when no tool is registered under a name.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrBadToolParams is returned when params fail validation or decoding.
	ErrBadToolParams = errors.New("invalid tool parameters")

	// ErrDenied is returned when a tool execution is denied by policy.
	ErrDenied = errors.New("tool execution denied by policy")

	// ErrToolPanic is returned when a tool panics during execution.
	ErrToolPanic = errors.New("tool panicked")

	// ErrEmptyToolName is returned when a tool name is empty.
	ErrEmptyToolName = errors.New("tool name must not be empty")

	// ErrDuplicateTool is returned when registering a tool with a name that
	// already exists in the registry.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrToolInMultipleLists is returned when a tool is both allowed and
	// denied.
	ErrToolInMultipleLists = errors.New("tool appears in conflicting policy lists")
)
