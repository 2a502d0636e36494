// Package tool defines the dispatch table the agent runtime calls into.
// Every invocation is untrusted: parameters come from a language model, so
// identity-bound tools receive the user id from the session, never from
// the parameters.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Tool is one entry of the dispatch table.
type Tool interface {
	// Name returns the unique identifier the agent calls the tool by.
	Name() string

	// Description returns a human-readable description of the tool.
	Description() string

	// Schema returns a JSON Schema describing the tool's parameters.
	Schema() json.RawMessage

	// RequiresIdentity reports whether the tool acts on behalf of the
	// signed-in user. Such tools only run with a resolved identity.
	RequiresIdentity() bool

	// Execute runs the tool. params has already passed size and depth
	// checks; decoding it is the tool's job.
	Execute(ctx context.Context, params json.RawMessage, env ExecutionEnv) (Result, error)
}

// ExecutionEnv carries trusted values into a tool.
type ExecutionEnv struct {
	// UserID is the resolved session identity. Empty for tools that do
	// not require one.
	UserID string
}

// Status is the outcome reported back to the agent runtime.
type Status string

// Result statuses.
const (
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusDisplayed Status = "displayed"
)

// Invocation is a tool call as received from the agent runtime.
type Invocation struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Result is the dispatcher's response to an Invocation.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`

	// Err is the underlying error of an error result, for errors.Is.
	Err error `json:"-"`
}

// Success returns a success result carrying payload.
func Success(payload any) Result {
	return Result{Status: StatusSuccess, Payload: payload}
}

// Displayed returns the result of a tool that rendered UI.
func Displayed(payload any) Result {
	return Result{Status: StatusDisplayed, Payload: payload}
}

// Failure returns an error result for err.
func Failure(err error) Result {
	return Result{Status: StatusError, Message: err.Error(), Err: err}
}

// OK reports whether the result is not an error.
func (r Result) OK() bool { return r.Status != StatusError }

// DecodeParams decodes params into T. Missing or null params decode to the
// zero value. Unknown fields are ignored.
func DecodeParams[T any](params json.RawMessage) (T, error) {
	var v T
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return v, nil
	}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrBadToolParams, err)
	}
	return v, nil
}

// suppliedUserID extracts a top-level "user_id" string from params, if any.
func suppliedUserID(params json.RawMessage) string {
	var peek struct {
		UserID any `json:"user_id"`
	}
	if json.Unmarshal(params, &peek) != nil {
		return ""
	}
	switch v := peek.UserID.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
