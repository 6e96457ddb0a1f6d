package domain

import "encoding/json"

// ToolInvocation is a single tool call requested by the model within a turn.
// The ID is provider-assigned and correlates the eventual output back to
// this request; it is unique within a turn.
type ToolInvocation struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// FailureKind classifies a recoverable tool execution failure.
type FailureKind string

const (
	FailureToolNotFound     FailureKind = "tool_not_found"
	FailureInvalidArguments FailureKind = "invalid_arguments"
	FailureExecutionFailed  FailureKind = "execution_failed"
)

// ToolFailure describes why a tool invocation did not produce a payload.
// Failures are surfaced to the model as tool output so it can react in
// natural language; they never abort the turn.
type ToolFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// ToolResult is the outcome of executing one ToolInvocation: either a
// JSON payload or a failure, always correlated by invocation id.
type ToolResult struct {
	InvocationID string          `json:"invocationId"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Failure      *ToolFailure    `json:"failure,omitempty"`
}

// OK reports whether the invocation succeeded.
func (r ToolResult) OK() bool { return r.Failure == nil }

// Output renders the result as the JSON string submitted back to the model.
func (r ToolResult) Output() string {
	if r.Failure != nil {
		out, _ := json.Marshal(map[string]any{"error": r.Failure})
		return string(out)
	}
	if len(r.Payload) == 0 {
		return "null"
	}
	return string(r.Payload)
}

// SuccessResult builds a success ToolResult from any JSON-serializable payload.
// A payload that cannot be marshalled is reported as an execution failure.
func SuccessResult(invocationID string, payload any) ToolResult {
	data, err := json.Marshal(payload)
	if err != nil {
		return FailureResult(invocationID, FailureExecutionFailed, "encoding tool payload: "+err.Error())
	}
	return ToolResult{InvocationID: invocationID, Payload: data}
}

// FailureResult builds a failure ToolResult.
func FailureResult(invocationID string, kind FailureKind, message string) ToolResult {
	return ToolResult{
		InvocationID: invocationID,
		Failure:      &ToolFailure{Kind: kind, Message: message},
	}
}
