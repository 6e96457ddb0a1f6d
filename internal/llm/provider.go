// Package llm defines the model-provider contracts the service consumes:
// a threaded conversation-turn provider for the agent loop, a single-shot
// chat completer for the question router, and a text embedder.
package llm

import (
	"context"
	"encoding/json"

	"github.com/attache-hq/attache/internal/domain"
)

// TurnStatus is the lifecycle state of one model turn.
type TurnStatus string

const (
	// TurnInProgress means the turn has not reached a decision yet; keep polling.
	TurnInProgress TurnStatus = "in_progress"
	// TurnRequiresToolOutput means the model wants tool results before continuing.
	TurnRequiresToolOutput TurnStatus = "requires_tool_output"
	// TurnCompleted means a final answer is available in the thread.
	TurnCompleted TurnStatus = "completed"
	// TurnFailed covers every other terminal provider status (cancelled,
	// expired, failed); Detail carries the provider's status string.
	TurnFailed TurnStatus = "failed"
)

// Turn is one request/response cycle with the model. When the status is
// TurnRequiresToolOutput, Invocations lists the pending tool calls; every
// one of them must receive exactly one output before the turn can proceed.
type Turn struct {
	ID          string
	Status      TurnStatus
	Detail      string
	Invocations []domain.ToolInvocation
}

// Order controls message listing direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ToolSpec is a serializable tool definition passed to the provider.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ConversationProvider is the threaded conversation-turn contract.
type ConversationProvider interface {
	// CreateThread creates a new conversation thread and returns its id.
	CreateThread(ctx context.Context) (string, error)

	// AppendMessage adds a message to a thread.
	AppendMessage(ctx context.Context, threadID, role, text string) error

	// StartTurn submits a turn against the thread with the given tool catalog.
	StartTurn(ctx context.Context, threadID, instructions string, tools []ToolSpec) (Turn, error)

	// PollTurn fetches the current state of a running turn.
	PollTurn(ctx context.Context, threadID, turnID string) (Turn, error)

	// SubmitToolOutputs sends tool results back and re-enters the turn
	// status model. The provider requires an output for every pending
	// invocation in the turn.
	SubmitToolOutputs(ctx context.Context, threadID, turnID string, results []domain.ToolResult) (Turn, error)

	// ListMessages returns the thread's message sequence in the given order.
	ListMessages(ctx context.Context, threadID string, order Order) ([]domain.ThreadMessage, error)
}

// FunctionSpec describes a callable function for single-shot chat completion.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FunctionCall is the model's request to invoke a function in a chat turn.
type FunctionCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ChatMessage is one entry in a single-shot chat transcript.
type ChatMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content,omitempty"`
	Call       *FunctionCall `json:"functionCall,omitempty"`
	ToolCallID string        `json:"toolCallId,omitempty"`
}

// ChatRequest is the input to a single-shot chat completion.
// ForceFunction, when set, requires the model to call exactly that function.
type ChatRequest struct {
	Messages      []ChatMessage
	Functions     []FunctionSpec
	ForceFunction string
}

// ChatResponse is the model's reply to a ChatRequest.
type ChatResponse struct {
	Content string
	Calls   []FunctionCall
}

// ChatCompleter is the single-shot chat contract used by the question router.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Embedder turns text into a vector for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
