package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/logging"
)

// OpenAIConfig configures the OpenAI-backed provider.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

// OpenAI implements ConversationProvider on the assistants API,
// ChatCompleter on chat completions, and Embedder on the embeddings API.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
	log    *logging.Logger

	mu          sync.Mutex
	assistantID string
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig, log *logging.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    log.Sub("llm.openai"),
	}
}

// Client exposes the underlying SDK client for sibling capabilities
// (media generation, transcription) that share the same account.
func (o *OpenAI) Client() *openai.Client { return o.client }

// CreateThread creates a new assistants-API thread.
func (o *OpenAI) CreateThread(ctx context.Context) (string, error) {
	thread, err := o.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}
	return thread.ID, nil
}

// AppendMessage adds a message to a thread.
func (o *OpenAI) AppendMessage(ctx context.Context, threadID, role, text string) error {
	_, err := o.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// StartTurn creates a run against the thread. The backing assistant is
// created lazily on first use and reused afterwards; the tool catalog is
// static for the life of the process.
func (o *OpenAI) StartTurn(ctx context.Context, threadID, instructions string, tools []ToolSpec) (Turn, error) {
	assistantID, err := o.ensureAssistant(ctx, instructions, tools)
	if err != nil {
		return Turn{}, err
	}

	run, err := o.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: assistantID,
	})
	if err != nil {
		return Turn{}, fmt.Errorf("creating run: %w", err)
	}
	return mapRun(run), nil
}

// PollTurn fetches the current run state.
func (o *OpenAI) PollTurn(ctx context.Context, threadID, turnID string) (Turn, error) {
	run, err := o.client.RetrieveRun(ctx, threadID, turnID)
	if err != nil {
		return Turn{}, fmt.Errorf("retrieving run: %w", err)
	}
	return mapRun(run), nil
}

// SubmitToolOutputs sends every tool result back to the run.
func (o *OpenAI) SubmitToolOutputs(ctx context.Context, threadID, turnID string, results []domain.ToolResult) (Turn, error) {
	outputs := make([]openai.ToolOutput, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: r.InvocationID,
			Output:     r.Output(),
		})
	}

	run, err := o.client.SubmitToolOutputs(ctx, threadID, turnID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	})
	if err != nil {
		return Turn{}, fmt.Errorf("submitting tool outputs: %w", err)
	}
	return mapRun(run), nil
}

// ListMessages returns the thread's messages in the given order.
func (o *OpenAI) ListMessages(ctx context.Context, threadID string, order Order) ([]domain.ThreadMessage, error) {
	orderStr := string(order)
	list, err := o.client.ListMessage(ctx, threadID, nil, &orderStr, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	msgs := make([]domain.ThreadMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		msgs = append(msgs, domain.ThreadMessage{
			Role: m.Role,
			Text: messageText(m),
		})
	}
	return msgs, nil
}

// ensureAssistant creates the assistant on first use.
func (o *OpenAI) ensureAssistant(ctx context.Context, instructions string, tools []ToolSpec) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.assistantID != "" {
		return o.assistantID, nil
	}

	assistantTools := make([]openai.AssistantTool, 0, len(tools))
	for _, t := range tools {
		assistantTools = append(assistantTools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	name := "attache"
	assistant, err := o.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        o.cfg.Model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        assistantTools,
	})
	if err != nil {
		return "", fmt.Errorf("creating assistant: %w", err)
	}

	o.assistantID = assistant.ID
	o.log.Info().Str("assistantId", assistant.ID).Int("tools", len(tools)).Msg("assistant created")
	return o.assistantID, nil
}

// Complete runs a single-shot chat completion, optionally forcing one
// function call.
func (o *OpenAI) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    o.cfg.Model,
		Messages: mapChatMessages(req.Messages),
	}

	for _, fn := range req.Functions {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		})
	}

	if req.ForceFunction != "" {
		chatReq.ToolChoice = openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.ForceFunction},
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	msg := resp.Choices[0].Message
	out := &ChatResponse{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.Calls = append(out.Calls, FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// Embed returns the embedding vector for a single text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(o.cfg.EmbeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return resp.Data[0].Embedding, nil
}

// mapRun converts an SDK run into a provider-neutral Turn.
func mapRun(run openai.Run) Turn {
	turn := Turn{ID: run.ID}

	switch run.Status {
	case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
		turn.Status = TurnInProgress
	case openai.RunStatusCompleted:
		turn.Status = TurnCompleted
	case openai.RunStatusRequiresAction:
		turn.Status = TurnRequiresToolOutput
		if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
			for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
				turn.Invocations = append(turn.Invocations, domain.ToolInvocation{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: json.RawMessage(tc.Function.Arguments),
				})
			}
		}
	default:
		turn.Status = TurnFailed
		turn.Detail = string(run.Status)
	}
	return turn
}

// messageText extracts the first text content block of a thread message.
func messageText(m openai.Message) string {
	for _, c := range m.Content {
		if c.Text != nil {
			return c.Text.Value
		}
	}
	return ""
}

// mapChatMessages converts transcript messages into SDK chat messages.
func mapChatMessages(msgs []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Call != nil {
			cm.ToolCalls = []openai.ToolCall{{
				ID:   m.Call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      m.Call.Name,
					Arguments: string(m.Call.Arguments),
				},
			}}
		}
		out = append(out, cm)
	}
	return out
}
