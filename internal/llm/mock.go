package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/attache-hq/attache/internal/domain"
)

// MockProvider is a scripted ConversationProvider for tests. Each call that
// advances a turn (StartTurn, PollTurn, SubmitToolOutputs) consumes the next
// scripted Turn; when the script runs out, the last turn repeats.
type MockProvider struct {
	mu        sync.Mutex
	script    []Turn
	idx       int
	threads   map[string][]domain.ThreadMessage
	Submitted [][]domain.ToolResult
	StartErr  error
}

// NewMockProvider creates a mock that plays back the given turns in order.
func NewMockProvider(script ...Turn) *MockProvider {
	return &MockProvider{
		script:  script,
		threads: map[string][]domain.ThreadMessage{},
	}
}

func (m *MockProvider) CreateThread(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "mock-thread-" + uuid.New().String()[:8]
	m.threads[id] = nil
	return id, nil
}

func (m *MockProvider) AppendMessage(ctx context.Context, threadID, role, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[threadID] = append(m.threads[threadID], domain.ThreadMessage{Role: role, Text: text})
	return nil
}

func (m *MockProvider) StartTurn(ctx context.Context, threadID, instructions string, tools []ToolSpec) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return Turn{}, m.StartErr
	}
	return m.advance(), nil
}

func (m *MockProvider) PollTurn(ctx context.Context, threadID, turnID string) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.advance(), nil
}

func (m *MockProvider) SubmitToolOutputs(ctx context.Context, threadID, turnID string, results []domain.ToolResult) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submitted = append(m.Submitted, results)
	return m.advance(), nil
}

func (m *MockProvider) ListMessages(ctx context.Context, threadID string, order Order) ([]domain.ThreadMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.threads[threadID]
	out := make([]domain.ThreadMessage, len(msgs))
	copy(out, msgs)
	if order == OrderDesc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// Reply appends an assistant message to a thread, simulating the model
// writing its final answer before a completed turn.
func (m *MockProvider) Reply(threadID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[threadID] = append(m.threads[threadID], domain.ThreadMessage{
		Role: domain.RoleAssistant,
		Text: text,
	})
}

// advance pops the next scripted turn; the final turn repeats forever.
// Callers must hold m.mu.
func (m *MockProvider) advance() Turn {
	if len(m.script) == 0 {
		return Turn{ID: "mock-turn", Status: TurnFailed, Detail: "empty script"}
	}
	turn := m.script[m.idx]
	if m.idx < len(m.script)-1 {
		m.idx++
	}
	if turn.ID == "" {
		turn.ID = fmt.Sprintf("mock-turn-%d", m.idx)
	}
	return turn
}

// MockCompleter is a scripted ChatCompleter; responses play back in order
// and requests are recorded for assertions.
type MockCompleter struct {
	mu        sync.Mutex
	Responses []*ChatResponse
	Err       error
	Requests  []ChatRequest
}

func (m *MockCompleter) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &ChatResponse{}, nil
	}
	resp := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}
	return resp, nil
}

// MockEmbedder returns a fixed vector per known text and Fallback otherwise.
type MockEmbedder struct {
	Vectors  map[string][]float32
	Fallback []float32
	Err      error
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if vec, ok := m.Vectors[text]; ok {
		return vec, nil
	}
	return m.Fallback, nil
}
