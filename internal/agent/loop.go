package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/llm"
	"github.com/attache-hq/attache/internal/logging"
	"github.com/attache-hq/attache/internal/store"
)

// Event is a turn lifecycle notification, published to observers while a
// turn runs (websocket subscribers, tests).
type Event struct {
	Type     string    `json:"type"`
	ThreadID string    `json:"threadId,omitempty"`
	TurnID   string    `json:"turnId,omitempty"`
	Tools    []string  `json:"tools,omitempty"`
	Round    int       `json:"round,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Event types emitted during a turn.
const (
	EventTurnStarted   = "turn_started"
	EventToolRound     = "tool_round"
	EventTurnCompleted = "turn_completed"
	EventTurnFailed    = "turn_failed"
)

// Observer receives turn lifecycle events. Implementations must not block.
type Observer func(Event)

// LoopConfig bounds a single turn of the loop.
type LoopConfig struct {
	// MaxToolRounds caps how many requires-tool-output rounds one user
	// message may trigger before the turn is abandoned.
	MaxToolRounds int
	// TurnTimeout is the wall-clock budget for one full turn.
	TurnTimeout time.Duration
	// PollInterval is the delay between status polls while in progress.
	PollInterval time.Duration
}

// Loop is the agent orchestration loop. It owns the single persistent
// conversation thread, drives model turns through their status cycle, and
// executes requested tools until the model produces a final answer.
type Loop struct {
	provider llm.ConversationProvider
	threads  *store.ThreadStore
	executor *Executor
	catalog  *Catalog
	prompt   string
	cfg      LoopConfig
	observer Observer
	log      *logging.Logger
}

// NewLoop creates the agent loop.
func NewLoop(
	provider llm.ConversationProvider,
	threads *store.ThreadStore,
	executor *Executor,
	catalog *Catalog,
	prompt string,
	cfg LoopConfig,
	log *logging.Logger,
) *Loop {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 5
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 2 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &Loop{
		provider: provider,
		threads:  threads,
		executor: executor,
		catalog:  catalog,
		prompt:   prompt,
		cfg:      cfg,
		log:      log.Sub("agent.loop"),
	}
}

// SetObserver installs a lifecycle event observer. Call before serving.
func (l *Loop) SetObserver(obs Observer) { l.observer = obs }

// HandleMessage appends the user's message to the persistent thread, runs a
// full turn, and returns the model's final answer.
func (l *Loop) HandleMessage(ctx context.Context, text string) (string, error) {
	threadID, err := l.threads.GetOrCreate(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving thread: %w", err)
	}

	if err := l.provider.AppendMessage(ctx, threadID, domain.RoleUser, text); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.TurnTimeout)
	defer cancel()

	turn, err := l.provider.StartTurn(ctx, threadID, l.prompt, l.catalog.Specs())
	if err != nil {
		return "", fmt.Errorf("starting turn: %w", err)
	}

	l.log.Info().Str("threadId", threadID).Str("turnId", turn.ID).Msg("turn started")
	l.emit(Event{Type: EventTurnStarted, ThreadID: threadID, TurnID: turn.ID})

	answer, err := l.runTurn(ctx, threadID, turn)
	if err != nil {
		l.emit(Event{Type: EventTurnFailed, ThreadID: threadID, TurnID: turn.ID, Detail: err.Error()})
		return "", err
	}

	l.emit(Event{Type: EventTurnCompleted, ThreadID: threadID, TurnID: turn.ID})
	return answer, nil
}

// runTurn drives one turn through its status cycle until it terminates.
func (l *Loop) runTurn(ctx context.Context, threadID string, turn llm.Turn) (string, error) {
	rounds := 0

	for {
		switch turn.Status {
		case llm.TurnInProgress:
			if err := l.wait(ctx); err != nil {
				return "", err
			}
			next, err := l.provider.PollTurn(ctx, threadID, turn.ID)
			if err != nil {
				return "", l.mapCtxErr(ctx, fmt.Errorf("polling turn: %w", err))
			}
			turn = next

		case llm.TurnRequiresToolOutput:
			rounds++
			if rounds > l.cfg.MaxToolRounds {
				l.log.Warn().Int("rounds", rounds).Str("turnId", turn.ID).Msg("tool round limit hit")
				return "", ErrTooManyRounds
			}

			names := make([]string, len(turn.Invocations))
			for i, inv := range turn.Invocations {
				names[i] = inv.Name
			}
			l.log.Info().Int("round", rounds).Strs("tools", names).Msg("executing tool round")
			l.emit(Event{Type: EventToolRound, ThreadID: threadID, TurnID: turn.ID, Tools: names, Round: rounds})

			results, err := l.executor.ExecuteAll(ctx, turn.Invocations)
			if err != nil {
				return "", fmt.Errorf("executing tools: %w", err)
			}
			next, err := l.provider.SubmitToolOutputs(ctx, threadID, turn.ID, results)
			if err != nil {
				return "", l.mapCtxErr(ctx, fmt.Errorf("submitting tool outputs: %w", err))
			}
			turn = next

		case llm.TurnCompleted:
			return l.latestAssistantMessage(ctx, threadID)

		case llm.TurnFailed:
			return "", &TurnFailedError{Status: turn.Detail}

		default:
			return "", &TurnFailedError{Status: string(turn.Status)}
		}
	}
}

// wait sleeps one poll interval, honoring the turn deadline.
func (l *Loop) wait(ctx context.Context) error {
	select {
	case <-time.After(l.cfg.PollInterval):
		return nil
	case <-ctx.Done():
		return l.mapCtxErr(ctx, ctx.Err())
	}
}

// mapCtxErr converts a deadline expiry into the turn-timeout sentinel.
func (l *Loop) mapCtxErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTurnTimeout
	}
	return err
}

// latestAssistantMessage fetches the most recent assistant message from the
// thread after a completed turn.
func (l *Loop) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	msgs, err := l.provider.ListMessages(ctx, threadID, llm.OrderDesc)
	if err != nil {
		return "", fmt.Errorf("listing thread messages: %w", err)
	}
	for _, m := range msgs {
		if m.Role == domain.RoleAssistant {
			return m.Text, nil
		}
	}
	return "", ErrEmptyThread
}

// History returns the persistent thread's messages, oldest first. A missing
// thread yields an empty history rather than an error.
func (l *Loop) History(ctx context.Context) ([]domain.ThreadMessage, error) {
	threadID, err := l.threads.Current(ctx)
	if errors.Is(err, store.ErrNoThread) {
		return []domain.ThreadMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return l.provider.ListMessages(ctx, threadID, llm.OrderAsc)
}

// Reset forgets the persistent thread; the next message starts a fresh one.
func (l *Loop) Reset(ctx context.Context) error {
	return l.threads.DeleteCurrent(ctx)
}

// emit publishes a lifecycle event to the observer, if one is installed.
func (l *Loop) emit(evt Event) {
	if l.observer == nil {
		return
	}
	evt.At = time.Now()
	l.observer(evt)
}
