package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/logging"
)

// Executor runs tool invocations from the catalog. Every invocation yields
// exactly one result; failures are encoded into the result rather than
// returned as errors, so the model always receives an output per call.
// The one exception is domain.ErrNoCredentials: without stored credentials
// no capability call can proceed, so it aborts the turn instead.
type Executor struct {
	catalog *Catalog
	timeout time.Duration
	log     *logging.Logger
}

// NewExecutor creates an executor over the given catalog. A zero timeout
// means tool calls run without a per-call deadline.
func NewExecutor(catalog *Catalog, timeout time.Duration, log *logging.Logger) *Executor {
	return &Executor{
		catalog: catalog,
		timeout: timeout,
		log:     log.Sub("agent.executor"),
	}
}

// Execute runs a single invocation and returns its result.
func (e *Executor) Execute(ctx context.Context, inv domain.ToolInvocation) (domain.ToolResult, error) {
	tool, ok := e.catalog.Get(inv.Name)
	if !ok {
		e.log.Warn().Str("tool", inv.Name).Msg("unknown tool requested")
		return domain.FailureResult(inv.ID, domain.FailureToolNotFound,
			fmt.Sprintf("no tool named %q", inv.Name)), nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.invoke(ctx, tool, inv)
	if err != nil {
		e.log.Warn().Str("tool", inv.Name).Err(err).Msg("tool aborted the turn")
		return domain.ToolResult{}, err
	}

	evt := e.log.Debug()
	if !result.OK() {
		evt = e.log.Warn().Str("failure", string(result.Failure.Kind))
	}
	evt.Str("tool", inv.Name).Dur("took", time.Since(start)).Msg("tool executed")
	return result, nil
}

// invoke calls the tool, converting panics into execution failures so one
// misbehaving tool cannot take down the turn. A credential error is passed
// through untouched for the boundary to map.
func (e *Executor) invoke(ctx context.Context, tool Tool, inv domain.ToolInvocation) (result domain.ToolResult, fatal error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("tool", inv.Name).Any("panic", r).Msg("tool panicked")
			result = domain.FailureResult(inv.ID, domain.FailureExecutionFailed,
				fmt.Sprintf("tool %s panicked: %v", inv.Name, r))
			fatal = nil
		}
	}()

	payload, err := tool.Invoke(ctx, inv.Arguments)
	if err != nil {
		if errors.Is(err, domain.ErrNoCredentials) {
			return domain.ToolResult{}, err
		}
		var argErr *ArgumentError
		if asArgumentError(err, &argErr) {
			return domain.FailureResult(inv.ID, domain.FailureInvalidArguments, argErr.Error()), nil
		}
		return domain.FailureResult(inv.ID, domain.FailureExecutionFailed, err.Error()), nil
	}
	return domain.SuccessResult(inv.ID, payload), nil
}

// ExecuteAll runs every invocation concurrently and waits for all of them.
// Results come back in invocation order regardless of completion order; a
// turn-aborting error from any invocation discards the whole batch.
func (e *Executor) ExecuteAll(ctx context.Context, invs []domain.ToolInvocation) ([]domain.ToolResult, error) {
	results := make([]domain.ToolResult, len(invs))
	errs := make([]error, len(invs))

	var wg sync.WaitGroup
	for i, inv := range invs {
		wg.Add(1)
		go func(i int, inv domain.ToolInvocation) {
			defer wg.Done()
			results[i], errs[i] = e.Execute(ctx, inv)
		}(i, inv)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
