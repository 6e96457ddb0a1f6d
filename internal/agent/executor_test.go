package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attache-hq/attache/internal/domain"
	"github.com/attache-hq/attache/internal/logging"
)

// stubTool is a configurable catalog entry for tests.
type stubTool struct {
	name   string
	schema string
	invoke func(ctx context.Context, args json.RawMessage) (any, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool " + s.name }
func (s *stubTool) Parameters() json.RawMessage {
	if s.schema == "" {
		return json.RawMessage(`{"type":"object"}`)
	}
	return json.RawMessage(s.schema)
}
func (s *stubTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	return s.invoke(ctx, args)
}

func testLog() *logging.Logger { return logging.New(nil, "silent") }

func newTestExecutor(t *testing.T, tools ...Tool) *Executor {
	t.Helper()
	catalog := NewCatalog()
	for _, tool := range tools {
		require.NoError(t, catalog.Register(tool))
	}
	return NewExecutor(catalog, time.Second, testLog())
}

func TestCatalog_RegisterDuplicate(t *testing.T) {
	catalog := NewCatalog()
	tool := &stubTool{name: "echo", invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
		return nil, nil
	}}

	require.NoError(t, catalog.Register(tool))
	assert.Error(t, catalog.Register(tool))
}

func TestCatalog_RegisterBadSchema(t *testing.T) {
	catalog := NewCatalog()
	err := catalog.Register(&stubTool{name: "broken", schema: "{not json"})
	assert.Error(t, err)
}

func TestCatalog_SpecsSorted(t *testing.T) {
	catalog := NewCatalog()
	for _, name := range []string{"zebra", "alpha", "mid"} {
		require.NoError(t, catalog.Register(&stubTool{name: name}))
	}

	specs := catalog.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "alpha", specs[0].Name)
	assert.Equal(t, "mid", specs[1].Name)
	assert.Equal(t, "zebra", specs[2].Name)
}

func TestExecutor_Success(t *testing.T) {
	exec := newTestExecutor(t, &stubTool{
		name: "echo",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]string{"echoed": "hi"}, nil
		},
	})

	result, err := exec.Execute(context.Background(), domain.ToolInvocation{ID: "call-1", Name: "echo"})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, "call-1", result.InvocationID)
	assert.JSONEq(t, `{"echoed":"hi"}`, result.Output())
}

func TestExecutor_UnknownTool(t *testing.T) {
	exec := newTestExecutor(t)

	result, err := exec.Execute(context.Background(), domain.ToolInvocation{ID: "call-1", Name: "nope"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, domain.FailureToolNotFound, result.Failure.Kind)
}

func TestExecutor_ArgumentError(t *testing.T) {
	exec := newTestExecutor(t, &stubTool{
		name: "strict",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, NewArgumentError("field %q is required", "title")
		},
	})

	result, err := exec.Execute(context.Background(), domain.ToolInvocation{ID: "call-1", Name: "strict"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, domain.FailureInvalidArguments, result.Failure.Kind)
	assert.Contains(t, result.Failure.Message, "title")
}

func TestExecutor_ExecutionError(t *testing.T) {
	exec := newTestExecutor(t, &stubTool{
		name: "flaky",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("upstream unavailable")
		},
	})

	result, err := exec.Execute(context.Background(), domain.ToolInvocation{ID: "call-1", Name: "flaky"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, domain.FailureExecutionFailed, result.Failure.Kind)
}

func TestExecutor_MissingCredentialsAbort(t *testing.T) {
	exec := newTestExecutor(t, &stubTool{
		name: "read_calendar",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, fmt.Errorf("listing events: %w", domain.ErrNoCredentials)
		},
	})

	// No linked account is a request-level failure, never a tool output.
	_, err := exec.Execute(context.Background(), domain.ToolInvocation{ID: "call-1", Name: "read_calendar"})
	require.ErrorIs(t, err, domain.ErrNoCredentials)

	results, err := exec.ExecuteAll(context.Background(), []domain.ToolInvocation{
		{ID: "call-1", Name: "read_calendar"},
	})
	require.ErrorIs(t, err, domain.ErrNoCredentials)
	assert.Nil(t, results)
}

func TestExecutor_PanicBecomesFailure(t *testing.T) {
	exec := newTestExecutor(t, &stubTool{
		name: "boom",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			panic("unexpected state")
		},
	})

	result, err := exec.Execute(context.Background(), domain.ToolInvocation{ID: "call-1", Name: "boom"})
	require.NoError(t, err)
	require.False(t, result.OK())
	assert.Equal(t, domain.FailureExecutionFailed, result.Failure.Kind)
	assert.Contains(t, result.Failure.Message, "panicked")
}

func TestExecutor_ExecuteAll_PreservesOrder(t *testing.T) {
	slow := &stubTool{
		name: "slow",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			time.Sleep(50 * time.Millisecond)
			return "slow done", nil
		},
	}
	fast := &stubTool{
		name: "fast",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return "fast done", nil
		},
	}
	exec := newTestExecutor(t, slow, fast)

	results, err := exec.ExecuteAll(context.Background(), []domain.ToolInvocation{
		{ID: "call-slow", Name: "slow"},
		{ID: "call-fast", Name: "fast"},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "call-slow", results[0].InvocationID)
	assert.Equal(t, "call-fast", results[1].InvocationID)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
}

func TestExecutor_ExecuteAll_MixedOutcomes(t *testing.T) {
	exec := newTestExecutor(t, &stubTool{
		name: "ok",
		invoke: func(ctx context.Context, args json.RawMessage) (any, error) {
			return "fine", nil
		},
	})

	results, err := exec.ExecuteAll(context.Background(), []domain.ToolInvocation{
		{ID: "call-1", Name: "ok"},
		{ID: "call-2", Name: "missing"},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	require.False(t, results[1].OK())
	assert.Equal(t, domain.FailureToolNotFound, results[1].Failure.Kind)
}
