package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResult_Success(t *testing.T) {
	res := SuccessResult("call-1", map[string]string{"status": "confirmed"})

	assert.True(t, res.OK())
	assert.Equal(t, "call-1", res.InvocationID)
	assert.JSONEq(t, `{"status":"confirmed"}`, res.Output())
}

func TestToolResult_Success_NilPayload(t *testing.T) {
	res := SuccessResult("call-1", nil)

	assert.True(t, res.OK())
	assert.Equal(t, "null", res.Output())
}

func TestToolResult_Failure(t *testing.T) {
	res := FailureResult("call-2", FailureToolNotFound, "unknown tool: frobnicate")

	assert.False(t, res.OK())

	var out struct {
		Error ToolFailure `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Output()), &out))
	assert.Equal(t, FailureToolNotFound, out.Error.Kind)
	assert.Equal(t, "unknown tool: frobnicate", out.Error.Message)
}

func TestToolResult_Success_UnmarshalablePayload(t *testing.T) {
	res := SuccessResult("call-3", make(chan int))

	assert.False(t, res.OK())
	assert.Equal(t, FailureExecutionFailed, res.Failure.Kind)
}

func TestApproach_Known(t *testing.T) {
	assert.True(t, ApproachRetrieval.Known())
	assert.True(t, ApproachGeneratedQuery.Known())
	assert.False(t, Approach("vibes").Known())
	assert.False(t, Approach("").Known())
}
