package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the loop's terminal states.
var (
	// ErrTurnTimeout means the turn deadline passed while still polling.
	ErrTurnTimeout = errors.New("agent turn timed out")
	// ErrTooManyRounds means the model kept requesting tools past the round cap.
	ErrTooManyRounds = errors.New("agent exceeded tool round limit")
	// ErrEmptyThread means a completed turn left no assistant message to return.
	ErrEmptyThread = errors.New("no assistant message in thread")
)

// TurnFailedError carries the provider's terminal status for a failed turn.
type TurnFailedError struct {
	Status string
}

func (e *TurnFailedError) Error() string {
	return fmt.Sprintf("agent turn ended with status %q", e.Status)
}

// ArgumentError marks a tool failure caused by bad arguments rather than a
// fault during execution. Tools return it so the executor can classify the
// failure for the model.
type ArgumentError struct {
	msg string
}

// NewArgumentError builds an ArgumentError.
func NewArgumentError(format string, args ...any) *ArgumentError {
	return &ArgumentError{msg: fmt.Sprintf(format, args...)}
}

func (e *ArgumentError) Error() string { return e.msg }

// asArgumentError reports whether err is (or wraps) an ArgumentError.
func asArgumentError(err error, target **ArgumentError) bool {
	return errors.As(err, target)
}
