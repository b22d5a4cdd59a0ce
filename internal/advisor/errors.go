package advisor

import (
	"errors"
	"fmt"
)

// SetupError reports a profile that cannot be analysed. No stage runs.
type SetupError struct {
	Reason string
}

func (e *SetupError) Error() string {
	return "setup: " + e.Reason
}

// StageError wraps the failure that halted a stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

var (
	// ErrInvalidScore is returned for feedback outside 1-5.
	ErrInvalidScore = errors.New("feedback score must be between 1 and 5")

	// ErrNoResult is returned for feedback on a stage without a usable result.
	ErrNoResult = errors.New("stage has no result to rate")

	// ErrEmptyMessage is returned for a blank chat message.
	ErrEmptyMessage = errors.New("chat message is empty")
)
