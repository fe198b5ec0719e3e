package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hyperjoin/internal/ir"
)

// RunError reports a failed evaluation together with the run it belongs
// to. The underlying cause is available through errors.Unwrap, so
// ir.HasCode and errors.Is(err, context.Canceled) see through it.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// RunID identifies the failed run.
	RunID string

	// Mode is the evaluation mode of the failed run.
	Mode Mode

	// Err is the underlying cause.
	Err error
}

// RunErrorCode categorizes run errors.
type RunErrorCode string

const (
	// ErrCodeConfig indicates a configuration error surfaced by compilation.
	ErrCodeConfig RunErrorCode = "CONFIG"

	// ErrCodeCancelled indicates the context was cancelled or timed out.
	ErrCodeCancelled RunErrorCode = "CANCELLED"

	// ErrCodeInternal indicates any other failure.
	ErrCodeInternal RunErrorCode = "INTERNAL"
)

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s run %s: %v", e.Code, e.Mode, e.RunID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

func newRunError(runID string, mode Mode, err error) *RunError {
	code := ErrCodeInternal
	switch {
	case ir.IsConfigError(err):
		code = ErrCodeConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeCancelled
	}
	return &RunError{Code: code, RunID: runID, Mode: mode, Err: err}
}

// IsCancelled returns true if err is a run error caused by cancellation.
func IsCancelled(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCancelled
	}
	return false
}
