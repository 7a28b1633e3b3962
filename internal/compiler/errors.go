package compiler

import (
	"fmt"
	"strings"
)

// MessageError is a plain, expected failure (bad filename, missing input).
// It is reported to the caller and logged as a warning only.
type MessageError string

func (e MessageError) Error() string { return string(e) }

// Messagef builds a MessageError.
func Messagef(format string, args ...any) error {
	return MessageError(fmt.Sprintf(format, args...))
}

// ExecutionError is a toolchain that could not be run to an exit status.
// Whatever it printed is kept, and the dispatcher turns it into a regular
// result. A plain non-zero exit is not an error: it is a Result with Code set.
type ExecutionError struct {
	Code   int
	Stdout string
	Stderr string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("toolchain failed (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("toolchain failed with code %d", e.Code)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func newExecutionError(id string, out Output, err error) *ExecutionError {
	stderr := out.Stderr
	if stderr != "" && !strings.HasSuffix(stderr, "\n") {
		stderr += "\n"
	}
	return &ExecutionError{
		Code:   -1,
		Stdout: out.Stdout,
		Stderr: stderr + err.Error(),
		Err:    fmt.Errorf("compiler %s: %w", id, err),
	}
}
