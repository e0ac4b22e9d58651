package commands

import (
	"errors"
	"fmt"

	"github.com/simonhull/norms/pkg/engine"
	"github.com/simonhull/norms/pkg/project"
)

// Process exit codes
const (
	ExitOK         = 0
	ExitViolations = 1 // a Warning or Critical violation was reported
	ExitInvocation = 2 // bad flags, configuration or detection failure
)

// ExitError carries the exit code a command wants. Err is nil when the
// command succeeded but the report failed.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// InvocationError is a command line the tool cannot act on
type InvocationError struct {
	Reason string
}

func (e *InvocationError) Error() string {
	return e.Reason
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitInvocation
}

// classify wraps engine failures the user can fix into InvocationErrors
func classify(err error) error {
	var reqErr *engine.RequestError
	var detErr *project.DetectionError
	switch {
	case errors.As(err, &reqErr):
		return &InvocationError{Reason: reqErr.Error()}
	case errors.As(err, &detErr):
		return &InvocationError{Reason: detErr.Error()}
	}
	return err
}
