package repository

import (
	"errors"
	"fmt"
)

// Sentinel errors for the data layer. Checked with errors.Is at the tool
// registry boundary and converted into structured tool errors there.
var (
	// ErrNotFound means the ticker is unknown to a data source. Never retried.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable means a transient upstream failure survived the
	// full retry budget. The caller may retry the whole request later.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrIncomplete means the orchestration turn cap was exceeded before a
	// structurally valid report was produced. The data layer succeeded;
	// synthesis did not converge.
	ErrIncomplete = errors.New("analysis incomplete")
)

// ValidationError reports malformed tool arguments with the offending field.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid arguments: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("%s: invalid argument %q: %s", e.Tool, e.Field, e.Reason)
}

// ExecutionError wraps a failure raised while executing a tool, annotated with
// the failing tool name and its arguments.
type ExecutionError struct {
	Tool string
	Args string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s(%s): %v", e.Tool, e.Args, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
