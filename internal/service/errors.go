// Package service provides the research task orchestration core.
package service

import "errors"

// Sentinel errors for orchestrator operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates an unknown task id or candidate name.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed request parameters, e.g. a
	// comparison with the wrong candidate count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState indicates an operation that is not legal for the
	// task's current status, e.g. cancelling a completed task.
	ErrInvalidState = errors.New("invalid state")
)
