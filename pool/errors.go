package pool

import "errors"

var (
	// ErrInvalidArgument reports a configuration or call argument outside its valid range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRejected is returned when the pool cannot accept a task.
	ErrRejected = errors.New("task rejected")

	// ErrInterrupted is returned when a blocked caller gives up because its context ended.
	ErrInterrupted = errors.New("interrupted")

	// ErrCancelled is returned by Future getters once the future was cancelled before it ran.
	ErrCancelled = errors.New("future cancelled")

	// ErrTaskPanic wraps a panic recovered from a submitted callable.
	ErrTaskPanic = errors.New("task panic")

	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")
)

var errPoolClosed = errors.New("pool shut down")
