package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConcurrency is returned when a concurrency value is not strictly positive.
	ErrInvalidConcurrency = errors.New("simpleq: concurrency must be greater than zero")

	// ErrNilWorker is returned when a queue is constructed without a worker.
	ErrNilWorker = errors.New("simpleq: worker must not be nil")

	// ErrNilHandler is returned when a nil callback is registered.
	ErrNilHandler = errors.New("simpleq: handler must not be nil")

	// ErrLoopClosed is returned by EventLoop.WaitIdle after the loop stopped.
	ErrLoopClosed = errors.New("simpleq: event loop is closed")
)

// PanicError is the failure reported for a task whose worker panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("simpleq: worker panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func invalidConcurrency(n int) error {
	return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, n)
}
