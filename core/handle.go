package core

import (
	"context"
	"sync"
)

// Handle is the caller-visible completion of one enqueued task.
//
// It settles exactly once, when the task's worker returns. A handle whose
// task was discarded by Queue.Kill never settles; use Wait with a context
// that can be cancelled if that matters to the caller.
type Handle[R any] struct {
	id   TaskID
	done chan struct{}
	once sync.Once

	result R
	err    error
}

func newHandle[R any](id TaskID) *Handle[R] {
	return &Handle[R]{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the id of the task this handle belongs to.
func (h *Handle[R]) ID() TaskID {
	return h.id
}

// Done returns a channel that is closed when the task finishes.
func (h *Handle[R]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task finishes or ctx is done.
// It returns the worker's result and error, or ctx.Err().
func (h *Handle[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryResult returns the outcome without blocking. ok is false while the
// task has not finished.
func (h *Handle[R]) TryResult() (result R, err error, ok bool) {
	select {
	case <-h.done:
		return h.result, h.err, true
	default:
		var zero R
		return zero, nil, false
	}
}

func (h *Handle[R]) resolve(result R) {
	h.once.Do(func() {
		h.result = result
		close(h.done)
	})
}

func (h *Handle[R]) reject(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}
