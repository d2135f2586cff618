package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Worker processes a single payload. It runs on its own goroutine and
// receives the queue's base context.
type Worker[T, R any] func(ctx context.Context, payload T) (R, error)

// ErrorHandler observes task failures together with the failing payload.
type ErrorHandler[T any] func(err error, payload T)

// =============================================================================
// TaskID: Identifies a single enqueued task
// =============================================================================

// TaskID is a unique identifier assigned to every enqueued task.
type TaskID uuid.UUID

// GenerateTaskID returns a new random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

// String returns the canonical UUID form.
func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id was never assigned.
func (id TaskID) IsZero() bool {
	return id == TaskID(uuid.Nil)
}

// MarshalText encodes the id in its canonical form.
func (id TaskID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText parses a canonical UUID.
func (id *TaskID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

// =============================================================================
// Envelope: pairs a payload with its completion handle
// =============================================================================

type envelope[T, R any] struct {
	id         TaskID
	payload    T
	handle     *Handle[R]
	enqueuedAt time.Time
}

func newEnvelope[T, R any](payload T) envelope[T, R] {
	id := GenerateTaskID()
	return envelope[T, R]{
		id:         id,
		payload:    payload,
		handle:     newHandle[R](id),
		enqueuedAt: time.Now(),
	}
}
