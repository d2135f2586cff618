package simpleq

import "github.com/Swind/go-simpleq/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the simpleq package for most use cases.

// Queue runs a worker over enqueued payloads with bounded concurrency.
type Queue[T, R any] = core.Queue[T, R]

// Handle is the completion of one enqueued task.
type Handle[R any] = core.Handle[R]

// Worker processes a single payload.
type Worker[T, R any] = core.Worker[T, R]

// ErrorHandler observes task failures.
type ErrorHandler[T any] = core.ErrorHandler[T]

// QueueConfig holds optional queue settings.
type QueueConfig = core.QueueConfig

// QueueStats is a point-in-time snapshot of a queue.
type QueueStats = core.QueueStats

// TaskExecutionRecord describes a finished task.
type TaskExecutionRecord = core.TaskExecutionRecord

// TaskID identifies an enqueued task.
type TaskID = core.TaskID

// Hook names a queue lifecycle event.
type Hook = core.Hook

// Deferrer schedules the queue's deferred admission pass.
type Deferrer = core.Deferrer

// DeferFunc adapts a function to Deferrer.
type DeferFunc = core.DeferFunc

// EventLoop runs deferred callbacks on one dedicated goroutine.
type EventLoop = core.EventLoop

// PanicError is the failure reported when a worker panics.
type PanicError = core.PanicError

// Hook constants
const (
	HookSaturated = core.HookSaturated
	HookEmpty     = core.HookEmpty
	HookDrain     = core.HookDrain
)

// DefaultConcurrency is the concurrency used by NewDefault.
const DefaultConcurrency = 1

// Errors
var (
	ErrInvalidConcurrency = core.ErrInvalidConcurrency
	ErrNilWorker          = core.ErrNilWorker
	ErrNilHandler         = core.ErrNilHandler
)

// New creates a queue running worker with the given concurrency.
func New[T, R any](worker Worker[T, R], concurrency int) (*Queue[T, R], error) {
	return core.NewQueue(worker, concurrency)
}

// NewDefault creates a queue that runs one task at a time.
func NewDefault[T, R any](worker Worker[T, R]) (*Queue[T, R], error) {
	return core.NewQueue(worker, DefaultConcurrency)
}

// NewWithConfig creates a queue with explicit configuration.
func NewWithConfig[T, R any](worker Worker[T, R], concurrency int, config *QueueConfig) (*Queue[T, R], error) {
	return core.NewQueueWithConfig(worker, concurrency, config)
}

// NewEventLoop creates and starts an EventLoop.
// Use it as QueueConfig.Deferrer to run admission passes and hooks on one goroutine.
func NewEventLoop() *EventLoop {
	return core.NewEventLoop()
}
