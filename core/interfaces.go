package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling worker and loop panics
// =============================================================================

// PanicHandler is called when a worker panics, or when a callback running on
// an EventLoop panics.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called with the recovered value.
	//
	// Parameters:
	// - ctx: The context the panicking code was running with
	// - name: The name of the queue or event loop where the panic occurred
	// - panicInfo: The panic value recovered
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, name string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, name string, panicInfo any, stackTrace []byte) {
	fmt.Printf("[%s] Panic: %v\nStack trace:\n%s", name, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting queue metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; they are called from the
// admission and completion paths.
type Metrics interface {
	// RecordTaskDuration records how long a worker ran and whether it failed.
	RecordTaskDuration(queueName string, duration time.Duration, failed bool)

	// RecordTaskWait records how long a task stayed pending before it started.
	RecordTaskWait(queueName string, wait time.Duration)

	// RecordTaskPanic records that a worker panicked.
	RecordTaskPanic(queueName string, panicInfo any)

	// RecordQueueDepth records the pending and running counts after a change.
	RecordQueueDepth(queueName string, pending int, running int)

	// RecordTasksDiscarded records pending tasks dropped by Kill.
	RecordTasksDiscarded(queueName string, count int)

	// RecordHookFired records a lifecycle hook firing.
	RecordHookFired(queueName string, hook Hook)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(queueName string, duration time.Duration, failed bool) {}

// RecordTaskWait is a no-op.
func (m *NilMetrics) RecordTaskWait(queueName string, wait time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(queueName string, panicInfo any) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(queueName string, pending int, running int) {}

// RecordTasksDiscarded is a no-op.
func (m *NilMetrics) RecordTasksDiscarded(queueName string, count int) {}

// RecordHookFired is a no-op.
func (m *NilMetrics) RecordHookFired(queueName string, hook Hook) {}

// =============================================================================
// QueueConfig: Configuration for Queue
// =============================================================================

// QueueConfig holds configuration options for Queue.
// All fields are optional; zero values select the defaults.
type QueueConfig struct {
	// Name identifies the queue in logs and metrics. Defaults to "simpleq".
	Name string

	// Context is passed to every worker invocation. Defaults to context.Background().
	Context context.Context

	// Deferrer schedules the deferred admission pass. Defaults to GoDeferrer.
	//
	// With GoDeferrer the pass runs on a new goroutine, so hooks registered
	// right after a Push are only very likely, not certain, to be in place
	// before the first task starts. When that ordering must hold, pass an
	// EventLoop and enqueue and register from one callback posted to it, or
	// Pause before enqueueing and Resume after registering.
	Deferrer Deferrer

	// Logger receives queue lifecycle logs. Defaults to NoOpLogger.
	Logger Logger

	// Metrics is called to record queue metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a worker panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// HistoryCapacity bounds the execution records kept for RecentTasks.
	// Defaults to 100.
	HistoryCapacity int
}

// DefaultQueueConfig returns a config with default handlers.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		Name:            defaultQueueName,
		Context:         context.Background(),
		Deferrer:        GoDeferrer{},
		Logger:          NewNoOpLogger(),
		Metrics:         &NilMetrics{},
		PanicHandler:    &DefaultPanicHandler{},
		HistoryCapacity: defaultTaskHistoryCapacity,
	}
}

const defaultQueueName = "simpleq"

func (c *QueueConfig) withDefaults() QueueConfig {
	out := *DefaultQueueConfig()
	if c == nil {
		return out
	}
	if c.Name != "" {
		out.Name = c.Name
	}
	if c.Context != nil {
		out.Context = c.Context
	}
	if c.Deferrer != nil {
		out.Deferrer = c.Deferrer
	}
	if c.Logger != nil {
		out.Logger = c.Logger
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.HistoryCapacity > 0 {
		out.HistoryCapacity = c.HistoryCapacity
	}
	return out
}
