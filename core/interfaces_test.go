package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Test PanicHandler
// =============================================================================

// TestPanicHandler is a mock panic handler for testing
type TestPanicHandler struct {
	mu    sync.Mutex
	calls []PanicCall
}

type PanicCall struct {
	Name      string
	PanicInfo any
}

func NewTestPanicHandler() *TestPanicHandler {
	return &TestPanicHandler{
		calls: make([]PanicCall, 0),
	}
}

func (h *TestPanicHandler) HandlePanic(ctx context.Context, name string, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.calls = append(h.calls, PanicCall{
		Name:      name,
		PanicInfo: panicInfo,
	})
}

func (h *TestPanicHandler) GetCalls() []PanicCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PanicCall, len(h.calls))
	copy(out, h.calls)
	return out
}

func (h *TestPanicHandler) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func TestDefaultPanicHandler(t *testing.T) {
	// Given: A DefaultPanicHandler
	handler := &DefaultPanicHandler{}

	// When: HandlePanic is called
	handler.HandlePanic(context.Background(), "test-queue", "test panic", []byte("stack trace"))

	// Then: No panic should occur (handler should not crash)
}

// =============================================================================
// Test Metrics
// =============================================================================

// TestMetrics is a mock metrics collector for testing
type TestMetrics struct {
	mu         sync.Mutex
	durations  []TaskDurationMetric
	waits      int
	panics     []any
	depths     []QueueDepthMetric
	discarded  int
	hooksFired []Hook
}

type TaskDurationMetric struct {
	QueueName string
	Duration  time.Duration
	Failed    bool
}

type QueueDepthMetric struct {
	QueueName string
	Pending   int
	Running   int
}

func NewTestMetrics() *TestMetrics {
	return &TestMetrics{}
}

func (m *TestMetrics) RecordTaskDuration(queueName string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, TaskDurationMetric{QueueName: queueName, Duration: duration, Failed: failed})
}

func (m *TestMetrics) RecordTaskWait(queueName string, wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits++
}

func (m *TestMetrics) RecordTaskPanic(queueName string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics = append(m.panics, panicInfo)
}

func (m *TestMetrics) RecordQueueDepth(queueName string, pending int, running int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depths = append(m.depths, QueueDepthMetric{QueueName: queueName, Pending: pending, Running: running})
}

func (m *TestMetrics) RecordTasksDiscarded(queueName string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded += count
}

func (m *TestMetrics) RecordHookFired(queueName string, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooksFired = append(m.hooksFired, hook)
}

func (m *TestMetrics) Durations() []TaskDurationMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TaskDurationMetric, len(m.durations))
	copy(out, m.durations)
	return out
}

func (m *TestMetrics) HookCount(hook Hook) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.hooksFired {
		if h == hook {
			n++
		}
	}
	return n
}

func (m *TestMetrics) Discarded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discarded
}

func (m *TestMetrics) PanicCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.panics)
}

func (m *TestMetrics) WaitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waits
}

func TestNilMetrics(t *testing.T) {
	// Given: A NilMetrics
	var m Metrics = &NilMetrics{}

	// When: every method is called
	m.RecordTaskDuration("q", time.Millisecond, false)
	m.RecordTaskWait("q", time.Millisecond)
	m.RecordTaskPanic("q", "p")
	m.RecordQueueDepth("q", 1, 1)
	m.RecordTasksDiscarded("q", 3)
	m.RecordHookFired("q", HookDrain)

	// Then: nothing happens
}

// =============================================================================
// Test QueueConfig
// =============================================================================

// TestQueueConfig_WithDefaults verifies nil and partial configs are completed
// Given: A nil config and a config with only Name and Metrics set
// When: withDefaults is applied
// Then: Unset fields take default implementations and set fields are kept
func TestQueueConfig_WithDefaults(t *testing.T) {
	// Act
	var nilCfg *QueueConfig
	def := nilCfg.withDefaults()

	// Assert
	if def.Name != defaultQueueName {
		t.Errorf("Name = %q, want %q", def.Name, defaultQueueName)
	}
	if def.Context == nil || def.Deferrer == nil || def.Logger == nil || def.Metrics == nil || def.PanicHandler == nil {
		t.Fatalf("withDefaults left nil fields: %+v", def)
	}
	if def.HistoryCapacity != defaultTaskHistoryCapacity {
		t.Errorf("HistoryCapacity = %d, want %d", def.HistoryCapacity, defaultTaskHistoryCapacity)
	}

	// Arrange
	metrics := NewTestMetrics()
	partial := &QueueConfig{Name: "custom", Metrics: metrics}

	// Act
	got := partial.withDefaults()

	// Assert
	if got.Name != "custom" {
		t.Errorf("Name = %q, want %q", got.Name, "custom")
	}
	if got.Metrics != Metrics(metrics) {
		t.Error("Metrics was replaced by the default")
	}
	if _, ok := got.Deferrer.(GoDeferrer); !ok {
		t.Errorf("Deferrer = %T, want GoDeferrer", got.Deferrer)
	}
}
