package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-simpleq/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
	WaitBuckets     []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskWaitSeconds     *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	tasksDiscardedTotal *prom.CounterVec
	hookFiredTotal      *prom.CounterVec
	queuePending        *prom.GaugeVec
	queueRunning        *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "simpleq"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	durationBuckets := opts.DurationBuckets
	if len(durationBuckets) == 0 {
		durationBuckets = prom.DefBuckets
	}
	waitBuckets := opts.WaitBuckets
	if len(waitBuckets) == 0 {
		waitBuckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Worker execution duration in seconds.",
		Buckets:   durationBuckets,
	}, []string{"queue", "outcome"})
	waitVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_wait_seconds",
		Help:      "Time tasks spent pending before they started, in seconds.",
		Buckets:   waitBuckets,
	}, []string{"queue"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of worker panics.",
	}, []string{"queue"})
	discardedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_discarded_total",
		Help:      "Total number of pending tasks dropped by kill.",
	}, []string{"queue"})
	hookVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "hook_fired_total",
		Help:      "Total number of lifecycle hook firings.",
	}, []string{"queue", "hook"})
	pendingVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_pending",
		Help:      "Current number of pending tasks.",
	}, []string{"queue"})
	runningVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_running",
		Help:      "Current number of running tasks.",
	}, []string{"queue"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if waitVec, err = registerCollector(reg, waitVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if discardedVec, err = registerCollector(reg, discardedVec); err != nil {
		return nil, err
	}
	if hookVec, err = registerCollector(reg, hookVec); err != nil {
		return nil, err
	}
	if pendingVec, err = registerCollector(reg, pendingVec); err != nil {
		return nil, err
	}
	if runningVec, err = registerCollector(reg, runningVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskWaitSeconds:     waitVec,
		taskPanicTotal:      panicVec,
		tasksDiscardedTotal: discardedVec,
		hookFiredTotal:      hookVec,
		queuePending:        pendingVec,
		queueRunning:        runningVec,
	}, nil
}

// RecordTaskDuration records worker execution duration.
func (m *MetricsExporter) RecordTaskDuration(queueName string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(queueName, "unknown"), outcomeLabel(failed)).Observe(duration.Seconds())
}

// RecordTaskWait records how long a task was pending.
func (m *MetricsExporter) RecordTaskWait(queueName string, wait time.Duration) {
	if m == nil {
		return
	}
	m.taskWaitSeconds.WithLabelValues(normalizeLabel(queueName, "unknown")).Observe(wait.Seconds())
}

// RecordTaskPanic records worker panic events.
func (m *MetricsExporter) RecordTaskPanic(queueName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(queueName, "unknown")).Inc()
}

// RecordQueueDepth records pending and running counts.
func (m *MetricsExporter) RecordQueueDepth(queueName string, pending int, running int) {
	if m == nil {
		return
	}
	name := normalizeLabel(queueName, "unknown")
	m.queuePending.WithLabelValues(name).Set(float64(pending))
	m.queueRunning.WithLabelValues(name).Set(float64(running))
}

// RecordTasksDiscarded records pending tasks dropped by kill.
func (m *MetricsExporter) RecordTasksDiscarded(queueName string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.tasksDiscardedTotal.WithLabelValues(normalizeLabel(queueName, "unknown")).Add(float64(count))
}

// RecordHookFired records lifecycle hook firings.
func (m *MetricsExporter) RecordHookFired(queueName string, hook core.Hook) {
	if m == nil {
		return
	}
	m.hookFiredTotal.WithLabelValues(normalizeLabel(queueName, "unknown"), hook.String()).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func outcomeLabel(failed bool) string {
	if failed {
		return "failure"
	}
	return "success"
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
