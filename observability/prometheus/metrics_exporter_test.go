package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-simpleq/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("simpleq", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration("queue-a", 250*time.Millisecond, true)
	exporter.RecordTaskWait("queue-a", 10*time.Millisecond)
	exporter.RecordTaskPanic("queue-a", "panic")
	exporter.RecordQueueDepth("queue-a", 7, 2)
	exporter.RecordTasksDiscarded("queue-a", 3)
	exporter.RecordTasksDiscarded("queue-a", 0)
	exporter.RecordHookFired("queue-a", core.HookDrain)

	panicTotal := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("queue-a"))
	if panicTotal != 1 {
		t.Fatalf("panic total = %v, want 1", panicTotal)
	}

	pending := testutil.ToFloat64(exporter.queuePending.WithLabelValues("queue-a"))
	running := testutil.ToFloat64(exporter.queueRunning.WithLabelValues("queue-a"))
	if pending != 7 || running != 2 {
		t.Fatalf("depth = (%v, %v), want (7, 2)", pending, running)
	}

	discarded := testutil.ToFloat64(exporter.tasksDiscardedTotal.WithLabelValues("queue-a"))
	if discarded != 3 {
		t.Fatalf("discarded total = %v, want 3", discarded)
	}

	drains := testutil.ToFloat64(exporter.hookFiredTotal.WithLabelValues("queue-a", "drain"))
	if drains != 1 {
		t.Fatalf("drain hook total = %v, want 1", drains)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("queue-a", "failure"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}

	waitCount, err := histogramSampleCount(exporter.taskWaitSeconds.WithLabelValues("queue-a"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if waitCount != 1 {
		t.Fatalf("wait sample count = %d, want 1", waitCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("simpleq", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("simpleq", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskPanic("queue-a", nil)
	second.RecordTaskPanic("queue-a", nil)

	got := testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("queue-a"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

func TestMetricsExporter_WiredToQueue(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	q, err := core.NewQueueWithConfig(func(ctx context.Context, n int) (int, error) {
		return n, nil
	}, 2, &core.QueueConfig{Name: "wired", Metrics: exporter})
	if err != nil {
		t.Fatalf("NewQueueWithConfig failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	drained := q.DrainSignal()
	q.Pause()
	for n := range 4 {
		q.Push(n)
	}
	q.Resume()
	select {
	case <-drained:
	case <-ctx.Done():
		t.Fatal("queue did not drain")
	}

	count, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("wired", "success"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if count != 4 {
		t.Fatalf("duration sample count = %d, want 4", count)
	}
	if got := testutil.ToFloat64(exporter.hookFiredTotal.WithLabelValues("wired", "drain")); got != 1 {
		t.Fatalf("drain hook total = %v, want 1", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
