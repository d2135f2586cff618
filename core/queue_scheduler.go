package core

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Queue runs a worker over enqueued payloads with at most Concurrency()
// invocations in flight.
//
// State is guarded by mu. Admission passes and the bookkeeping half of a
// completion additionally hold dispatchMu, so hooks fire in a single,
// well-defined order. The error handler and handle settlement run before a
// completion takes dispatchMu. Hooks, the error handler and the worker all
// run with mu released: they may read status, Push, Unshift, Pause, Resume,
// Kill, SetConcurrency or re-register hooks. Neither may block on WaitDrain:
// drain cannot fire while the calling completion or pass is unfinished.
type Queue[T, R any] struct {
	worker Worker[T, R]

	name         string
	ctx          context.Context
	deferrer     Deferrer
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler
	history      *executionHistory

	mu          sync.Mutex
	concurrency int
	pending     *pendingList[envelope[T, R]]
	running     int
	paused      bool
	scheduled   bool
	hooks       [hookCount]func()
	onError     ErrorHandler[T]

	completed  int64
	failed     int64
	discarded  int64
	lastTaskAt time.Time

	dispatchMu sync.Mutex
	hookDepth  atomic.Int32 // hooks currently running under dispatchMu
}

// NewQueue creates a queue with the default configuration.
func NewQueue[T, R any](worker Worker[T, R], concurrency int) (*Queue[T, R], error) {
	return NewQueueWithConfig(worker, concurrency, DefaultQueueConfig())
}

// NewQueueWithConfig creates a queue. Nil config fields take their defaults.
func NewQueueWithConfig[T, R any](worker Worker[T, R], concurrency int, config *QueueConfig) (*Queue[T, R], error) {
	if worker == nil {
		return nil, ErrNilWorker
	}
	if concurrency <= 0 {
		return nil, invalidConcurrency(concurrency)
	}

	cfg := config.withDefaults()
	return &Queue[T, R]{
		worker:       worker,
		name:         cfg.Name,
		ctx:          cfg.Context,
		deferrer:     cfg.Deferrer,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		panicHandler: cfg.PanicHandler,
		history:      newExecutionHistory(cfg.HistoryCapacity),
		concurrency:  concurrency,
		pending:      newPendingList[envelope[T, R]](),
	}, nil
}

// =============================================================================
// Status
// =============================================================================

// Name returns the queue name used in logs and metrics.
func (q *Queue[T, R]) Name() string {
	return q.name
}

// Concurrency returns the current concurrency limit.
func (q *Queue[T, R]) Concurrency() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.concurrency
}

// Running returns the number of tasks whose worker has not returned yet.
func (q *Queue[T, R]) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Length returns the number of tasks waiting to start.
func (q *Queue[T, R]) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Paused reports whether dispatch is paused.
func (q *Queue[T, R]) Paused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// Idle reports whether nothing is running and nothing is pending.
func (q *Queue[T, R]) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.idleLocked()
}

func (q *Queue[T, R]) idleLocked() bool {
	return q.running == 0 && q.pending.IsEmpty()
}

// Stats returns a consistent snapshot of the queue state and counters.
func (q *Queue[T, R]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Name:        q.name,
		Concurrency: q.concurrency,
		Pending:     q.pending.Len(),
		Running:     q.running,
		Paused:      q.paused,
		Idle:        q.idleLocked(),
		Completed:   q.completed,
		Failed:      q.failed,
		Discarded:   q.discarded,
		LastTaskAt:  q.lastTaskAt,
	}
}

// RecentTasks returns finished task records in newest-first order.
func (q *Queue[T, R]) RecentTasks(limit int) []TaskExecutionRecord {
	return q.history.Recent(limit)
}

// LastTask returns the most recently finished task, if any.
func (q *Queue[T, R]) LastTask() (TaskExecutionRecord, bool) {
	return q.history.Last()
}

// =============================================================================
// Mutators
// =============================================================================

// Push appends payload to the pending tasks and returns its handle.
func (q *Queue[T, R]) Push(payload T) *Handle[R] {
	return q.enqueue(payload, false)
}

// Unshift puts payload ahead of every pending task and returns its handle.
func (q *Queue[T, R]) Unshift(payload T) *Handle[R] {
	return q.enqueue(payload, true)
}

func (q *Queue[T, R]) enqueue(payload T, front bool) *Handle[R] {
	env := newEnvelope[T, R](payload)

	q.mu.Lock()
	if front {
		q.pending.PushFront(env)
	} else {
		q.pending.PushBack(env)
	}
	pending, running := q.pending.Len(), q.running
	schedule := q.markScheduledLocked()
	q.mu.Unlock()

	q.logger.Debug("task enqueued",
		F("queue", q.name), F("task_id", env.id.String()), F("front", front), F("pending", pending))
	q.metrics.RecordQueueDepth(q.name, pending, running)

	if schedule {
		q.deferrer.Defer(q.deferredSchedule)
	}
	return env.handle
}

// SetConcurrency changes the concurrency limit. Running tasks are never
// preempted; when the limit drops below Running() no task starts until
// enough of them finish.
func (q *Queue[T, R]) SetConcurrency(n int) error {
	if n <= 0 {
		return invalidConcurrency(n)
	}

	q.mu.Lock()
	prev := q.concurrency
	q.concurrency = n
	schedule := n > prev && !q.paused && !q.pending.IsEmpty() && q.markScheduledLocked()
	q.mu.Unlock()

	if prev != n {
		q.logger.Info("concurrency changed", F("queue", q.name), F("from", prev), F("to", n))
	}
	if schedule {
		q.deferrer.Defer(q.deferredSchedule)
	}
	return nil
}

// Pause stops new tasks from starting. Running tasks are not affected.
func (q *Queue[T, R]) Pause() {
	q.mu.Lock()
	already := q.paused
	q.paused = true
	q.mu.Unlock()

	if !already {
		q.logger.Info("queue paused", F("queue", q.name))
	}
}

// Resume clears the pause flag and runs an admission pass in the calling
// goroutine before returning, waiting for any admission pass or completion
// in progress. It does nothing if the queue is not paused.
//
// Called from a hook, the pass is deferred instead, since the goroutine
// firing the hook already holds the dispatch lock.
func (q *Queue[T, R]) Resume() {
	q.mu.Lock()
	if !q.paused {
		q.mu.Unlock()
		return
	}
	q.paused = false
	q.mu.Unlock()

	q.logger.Info("queue resumed", F("queue", q.name))

	if q.hookDepth.Load() == 0 {
		q.dispatchMu.Lock()
		defer q.dispatchMu.Unlock()
		q.tryScheduleInternal()
		return
	}
	if q.dispatchMu.TryLock() {
		defer q.dispatchMu.Unlock()
		q.tryScheduleInternal()
		return
	}

	q.mu.Lock()
	schedule := q.markScheduledLocked()
	q.mu.Unlock()
	if schedule {
		q.deferrer.Defer(q.deferredSchedule)
	}
}

// Kill discards every pending task and resets the drain hook to a no-op.
// Running tasks finish normally and still fire drain if a callback is
// registered afterwards. Handles of discarded tasks never settle, and
// signals from DrainSignal obtained before Kill are orphaned.
func (q *Queue[T, R]) Kill() {
	q.mu.Lock()
	n := q.pending.Clear()
	q.discarded += int64(n)
	q.hooks[HookDrain] = nil
	running := q.running
	q.mu.Unlock()

	q.logger.Info("queue killed", F("queue", q.name), F("discarded", n), F("running", running))
	q.metrics.RecordTasksDiscarded(q.name, n)
	q.metrics.RecordQueueDepth(q.name, 0, running)
}

// =============================================================================
// Hook registration
// =============================================================================

// OnSaturated registers fn as the saturated callback, replacing any other.
func (q *Queue[T, R]) OnSaturated(fn func()) error {
	return q.setHook(HookSaturated, fn)
}

// OnEmpty registers fn as the empty callback, replacing any other.
func (q *Queue[T, R]) OnEmpty(fn func()) error {
	return q.setHook(HookEmpty, fn)
}

// OnDrain registers fn as the drain callback, replacing any other.
func (q *Queue[T, R]) OnDrain(fn func()) error {
	return q.setHook(HookDrain, fn)
}

// SaturatedSignal returns a channel closed the next time saturated fires.
// The currently registered callback keeps running before the channel closes.
func (q *Queue[T, R]) SaturatedSignal() <-chan struct{} {
	return q.signal(HookSaturated)
}

// EmptySignal returns a channel closed the next time empty fires.
// The currently registered callback keeps running before the channel closes.
func (q *Queue[T, R]) EmptySignal() <-chan struct{} {
	return q.signal(HookEmpty)
}

// DrainSignal returns a channel closed the next time drain fires.
// The currently registered callback keeps running before the channel closes.
func (q *Queue[T, R]) DrainSignal() <-chan struct{} {
	return q.signal(HookDrain)
}

// WaitDrain returns nil at once if the queue is idle, otherwise blocks until
// the next drain or until ctx is done.
func (q *Queue[T, R]) WaitDrain(ctx context.Context) error {
	q.mu.Lock()
	if q.idleLocked() {
		q.mu.Unlock()
		return nil
	}
	ch := q.signalLocked(HookDrain)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnError registers fn to observe task failures. It runs before the failing
// task's handle is rejected and does not replace that rejection. With
// concurrency above one, failures that finish together may reach fn from
// several goroutines at once.
func (q *Queue[T, R]) OnError(fn ErrorHandler[T]) error {
	if fn == nil {
		return ErrNilHandler
	}
	q.mu.Lock()
	q.onError = fn
	q.mu.Unlock()
	return nil
}

func (q *Queue[T, R]) setHook(hook Hook, fn func()) error {
	if fn == nil {
		return ErrNilHandler
	}
	q.mu.Lock()
	q.hooks[hook] = fn
	q.mu.Unlock()
	return nil
}

func (q *Queue[T, R]) signal(hook Hook) <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.signalLocked(hook)
}

func (q *Queue[T, R]) signalLocked(hook Hook) <-chan struct{} {
	ch := make(chan struct{})
	q.hooks[hook] = chainSignal(q.hooks[hook], ch)
	return ch
}

// fire runs the callback registered for hook at the moment of firing.
// Panics are not recovered.
func (q *Queue[T, R]) fire(hook Hook) {
	q.mu.Lock()
	fn := q.hooks[hook]
	q.mu.Unlock()

	q.metrics.RecordHookFired(q.name, hook)
	if fn != nil {
		q.hookDepth.Add(1)
		defer q.hookDepth.Add(-1)
		fn()
	}
}

// =============================================================================
// Admission and completion
// =============================================================================

// markScheduledLocked claims the single deferred admission pass. It reports
// whether the caller must hand deferredSchedule to the Deferrer.
func (q *Queue[T, R]) markScheduledLocked() bool {
	if q.scheduled {
		return false
	}
	q.scheduled = true
	return true
}

func (q *Queue[T, R]) deferredSchedule() {
	q.mu.Lock()
	q.scheduled = false
	q.mu.Unlock()

	q.dispatchMu.Lock()
	defer q.dispatchMu.Unlock()
	q.tryScheduleInternal()
}

// tryScheduleInternal starts pending tasks while capacity allows.
// IMPORTANT: the caller must hold dispatchMu.
func (q *Queue[T, R]) tryScheduleInternal() {
	for {
		q.mu.Lock()
		if q.paused || q.running >= q.concurrency || q.pending.IsEmpty() {
			q.mu.Unlock()
			return
		}
		env, _ := q.pending.PopFront()
		q.running++
		becameEmpty := q.pending.IsEmpty()
		becameSaturated := q.running == q.concurrency
		pending, running := q.pending.Len(), q.running
		q.mu.Unlock()

		q.metrics.RecordQueueDepth(q.name, pending, running)
		q.startTask(env, becameEmpty, becameSaturated)
	}
}

// startTask fires the start-time hooks and then launches the worker.
// The worker is launched even if a hook panics, so running stays accurate.
func (q *Queue[T, R]) startTask(env envelope[T, R], becameEmpty, becameSaturated bool) {
	startedAt := time.Now()
	defer q.launch(env, startedAt)

	q.logger.Debug("task started", F("queue", q.name), F("task_id", env.id.String()))
	q.metrics.RecordTaskWait(q.name, startedAt.Sub(env.enqueuedAt))

	if becameEmpty {
		q.fire(HookEmpty)
	}
	if becameSaturated {
		q.fire(HookSaturated)
	}
}

func (q *Queue[T, R]) launch(env envelope[T, R], startedAt time.Time) {
	go q.runTask(env, startedAt)
}

func (q *Queue[T, R]) runTask(env envelope[T, R], startedAt time.Time) {
	result, err, panicked := q.invoke(env)
	q.onTaskComplete(env, result, err, panicked, startedAt, time.Now())
}

// invoke calls the worker, converting a panic into a *PanicError.
func (q *Queue[T, R]) invoke(env envelope[T, R]) (result R, err error, panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			q.panicHandler.HandlePanic(q.ctx, q.name, rec, stack)
			q.metrics.RecordTaskPanic(q.name, rec)
			q.logger.Error("worker panicked",
				F("queue", q.name), F("task_id", env.id.String()), F("panic", rec))
			err = &PanicError{Value: rec, Stack: stack}
			panicked = true
		}
	}()
	result, err = q.worker(q.ctx, env.payload)
	return result, err, false
}

// onTaskComplete settles the handle, releases the slot, and either fires
// drain or admits more work. The error handler and settlement only touch
// env, so they run before dispatchMu is taken and cannot hold up Resume.
func (q *Queue[T, R]) onTaskComplete(env envelope[T, R], result R, err error, panicked bool, startedAt, finishedAt time.Time) {
	if err != nil {
		q.mu.Lock()
		onError := q.onError
		q.mu.Unlock()

		if !panicked {
			q.logger.Warn("task failed",
				F("queue", q.name), F("task_id", env.id.String()), F("error", err))
		}
		if onError != nil {
			onError(err, env.payload)
		}
		env.handle.reject(err)
	} else {
		env.handle.resolve(result)
	}

	q.dispatchMu.Lock()
	defer q.dispatchMu.Unlock()

	record := TaskExecutionRecord{
		TaskID:     env.id,
		QueueName:  q.name,
		EnqueuedAt: env.enqueuedAt,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   finishedAt.Sub(startedAt),
		Failed:     err != nil,
		Panicked:   panicked,
	}
	if err != nil {
		record.Error = err.Error()
	}
	q.history.Add(record)
	q.metrics.RecordTaskDuration(q.name, record.Duration, record.Failed)

	q.mu.Lock()
	q.running--
	if err != nil {
		q.failed++
	} else {
		q.completed++
	}
	q.lastTaskAt = finishedAt
	idle := q.idleLocked()
	pending, running := q.pending.Len(), q.running
	q.mu.Unlock()

	q.metrics.RecordQueueDepth(q.name, pending, running)
	q.logger.Debug("task finished",
		F("queue", q.name), F("task_id", env.id.String()), F("duration", record.Duration), F("failed", record.Failed))

	if idle {
		q.fire(HookDrain)
		return
	}
	q.tryScheduleInternal()
}
