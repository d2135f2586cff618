package core

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// EventLoop binds a dedicated goroutine that runs posted callbacks one at a
// time in posting order.
//
// It implements Deferrer, so a Queue configured with an EventLoop runs its
// deferred admission passes, and any hooks they fire, on that goroutine.
// Several queues may share one loop. A callback that panics is recovered and
// reported to the loop's PanicHandler; the loop keeps running.
//
// Posting never blocks, including from inside a callback running on the
// loop itself.
type EventLoop struct {
	mu      sync.Mutex
	pending []func()
	signal  chan struct{}

	// Lifecycle control
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	closed  atomic.Bool

	name         string
	panicHandler PanicHandler
}

// NewEventLoop creates and starts an EventLoop with the default panic handler.
func NewEventLoop() *EventLoop {
	return NewEventLoopWithConfig("event-loop", nil)
}

// NewEventLoopWithConfig creates and starts a named EventLoop. A nil handler
// selects DefaultPanicHandler.
func NewEventLoopWithConfig(name string, handler PanicHandler) *EventLoop {
	if handler == nil {
		handler = &DefaultPanicHandler{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &EventLoop{
		pending:      make([]func(), 0, defaultQueueCap),
		signal:       make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
		name:         name,
		panicHandler: handler,
	}

	go l.runLoop()

	return l
}

// Name returns the loop name used in panic reports.
func (l *EventLoop) Name() string {
	return l.name
}

// Post queues fn to run on the loop goroutine. Calls after Stop are dropped.
func (l *EventLoop) Post(fn func()) {
	if fn == nil || l.closed.Load() {
		return
	}

	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
		// A wakeup is already pending; runLoop drains everything queued.
	}
}

// Defer implements Deferrer.
func (l *EventLoop) Defer(fn func()) {
	l.Post(fn)
}

// Len returns the number of callbacks waiting to run.
func (l *EventLoop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// IsClosed returns true once Stop has been called.
func (l *EventLoop) IsClosed() bool {
	return l.closed.Load()
}

// Stop terminates the loop after the currently running callback returns.
// Callbacks still queued are discarded. Stop blocks until the loop goroutine
// exits, so it must not be called from a callback running on the loop.
func (l *EventLoop) Stop() {
	l.once.Do(func() {
		l.closed.Store(true)
		l.cancel()
		<-l.stopped

		l.mu.Lock()
		l.pending = nil
		l.mu.Unlock()
	})
}

// WaitIdle blocks until every callback posted before the call has run.
func (l *EventLoop) WaitIdle(ctx context.Context) error {
	if l.IsClosed() {
		return ErrLoopClosed
	}

	done := make(chan struct{})
	l.Post(func() { close(done) })

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrLoopClosed
	}
}

// runLoop occupies the dedicated goroutine.
func (l *EventLoop) runLoop() {
	defer close(l.stopped)

	for {
		select {
		case <-l.signal:
			for {
				fn, ok := l.next()
				if !ok {
					break
				}
				l.run(fn)
				if l.ctx.Err() != nil {
					return
				}
			}
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *EventLoop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, false
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn, true
}

func (l *EventLoop) run(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			l.panicHandler.HandlePanic(l.ctx, l.name, rec, debug.Stack())
		}
	}()
	fn()
}
