package core

// Deferrer runs a callback after the caller's current burst of work.
//
// The queue uses it to schedule its first admission pass after a Push or
// Unshift, so a burst of enqueues is admitted in one pass and hooks
// registered right after enqueueing can be in place before tasks start.
// Panics raised by the callback belong to the Deferrer's execution context.
type Deferrer interface {
	Defer(fn func())
}

// DeferFunc adapts an ordinary function to the Deferrer interface, for
// hosts that already own a loop or ready queue.
type DeferFunc func(fn func())

// Defer calls f(fn).
func (f DeferFunc) Defer(fn func()) {
	f(fn)
}

// GoDeferrer runs each callback on a fresh goroutine.
// It is the default Deferrer. The callback may start before the enqueuing
// goroutine returns; see QueueConfig.Deferrer.
type GoDeferrer struct{}

// Defer starts fn on a new goroutine.
func (GoDeferrer) Defer(fn func()) {
	go fn()
}
