package core

import (
	"sync"
	"testing"
	"time"
)

// waitForCondition polls cond until it returns true or the timeout expires.
func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// waitClosed fails the test if ch is not closed within timeout.
func waitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("%s not signalled within %v", what, timeout)
	}
}

// manualDeferrer queues deferred callbacks until Flush runs them on the
// calling goroutine, so tests decide exactly when the deferred tick happens.
type manualDeferrer struct {
	mu    sync.Mutex
	fns   []func()
	calls int
}

func (d *manualDeferrer) Defer(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fns = append(d.fns, fn)
	d.calls++
}

// Flush runs queued callbacks, including ones queued while flushing, and
// returns how many ran.
func (d *manualDeferrer) Flush() int {
	ran := 0
	for {
		d.mu.Lock()
		if len(d.fns) == 0 {
			d.mu.Unlock()
			return ran
		}
		fn := d.fns[0]
		d.fns = d.fns[1:]
		d.mu.Unlock()

		fn()
		ran++
	}
}

// Calls returns how many callbacks were ever deferred.
func (d *manualDeferrer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Pending returns how many callbacks are waiting for Flush.
func (d *manualDeferrer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fns)
}

// gate blocks workers per payload until released.
type gate[K comparable] struct {
	mu sync.Mutex
	ch map[K]chan struct{}
}

func newGate[K comparable]() *gate[K] {
	return &gate[K]{ch: make(map[K]chan struct{})}
}

func (g *gate[K]) get(key K) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.ch[key]
	if !ok {
		c = make(chan struct{})
		g.ch[key] = c
	}
	return c
}

// Wait blocks until key is released.
func (g *gate[K]) Wait(key K) {
	<-g.get(key)
}

// Release unblocks every waiter on key.
func (g *gate[K]) Release(key K) {
	close(g.get(key))
}

// recorder is a goroutine-safe ordered log.
type recorder[E any] struct {
	mu    sync.Mutex
	items []E
}

func (r *recorder[E]) Add(item E) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
}

func (r *recorder[E]) Items() []E {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]E, len(r.items))
	copy(out, r.items)
	return out
}
