package core

import "sync"

// Hook names a queue lifecycle event.
type Hook int

const (
	// HookSaturated fires when a task start makes running equal concurrency.
	HookSaturated Hook = iota

	// HookEmpty fires when the last pending task is taken for execution.
	HookEmpty

	// HookDrain fires when a finishing task leaves the queue idle.
	HookDrain

	hookCount
)

func (h Hook) String() string {
	switch h {
	case HookSaturated:
		return "saturated"
	case HookEmpty:
		return "empty"
	case HookDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// chainSignal wraps prev so that it still runs, then closes ch the first
// time the wrapper is invoked.
func chainSignal(prev func(), ch chan struct{}) func() {
	var once sync.Once
	return func() {
		if prev != nil {
			prev()
		}
		once.Do(func() { close(ch) })
	}
}
