// Package simpleq provides a bounded-concurrency task queue for Go.
//
// Callers push payloads onto a Queue; the queue runs a single worker function
// over them with at most Concurrency() invocations in flight. Each push
// returns a Handle that settles with the worker's result or error, and the
// queue reports its own state changes through lifecycle hooks.
//
// # Quick Start
//
//	q, err := simpleq.New(func(ctx context.Context, url string) (int, error) {
//		return fetch(ctx, url)
//	}, 4)
//	if err != nil {
//		return err
//	}
//
//	h := q.Push("https://example.com")
//	status, err := h.Wait(ctx)
//
// # Key Concepts
//
// Admission: the first Push or Unshift of a burst schedules one deferred
// admission pass through the queue's Deferrer. The pass starts as many
// pending tasks as capacity allows. After that, every completion admits more
// work directly.
//
// Ordering: Push appends, Unshift places a task ahead of everything pending.
// Several Unshift calls therefore run in reverse order, ahead of the pushed
// tasks.
//
// Hooks: saturated fires when a start fills the last free slot, empty fires
// when the last pending task is taken, drain fires when a completion leaves
// the queue idle. Each hook has a callback form (OnSaturated, OnEmpty,
// OnDrain) that replaces the previous callback, and a signal form
// (SaturatedSignal, EmptySignal, DrainSignal) that keeps the previous
// callback and closes a channel the next time the hook fires.
//
// Pause, Resume, Kill: Pause stops new starts, Resume restarts admission in
// the calling goroutine, Kill drops every pending task and clears the drain
// callback. Running tasks are never interrupted.
//
// # Thread Safety
//
// All Queue methods are safe for concurrent use. Hooks and the error handler
// run with the queue's state lock released, so they may call back into the
// queue, but they must not wait on task handles or WaitDrain.
//
// # Example
//
//	q, _ := simpleq.New(worker, 2)
//	_ = q.OnError(func(err error, job Job) {
//		log.Printf("job %s failed: %v", job.Name, err)
//	})
//	for _, job := range jobs {
//		q.Push(job)
//	}
//	_ = q.WaitDrain(ctx)
//
// For more details, see https://github.com/Swind/go-simpleq
package simpleq
