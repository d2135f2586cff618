package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// TestEventLoop_RunsInOrder verifies callbacks run one at a time in posting order
// Given: A running loop
// When: Ten callbacks are posted, some of them posting more work
// Then: Every callback runs and the observed order matches posting order
func TestEventLoop_RunsInOrder(t *testing.T) {
	// Arrange
	loop := NewEventLoop()
	defer loop.Stop()
	var seen recorder[int]

	// Act
	for i := range 10 {
		loop.Post(func() {
			seen.Add(i)
			if i == 9 {
				loop.Post(func() { seen.Add(10) })
			}
		})
	}

	// Assert
	waitForCondition(t, time.Second, func() bool { return len(seen.Items()) == 11 })
	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := seen.Items(); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

// TestEventLoop_RecoversPanics verifies a panicking callback does not stop the loop
// Given: A loop with a test panic handler
// When: A callback panics and another is posted after it
// Then: The handler sees the panic and the second callback still runs
func TestEventLoop_RecoversPanics(t *testing.T) {
	// Arrange
	handler := NewTestPanicHandler()
	loop := NewEventLoopWithConfig("loop-under-test", handler)
	defer loop.Stop()
	ran := make(chan struct{})

	// Act
	loop.Post(func() { panic("bad callback") })
	loop.Post(func() { close(ran) })

	// Assert
	waitClosed(t, ran, time.Second, "second callback")
	calls := handler.GetCalls()
	if len(calls) != 1 || calls[0].Name != "loop-under-test" || calls[0].PanicInfo != "bad callback" {
		t.Fatalf("panic calls = %+v, want one from loop-under-test", calls)
	}
}

// TestEventLoop_WaitIdle verifies WaitIdle returns after earlier callbacks ran
func TestEventLoop_WaitIdle(t *testing.T) {
	loop := NewEventLoop()
	defer loop.Stop()

	done := false
	loop.Post(func() {
		time.Sleep(10 * time.Millisecond)
		done = true
	})

	if err := loop.WaitIdle(context.Background()); err != nil {
		t.Fatalf("WaitIdle() error = %v", err)
	}
	if !done {
		t.Fatal("WaitIdle returned before earlier callback finished")
	}
	if loop.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", loop.Len())
	}
}

// TestEventLoop_Stop verifies posting after Stop is dropped
// Given: A stopped loop
// When: Post and WaitIdle are called
// Then: Nothing runs and WaitIdle reports ErrLoopClosed
func TestEventLoop_Stop(t *testing.T) {
	// Arrange
	loop := NewEventLoop()

	// Act
	loop.Stop()
	loop.Stop()
	loop.Post(func() { t.Error("callback ran after Stop") })

	// Assert
	if !loop.IsClosed() {
		t.Fatal("IsClosed() = false after Stop")
	}
	if err := loop.WaitIdle(context.Background()); !errors.Is(err, ErrLoopClosed) {
		t.Fatalf("WaitIdle() = %v, want ErrLoopClosed", err)
	}
	if loop.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", loop.Len())
	}
}

// TestEventLoop_AsDeferrer verifies a queue admits work through the loop
func TestEventLoop_AsDeferrer(t *testing.T) {
	loop := NewEventLoop()
	defer loop.Stop()

	q, err := NewQueueWithConfig(func(ctx context.Context, s string) (int, error) {
		return len(s), nil
	}, 2, &QueueConfig{Deferrer: loop})
	if err != nil {
		t.Fatalf("NewQueueWithConfig() error = %v", err)
	}

	h := q.Push("hello")
	if got, err := h.Wait(waitCtx(t)); err != nil || got != 5 {
		t.Fatalf("Wait() = (%d, %v), want (5, nil)", got, err)
	}
}

// TestDeferFunc verifies the function adapter forwards callbacks
func TestDeferFunc(t *testing.T) {
	var forwarded int
	d := DeferFunc(func(fn func()) {
		forwarded++
		fn()
	})

	ran := false
	d.Defer(func() { ran = true })

	if forwarded != 1 || !ran {
		t.Fatalf("forwarded=%d ran=%v, want 1, true", forwarded, ran)
	}
}
