package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestHandle_ResolveOnce verifies a handle settles exactly once
// Given: A fresh handle
// When: It is resolved and then rejected
// Then: The first outcome wins
func TestHandle_ResolveOnce(t *testing.T) {
	// Arrange
	h := newHandle[string](GenerateTaskID())

	// Act
	h.resolve("ok")
	h.reject(errors.New("late"))

	// Assert
	res, err, ok := h.TryResult()
	if !ok {
		t.Fatal("TryResult() ok = false after resolve")
	}
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if res != "ok" {
		t.Fatalf("result = %q, want %q", res, "ok")
	}
}

// TestHandle_Reject verifies rejection carries the original error
// Given: A fresh handle
// When: It is rejected
// Then: Wait returns the same error value
func TestHandle_Reject(t *testing.T) {
	// Arrange
	h := newHandle[int](GenerateTaskID())
	want := errors.New("boom")

	// Act
	h.reject(want)

	// Assert
	_, err := h.Wait(context.Background())
	if !errors.Is(err, want) {
		t.Fatalf("Wait() err = %v, want %v", err, want)
	}
	select {
	case <-h.Done():
	default:
		t.Fatal("Done() not closed after reject")
	}
}

// TestHandle_WaitContextCancel verifies Wait gives up when its context ends
// Given: A handle that never settles
// When: Wait is called with a short deadline
// Then: Wait returns context.DeadlineExceeded
func TestHandle_WaitContextCancel(t *testing.T) {
	// Arrange
	h := newHandle[int](GenerateTaskID())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Act
	_, err := h.Wait(ctx)

	// Assert
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() err = %v, want %v", err, context.DeadlineExceeded)
	}
	if _, _, ok := h.TryResult(); ok {
		t.Fatal("TryResult() ok = true for unsettled handle")
	}
}
