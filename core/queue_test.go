package core

import (
	"testing"
)

// TestPendingList_FIFO verifies back insertion keeps dispatch order
// Given: A pending list with items pushed to the back
// When: Items are popped from the front
// Then: Items come out in insertion order
func TestPendingList_FIFO(t *testing.T) {
	// Arrange
	l := newPendingList[int]()
	for i := 1; i <= 5; i++ {
		l.PushBack(i)
	}

	// Act and Assert
	for want := 1; want <= 5; want++ {
		got, ok := l.PopFront()
		if !ok {
			t.Fatalf("PopFront() ok = false, want true (item %d)", want)
		}
		if got != want {
			t.Errorf("PopFront() = %d, want %d", got, want)
		}
	}
	if _, ok := l.PopFront(); ok {
		t.Error("PopFront() on empty list ok = true, want false")
	}
}

// TestPendingList_FrontInsertionOrder verifies front insertions form a LIFO ahead of the back FIFO
// Given: unshift(1), push(4), unshift(3), unshift(2)
// When: The list is drained
// Then: Order is 2, 3, 1, 4
func TestPendingList_FrontInsertionOrder(t *testing.T) {
	// Arrange
	l := newPendingList[int]()

	// Act
	l.PushFront(1)
	l.PushBack(4)
	l.PushFront(3)
	l.PushFront(2)

	// Assert
	want := []int{2, 3, 1, 4}
	if l.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", l.Len(), len(want))
	}
	for i := range want {
		got, ok := l.PopFront()
		if !ok || got != want[i] {
			t.Errorf("PopFront() #%d = (%d, %v), want (%d, true)", i, got, ok, want[i])
		}
	}
}

// TestPendingList_Clear verifies clear drops everything and reports the count
// Given: A list with 3 items
// When: Clear is called
// Then: Clear returns 3 and the list is empty
func TestPendingList_Clear(t *testing.T) {
	// Arrange
	l := newPendingList[string]()
	l.PushBack("a")
	l.PushBack("b")
	l.PushFront("c")

	// Act
	n := l.Clear()

	// Assert
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if !l.IsEmpty() {
		t.Errorf("IsEmpty() = false after Clear, Len() = %d", l.Len())
	}
}

// TestPendingList_Compact verifies capacity shrinks after a large drain
// Given: A list grown well past compactMinCap
// When: Most items are popped
// Then: Capacity shrinks and the remaining items keep their order
func TestPendingList_Compact(t *testing.T) {
	// Arrange
	l := newPendingList[int]()
	for i := range 1000 {
		l.PushBack(i)
	}
	grownCap := cap(l.items)

	// Act
	for range 990 {
		l.PopFront()
	}

	// Assert
	if cap(l.items) >= grownCap {
		t.Errorf("cap after drain = %d, want < %d", cap(l.items), grownCap)
	}
	for want := 990; want < 1000; want++ {
		got, ok := l.PopFront()
		if !ok || got != want {
			t.Fatalf("PopFront() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
}
