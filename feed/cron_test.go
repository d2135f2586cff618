package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Swind/go-simpleq/core"
)

// tickEvery fires at a fixed sub-second interval, which cron.Every rounds up.
type tickEvery time.Duration

func (d tickEvery) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

func newQueue(t *testing.T, seen *atomic.Int64) *core.Queue[int, int] {
	t.Helper()
	q, err := core.NewQueue(func(ctx context.Context, n int) (int, error) {
		seen.Add(int64(n))
		return n, nil
	}, 2)
	if err != nil {
		t.Fatalf("NewQueue failed: %v", err)
	}
	return q
}

// TestCron_SchedulePushesPayloads verifies each firing pushes one payload
// Given: A feed with a 10ms schedule producing the value 1
// When: The feed runs for a while and is stopped
// Then: The queue processed one task per firing
func TestCron_SchedulePushesPayloads(t *testing.T) {
	// Arrange
	var seen atomic.Int64
	q := newQueue(t, &seen)
	f := NewCron[int, int](q, nil)
	if _, err := f.Schedule("tick", tickEvery(10*time.Millisecond), func() int { return 1 }); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	// Act
	f.Start()
	deadline := time.Now().Add(2 * time.Second)
	for f.Fired() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	<-f.Stop().Done()

	// Assert
	fired := f.Fired()
	if fired < 3 {
		t.Fatalf("Fired() = %d, want at least 3", fired)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.WaitDrain(ctx); err != nil {
		t.Fatalf("WaitDrain failed: %v", err)
	}
	if seen.Load() != fired {
		t.Fatalf("processed = %d, want %d", seen.Load(), fired)
	}
}

// TestCron_EveryParsesSpecs verifies spec parsing and removal
func TestCron_EveryParsesSpecs(t *testing.T) {
	var seen atomic.Int64
	f := NewCron[int, int](newQueue(t, &seen), nil)

	for _, spec := range []string{"*/5 * * * *", "0 */5 * * * *", "@hourly", "@every 90s"} {
		if _, err := f.Every(spec, func() int { return 0 }); err != nil {
			t.Errorf("Every(%q) error = %v", spec, err)
		}
	}
	if f.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", f.Len())
	}

	if _, err := f.Every("not a schedule", func() int { return 0 }); err == nil {
		t.Fatal("Every(invalid) error = nil")
	}
	if _, err := f.Every("@hourly", nil); !errors.Is(err, core.ErrNilHandler) {
		t.Fatalf("Every(nil payload) error = %v, want ErrNilHandler", err)
	}

	id, _ := f.Every("@daily", func() int { return 0 })
	f.Remove(id)
	if f.Len() != 4 {
		t.Fatalf("Len() after Remove = %d, want 4", f.Len())
	}
}
