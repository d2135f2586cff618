// Package feed produces queue payloads on a schedule.
package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Swind/go-simpleq/core"
	"github.com/robfig/cron/v3"
)

// Pusher is the part of a queue a feed needs. *core.Queue satisfies it.
type Pusher[T, R any] interface {
	Push(payload T) *core.Handle[R]
}

// DefaultParser accepts five or six field specs (seconds optional) and
// descriptors such as @hourly or @every 5m.
var DefaultParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Cron pushes one payload onto a queue every time a schedule fires.
type Cron[T, R any] struct {
	q      Pusher[T, R]
	logger core.Logger
	c      *cron.Cron

	mu      sync.Mutex
	entries map[cron.EntryID]string

	fired atomic.Int64
}

// NewCron creates a stopped Cron feeding q. Extra options are passed to
// cron.New after the default parser, so they may override it.
func NewCron[T, R any](q Pusher[T, R], logger core.Logger, opts ...cron.Option) *Cron[T, R] {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	all := append([]cron.Option{cron.WithParser(DefaultParser)}, opts...)
	return &Cron[T, R]{
		q:       q,
		logger:  logger,
		c:       cron.New(all...),
		entries: make(map[cron.EntryID]string),
	}
}

// Every parses spec and pushes payload() each time it fires.
func (f *Cron[T, R]) Every(spec string, payload func() T) (cron.EntryID, error) {
	if payload == nil {
		return 0, core.ErrNilHandler
	}
	id, err := f.c.AddFunc(spec, f.job(spec, payload))
	if err != nil {
		return 0, fmt.Errorf("feed: parse schedule %q: %w", spec, err)
	}
	f.track(id, spec)
	return id, nil
}

// Schedule registers an already-built schedule.
func (f *Cron[T, R]) Schedule(name string, schedule cron.Schedule, payload func() T) (cron.EntryID, error) {
	if payload == nil || schedule == nil {
		return 0, core.ErrNilHandler
	}
	id := f.c.Schedule(schedule, cron.FuncJob(f.job(name, payload)))
	f.track(id, name)
	return id, nil
}

// Remove stops a registered schedule.
func (f *Cron[T, R]) Remove(id cron.EntryID) {
	f.c.Remove(id)
	f.mu.Lock()
	delete(f.entries, id)
	f.mu.Unlock()
}

// Len returns the number of registered schedules.
func (f *Cron[T, R]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Fired returns how many payloads have been pushed.
func (f *Cron[T, R]) Fired() int64 {
	return f.fired.Load()
}

// Start runs the scheduler in its own goroutine.
func (f *Cron[T, R]) Start() {
	f.c.Start()
	f.logger.Info("feed started", core.F("schedules", f.Len()))
}

// Stop halts the scheduler. The returned context is done once any firing
// that was in progress has returned.
func (f *Cron[T, R]) Stop() context.Context {
	ctx := f.c.Stop()
	f.logger.Info("feed stopped", core.F("fired", f.fired.Load()))
	return ctx
}

func (f *Cron[T, R]) track(id cron.EntryID, name string) {
	f.mu.Lock()
	f.entries[id] = name
	f.mu.Unlock()
}

func (f *Cron[T, R]) job(name string, payload func() T) func() {
	return func() {
		h := f.q.Push(payload())
		f.fired.Add(1)
		f.logger.Debug("feed fired", core.F("schedule", name), core.F("task_id", h.ID().String()))
	}
}
