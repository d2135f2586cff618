package core

import "sync"

const defaultTaskHistoryCapacity = 100

// executionHistory keeps the records of the last finished tasks of one queue,
// so RecentTasks and the admin API can show what ran without unbounded
// growth. Records are written by the completion path in finishing order.
type executionHistory struct {
	mu      sync.Mutex
	records []TaskExecutionRecord
	written uint64 // total records ever added; records[written%cap] is the next slot
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &executionHistory{records: make([]TaskExecutionRecord, capacity)}
}

// Add stores a finished task, overwriting the oldest one once full.
func (h *executionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[h.written%uint64(len(h.records))] = record
	h.written++
}

// Recent returns up to limit records, most recently finished first.
// limit <= 0 returns everything retained.
func (h *executionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.retainedLocked()
	if n == 0 {
		return nil
	}
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]TaskExecutionRecord, n)
	for i := range out {
		out[i] = h.records[(h.written-1-uint64(i))%uint64(len(h.records))]
	}
	return out
}

// Last returns the most recently finished task.
func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.written == 0 {
		return TaskExecutionRecord{}, false
	}
	return h.records[(h.written-1)%uint64(len(h.records))], true
}

func (h *executionHistory) retainedLocked() int {
	return int(min(h.written, uint64(len(h.records))))
}
