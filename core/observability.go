package core

import "time"

// TaskExecutionRecord captures a finished task.
type TaskExecutionRecord struct {
	TaskID     TaskID        `json:"task_id"`
	QueueName  string        `json:"queue"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Failed     bool          `json:"failed"`
	Panicked   bool          `json:"panicked"`
	Error      string        `json:"error,omitempty"`
}

// QueueStats represents runtime observability state for a queue.
type QueueStats struct {
	Name        string    `json:"name"`
	Concurrency int       `json:"concurrency"`
	Pending     int       `json:"pending"`
	Running     int       `json:"running"`
	Paused      bool      `json:"paused"`
	Idle        bool      `json:"idle"`
	Completed   int64     `json:"completed"`
	Failed      int64     `json:"failed"`
	Discarded   int64     `json:"discarded"`
	LastTaskAt  time.Time `json:"last_task_at"`
}
