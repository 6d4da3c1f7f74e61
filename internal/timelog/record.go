// Package timelog holds time-tracking records. A task's timer is active
// iff an open record (no stop timestamp) exists for it.
package timelog

import (
	"time"

	"github.com/google/uuid"
)

// Record is a single tracked interval for a task.
type Record struct {
	ID        string     `json:"id" yaml:"id"`
	TaskID    string     `json:"task_id" yaml:"task_id"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty"`
	Note      string     `json:"note,omitempty" yaml:"note,omitempty"`
}

// Open creates a new running record for the task.
func Open(taskID string, now time.Time) *Record {
	return &Record{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		StartedAt: now,
	}
}

// IsOpen reports whether the record is still running.
func (r *Record) IsOpen() bool {
	return r.StoppedAt == nil
}

// Stop closes the record at the given time. Stopping an already closed
// record is a no-op.
func (r *Record) Stop(now time.Time) {
	if r.StoppedAt != nil {
		return
	}
	ts := now
	r.StoppedAt = &ts
}

// Duration returns the tracked time, using now for open records.
func (r *Record) Duration(now time.Time) time.Duration {
	end := now
	if r.StoppedAt != nil {
		end = *r.StoppedAt
	}
	return end.Sub(r.StartedAt)
}

// FindOpen returns the open record for a task, or nil.
func FindOpen(records []*Record, taskID string) *Record {
	for _, r := range records {
		if r.TaskID == taskID && r.IsOpen() {
			return r
		}
	}
	return nil
}
