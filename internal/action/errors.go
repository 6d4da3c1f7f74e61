package action

import (
	"fmt"
	"strings"

	"lattice/internal/task"
)

// BlockedError indicates a task has incomplete dependencies. Recoverable:
// the caller may retry with force.
type BlockedError struct {
	ID       string
	Blocking []*task.Task
}

func (e BlockedError) Error() string {
	titles := make([]string, len(e.Blocking))
	for i, t := range e.Blocking {
		titles[i] = t.Title
	}
	return fmt.Sprintf("task %s is blocked by: %s", e.ID, strings.Join(titles, ", "))
}

// TimerRunningError indicates the task already has an open time record.
type TimerRunningError struct {
	TaskID string
}

func (e TimerRunningError) Error() string {
	return fmt.Sprintf("task %s already has a running timer", e.TaskID)
}

// NoTimerError indicates there is no open time record to stop.
type NoTimerError struct {
	TaskID string
}

func (e NoTimerError) Error() string {
	return fmt.Sprintf("task %s has no running timer", e.TaskID)
}

// CannotArchiveError indicates archiving is blocked until the listed
// issues are resolved. Not recoverable by confirmation.
type CannotArchiveError struct {
	Issues   []string
	Warnings []string
}

func (e CannotArchiveError) Error() string {
	return "cannot archive: " + strings.Join(e.Issues, "; ")
}

// ArchiveWarningError indicates archiving is allowed but flagged.
// Recoverable: the caller may re-invoke with explicit acknowledgement.
type ArchiveWarningError struct {
	Warnings []string
}

func (e ArchiveWarningError) Error() string {
	return "archive warning: " + strings.Join(e.Warnings, "; ")
}
