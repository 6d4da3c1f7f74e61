package task

import "time"

// Priority represents the importance level of a task.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityOrder returns the sort order for a priority (lower = higher priority).
func PriorityOrder(p Priority) int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// IsValidPriority checks if a priority string is valid.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Status is the display state computed from the completion, blocking and
// archive flags. Blocking lives in the graph, not on the task, so the
// blocked status is only produced when the caller has resolved it.
type Status string

const (
	StatusOpen      Status = "open"
	StatusBlocked   Status = "blocked"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// ComputeStatus derives the display status for a task.
func ComputeStatus(t *Task, blocked bool) Status {
	switch {
	case t.Archived:
		return StatusArchived
	case t.IsCompleted():
		return StatusCompleted
	case blocked:
		return StatusBlocked
	default:
		return StatusOpen
	}
}

// Task is a tracked unit of work. Relationships are plain id references
// resolved through a snapshot of all tasks, never live pointers, so the
// tree/graph hybrid cannot form reference cycles structurally.
type Task struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Priority  Priority   `yaml:"priority"`
	CreatedAt time.Time  `yaml:"created_at"`
	DueDate   *time.Time `yaml:"due_date,omitempty"`

	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
	Archived    bool       `yaml:"archived,omitempty"`
	ArchivedAt  *time.Time `yaml:"archived_at,omitempty"`

	// Tree relation: at most one parent, ordered children.
	ParentID   string   `yaml:"parent,omitempty"`
	SubtaskIDs []string `yaml:"subtasks,omitempty"`
	Order      int      `yaml:"order"`

	// Graph relation: tasks that must complete before this one unblocks.
	DependsOn []string `yaml:"depends_on,omitempty"`

	ProjectID       string `yaml:"project,omitempty"`
	EstimateMinutes int    `yaml:"estimate_minutes,omitempty"`
	Notes           string `yaml:"-"` // Stored as markdown body, not frontmatter
}

// IsCompleted reports whether the task has a completion timestamp.
func (t *Task) IsCompleted() bool {
	return t.CompletedAt != nil
}

// IsSubtask reports whether the task has a parent.
func (t *Task) IsSubtask() bool {
	return t.ParentID != ""
}

// Complete stamps the task completed at the given time.
func (t *Task) Complete(now time.Time) {
	ts := now
	t.CompletedAt = &ts
}

// Uncomplete clears the completion timestamp.
func (t *Task) Uncomplete() {
	t.CompletedAt = nil
}

// New creates a task with no relationships. The exists func is consulted
// during ID generation to avoid collisions with tasks already in the store.
func New(title string, priority Priority, now time.Time, exists func(string) bool) *Task {
	return &Task{
		ID:        GenerateID(title, now, exists),
		Title:     title,
		Priority:  priority,
		CreatedAt: now,
	}
}
