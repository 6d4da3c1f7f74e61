package graph

import "fmt"

// NotFoundError indicates an id with no task in the snapshot.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

// SelfDependencyError indicates a task depending on itself.
type SelfDependencyError struct {
	ID string
}

func (e SelfDependencyError) Error() string {
	return fmt.Sprintf("task %s cannot depend on itself", e.ID)
}

// AncestorDependencyError indicates a dependency on the task's own ancestor.
type AncestorDependencyError struct {
	From string
	To   string
}

func (e AncestorDependencyError) Error() string {
	return fmt.Sprintf("task %s cannot depend on its ancestor %s", e.From, e.To)
}

// DescendantDependencyError indicates a dependency on the task's own subtask.
type DescendantDependencyError struct {
	From string
	To   string
}

func (e DescendantDependencyError) Error() string {
	return fmt.Sprintf("task %s cannot depend on its subtask %s", e.From, e.To)
}

// DuplicateDependencyError indicates the edge already exists.
type DuplicateDependencyError struct {
	From string
	To   string
}

func (e DuplicateDependencyError) Error() string {
	return fmt.Sprintf("task %s already depends on %s", e.From, e.To)
}

// CycleError indicates adding a dependency would create a cycle.
type CycleError struct {
	From string
	To   string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("adding dependency %s -> %s would create a cycle", e.From, e.To)
}
