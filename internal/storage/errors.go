package storage

import "fmt"

// NotInitializedError indicates the data directory doesn't exist yet.
type NotInitializedError struct{}

func (e NotInitializedError) Error() string {
	return "lattice not initialized: run 'lattice init' first"
}

// AlreadyInitializedError indicates the data directory already exists.
type AlreadyInitializedError struct{}

func (e AlreadyInitializedError) Error() string {
	return "lattice already initialized"
}

// TaskNotFoundError indicates the task ID doesn't match any stored task.
type TaskNotFoundError struct {
	ID string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.ID)
}

// NotInRepoError indicates the command was run outside a git repository.
type NotInRepoError struct{}

func (e NotInRepoError) Error() string {
	return "not in a git repository (lattice requires a project root)"
}

// SaveError wraps a failed persistence write. Mutations that hit it have
// been applied in memory but not durably committed.
type SaveError struct {
	Err error
}

func (e SaveError) Error() string {
	return fmt.Sprintf("save failed: %v", e.Err)
}

func (e SaveError) Unwrap() error {
	return e.Err
}
