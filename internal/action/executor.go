package action

import (
	"slices"
	"time"

	"lattice/internal/archive"
	"lattice/internal/graph"
	"lattice/internal/storage"
	"lattice/internal/task"
	"lattice/internal/timelog"
)

// Executor applies one action's effect to task state. Every guard failure
// is returned as a typed error; a failed precondition never mutates.
// Mutations are committed through the store with one Save per call.
type Executor struct {
	store    storage.Store
	archiver *archive.Archiver
	now      func() time.Time
	hook     func(t *task.Task)
}

// NewExecutor creates an Executor over the given store.
func NewExecutor(store storage.Store) *Executor {
	return &Executor{
		store:    store,
		archiver: archive.NewArchiver(store),
		now:      time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (e *Executor) SetClock(now func() time.Time) {
	e.now = now
	e.archiver.SetClock(now)
}

// SetHook installs the post-cascade hook. It fires exactly once per
// cascade operation (complete/uncomplete with subtasks, archive,
// unarchive), after the whole cascade, never per node.
func (e *Executor) SetHook(fn func(t *task.Task)) {
	e.hook = fn
}

func (e *Executor) fireHook(t *task.Task) {
	if e.hook != nil {
		e.hook(t)
	}
}

// Complete marks a task completed. Without force it fails with
// BlockedError while any dependency (direct or via subtasks) is
// incomplete.
func (e *Executor) Complete(t *task.Task, g *graph.Graph, force bool) error {
	if !force && g.IsBlocked(t.ID) {
		return BlockedError{ID: t.ID, Blocking: g.BlockingDependencies(t.ID)}
	}
	t.Complete(e.now())
	return e.store.Save()
}

// Uncomplete clears the completion timestamp. No guard.
func (e *Executor) Uncomplete(t *task.Task) error {
	t.Uncomplete()
	return e.store.Save()
}

// CompleteWithSubtasks completes the task and every incomplete subtask at
// any depth. Each node is guarded by its own direct blocking check;
// blocked nodes are skipped and the first such failure is reported after
// the rest of the cascade has been applied. The post-cascade hook fires
// once for the whole call.
func (e *Executor) CompleteWithSubtasks(t *task.Task, g *graph.Graph, force bool) error {
	var firstBlocked error

	completeNode := func(n *task.Task) {
		if n.IsCompleted() {
			return
		}
		if blockers := g.BlockingDependencies(n.ID); len(blockers) > 0 && !force {
			if firstBlocked == nil {
				firstBlocked = BlockedError{ID: n.ID, Blocking: blockers}
			}
			return
		}
		n.Complete(e.now())
	}

	completeNode(t)
	for _, id := range g.Descendants(t.ID) {
		if sub := g.Get(id); sub != nil {
			completeNode(sub)
		}
	}

	e.fireHook(t)
	if err := e.store.Save(); err != nil {
		return err
	}
	return firstBlocked
}

// UncompleteWithSubtasks clears completion on the task and every
// completed subtask. One hook after the cascade.
func (e *Executor) UncompleteWithSubtasks(t *task.Task, g *graph.Graph) error {
	t.Uncomplete()
	for _, id := range g.Descendants(t.ID) {
		if sub := g.Get(id); sub != nil && sub.IsCompleted() {
			sub.Uncomplete()
		}
	}
	e.fireHook(t)
	return e.store.Save()
}

// StartTimer opens a time record for the task. Fails with BlockedError
// (bypassable with force) or TimerRunningError.
func (e *Executor) StartTimer(t *task.Task, g *graph.Graph, force bool) (*timelog.Record, error) {
	if !force && g.IsBlocked(t.ID) {
		return nil, BlockedError{ID: t.ID, Blocking: g.BlockingDependencies(t.ID)}
	}

	records, err := e.store.Records()
	if err != nil {
		return nil, err
	}
	if open := timelog.FindOpen(records, t.ID); open != nil {
		return nil, TimerRunningError{TaskID: t.ID}
	}

	rec := timelog.Open(t.ID, e.now())
	if err := e.store.InsertRecord(rec); err != nil {
		return nil, err
	}
	return rec, e.store.Save()
}

// StopTimer closes the open time record. Fails with NoTimerError when
// none is open.
func (e *Executor) StopTimer(t *task.Task) (*timelog.Record, error) {
	records, err := e.store.Records()
	if err != nil {
		return nil, err
	}
	open := timelog.FindOpen(records, t.ID)
	if open == nil {
		return nil, NoTimerError{TaskID: t.ID}
	}
	open.Stop(e.now())
	return open, e.store.Save()
}

// Delete removes the task and its owned subtree. Every inbound and
// outbound reference is severed before the store removal is requested, so
// no dangling reference outlives the task.
func (e *Executor) Delete(t *task.Task, g *graph.Graph) error {
	doomed := map[string]bool{t.ID: true}
	for _, id := range g.Descendants(t.ID) {
		doomed[id] = true
	}

	for _, other := range g.All() {
		if doomed[other.ID] {
			continue
		}
		other.DependsOn = slices.DeleteFunc(other.DependsOn, func(id string) bool {
			return doomed[id]
		})
		other.SubtaskIDs = slices.DeleteFunc(other.SubtaskIDs, func(id string) bool {
			return doomed[id]
		})
		if doomed[other.ParentID] {
			other.ParentID = ""
		}
	}

	// Sever the doomed tasks' own references, then remove them.
	for id := range doomed {
		victim := g.Get(id)
		if victim != nil {
			victim.DependsOn = nil
			victim.SubtaskIDs = nil
			victim.ParentID = ""
			victim.ProjectID = ""
		}
		if err := e.store.DeleteRecordsFor(id); err != nil {
			return err
		}
		if err := e.store.Delete(id); err != nil {
			return err
		}
	}
	return e.store.Save()
}

// Duplicate creates a copy of the task's scalar fields with completion
// reset, inserted as a sibling ordered immediately after the original.
func (e *Executor) Duplicate(t *task.Task, g *graph.Graph) (*task.Task, error) {
	dup := task.New(t.Title, t.Priority, e.now(), func(id string) bool {
		return g.Get(id) != nil
	})
	dup.Notes = t.Notes
	dup.DueDate = t.DueDate
	dup.EstimateMinutes = t.EstimateMinutes
	dup.ProjectID = t.ProjectID
	dup.ParentID = t.ParentID
	dup.Order = t.Order + 1

	// Shift later siblings to keep the copy immediately after the original.
	for _, other := range g.All() {
		if other.ID != t.ID && other.ParentID == t.ParentID && other.Order > t.Order {
			other.Order++
		}
	}
	if parent := g.Get(t.ParentID); parent != nil {
		idx := slices.Index(parent.SubtaskIDs, t.ID)
		if idx < 0 {
			parent.SubtaskIDs = append(parent.SubtaskIDs, dup.ID)
		} else {
			parent.SubtaskIDs = slices.Insert(parent.SubtaskIDs, idx+1, dup.ID)
		}
	}

	if err := e.store.Insert(dup); err != nil {
		return nil, err
	}
	return dup, e.store.Save()
}

// SetPriority sets the priority. No guard.
func (e *Executor) SetPriority(t *task.Task, p task.Priority) error {
	t.Priority = p
	return e.store.Save()
}

// MoveToProject reassigns the task to a project. No guard.
func (e *Executor) MoveToProject(t *task.Task, projectID string) error {
	t.ProjectID = projectID
	return e.store.Save()
}

// Archive validates and applies the archive cascade. force means archive
// warnings have been explicitly accepted; blocking issues are never
// bypassable.
func (e *Executor) Archive(t *task.Task, g *graph.Graph, force bool) error {
	res := archive.Validate(t, g)
	if !res.CanArchive {
		return CannotArchiveError{Issues: res.BlockingIssues, Warnings: res.Warnings}
	}
	if len(res.Warnings) > 0 && !force {
		return ArchiveWarningError{Warnings: res.Warnings}
	}
	if err := e.archiver.Archive(t, g); err != nil {
		return err
	}
	e.fireHook(t)
	return nil
}

// Unarchive clears archive state on the task and its subtree. No guard.
func (e *Executor) Unarchive(t *task.Task, g *graph.Graph) error {
	if err := e.archiver.Unarchive(t, g); err != nil {
		return err
	}
	e.fireHook(t)
	return nil
}

// AddDependency validates and adds a dependency edge. The validation and
// the mutation happen under the caller's critical section, so no
// concurrent insertion can produce a cycle neither check observed.
func (e *Executor) AddDependency(t *task.Task, g *graph.Graph, depID string) error {
	if err := g.ValidateDependency(t.ID, depID); err != nil {
		return err
	}
	t.DependsOn = append(t.DependsOn, depID)
	return e.store.Save()
}

// RemoveDependency removes a dependency edge if present.
func (e *Executor) RemoveDependency(t *task.Task, depID string) error {
	before := len(t.DependsOn)
	t.DependsOn = slices.DeleteFunc(t.DependsOn, func(id string) bool {
		return id == depID
	})
	if len(t.DependsOn) == before {
		return storage.TaskNotFoundError{ID: depID}
	}
	return e.store.Save()
}

// CreateTask creates a task, optionally as a subtask of parentID, and
// commits it. New subtasks are appended after their siblings.
func (e *Executor) CreateTask(title string, priority task.Priority, parentID string, g *graph.Graph) (*task.Task, error) {
	t := task.New(title, priority, e.now(), func(id string) bool {
		return g.Get(id) != nil
	})

	if parentID != "" {
		parent := g.Get(parentID)
		if parent == nil {
			return nil, storage.TaskNotFoundError{ID: parentID}
		}
		t.ParentID = parentID
		maxOrder := 0
		for _, sid := range parent.SubtaskIDs {
			if sub := g.Get(sid); sub != nil && sub.Order > maxOrder {
				maxOrder = sub.Order
			}
		}
		t.Order = maxOrder + 1
		parent.SubtaskIDs = append(parent.SubtaskIDs, t.ID)
	}

	if err := e.store.Insert(t); err != nil {
		return nil, err
	}
	return t, e.store.Save()
}

// CountIncompleteSubtasks counts incomplete subtasks at any depth.
func (e *Executor) CountIncompleteSubtasks(t *task.Task, g *graph.Graph) int {
	count := 0
	for _, id := range g.Descendants(t.ID) {
		if sub := g.Get(id); sub != nil && !sub.IsCompleted() {
			count++
		}
	}
	return count
}

// CountCompletedSubtasks counts completed subtasks at any depth.
func (e *Executor) CountCompletedSubtasks(t *task.Task, g *graph.Graph) int {
	count := 0
	for _, id := range g.Descendants(t.ID) {
		if sub := g.Get(id); sub != nil && sub.IsCompleted() {
			count++
		}
	}
	return count
}

// AreAllSubtasksComplete reports whether every subtask at any depth is
// completed. True for a task with no subtasks.
func (e *Executor) AreAllSubtasksComplete(t *task.Task, g *graph.Graph) bool {
	return e.CountIncompleteSubtasks(t, g) == 0
}
