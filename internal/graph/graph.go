// Package graph answers dependency and blocking queries over a snapshot
// of all tasks. It never mutates; callers resolve a snapshot, build a
// Graph, and ask questions against that point-in-time view.
package graph

import (
	"slices"
	"sort"

	"lattice/internal/task"
)

// Graph indexes a task snapshot by id.
type Graph struct {
	tasks map[string]*task.Task
}

// New creates a Graph from a snapshot of tasks.
func New(tasks []*task.Task) *Graph {
	g := &Graph{
		tasks: make(map[string]*task.Task, len(tasks)),
	}
	for _, t := range tasks {
		g.tasks[t.ID] = t
	}
	return g
}

// Get returns a task by ID.
func (g *Graph) Get(id string) *task.Task {
	return g.tasks[id]
}

// Len returns the number of tasks in the snapshot.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// All returns every task in the snapshot, sorted by id for stable
// iteration.
func (g *Graph) All() []*task.Task {
	out := make([]*task.Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidateDependency checks whether a dependency edge from -> to may be
// added. It returns nil if the edge is legal, or a typed error naming the
// first reason it is not.
func (g *Graph) ValidateDependency(from, to string) error {
	if from == to {
		return SelfDependencyError{ID: from}
	}
	ft := g.tasks[from]
	if ft == nil {
		return NotFoundError{ID: from}
	}
	if g.tasks[to] == nil {
		return NotFoundError{ID: to}
	}
	if g.isDescendant(from, to) {
		return DescendantDependencyError{From: from, To: to}
	}
	if slices.Contains(g.Ancestors(from), to) {
		return AncestorDependencyError{From: from, To: to}
	}
	if slices.Contains(ft.DependsOn, to) {
		return DuplicateDependencyError{From: from, To: to}
	}
	if g.wouldCreateCycle(from, to) {
		return CycleError{From: from, To: to}
	}
	return nil
}

// CanAddDependency reports whether the edge from -> to may be added.
func (g *Graph) CanAddDependency(from, to string) bool {
	return g.ValidateDependency(from, to) == nil
}

// wouldCreateCycle checks whether adding from -> to would close a loop
// over the combined edge set: direct dependsOn edges plus the implicit
// rule that a subtask's dependency also blocks all of its ancestors.
// BFS from 'to'; every visited node contributes its own dependsOn targets
// and the dependsOn targets of all of its subtasks at any depth. Reaching
// 'from', or from's parent when from is itself a subtask, is a cycle.
func (g *Graph) wouldCreateCycle(from, to string) bool {
	fromParent := ""
	if ft := g.tasks[from]; ft != nil {
		fromParent = ft.ParentID
	}

	visited := make(map[string]bool)
	queue := []string{to}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == from || (fromParent != "" && current == fromParent) {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		t := g.tasks[current]
		if t == nil {
			continue
		}
		queue = append(queue, t.DependsOn...)
		for _, id := range g.Descendants(current) {
			if sub := g.tasks[id]; sub != nil {
				queue = append(queue, sub.DependsOn...)
			}
		}
	}
	return false
}

// IsBlocked reports whether a task has an incomplete direct dependency or,
// recursively, a blocked subtask.
func (g *Graph) IsBlocked(id string) bool {
	visited := make(map[string]bool)
	stack := []string{id}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}
		visited[current] = true

		t := g.tasks[current]
		if t == nil {
			continue
		}
		for _, depID := range t.DependsOn {
			dep := g.tasks[depID]
			if dep == nil {
				continue // Missing dependency is not blocking
			}
			if !dep.IsCompleted() {
				return true
			}
		}
		stack = append(stack, t.SubtaskIDs...)
	}
	return false
}

// BlockingDependencies returns the direct incomplete dependencies of a
// task. Subtask blocking is not flattened into the list.
func (g *Graph) BlockingDependencies(id string) []*task.Task {
	t := g.tasks[id]
	if t == nil {
		return nil
	}
	var blockers []*task.Task
	for _, depID := range t.DependsOn {
		dep := g.tasks[depID]
		if dep == nil {
			continue
		}
		if !dep.IsCompleted() {
			blockers = append(blockers, dep)
		}
	}
	return blockers
}

// TotalBlockCount counts incomplete dependencies across the task and all
// of its subtasks at any depth.
func (g *Graph) TotalBlockCount(id string) int {
	count := len(g.BlockingDependencies(id))
	for _, sub := range g.Descendants(id) {
		count += len(g.BlockingDependencies(sub))
	}
	return count
}

// Descendants returns the ids of all subtasks at any depth, in traversal
// order. The walk is iterative with a visited set; the tree is expected
// to be acyclic, but a malformed dataset must not cause a hang.
func (g *Graph) Descendants(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	queue := []string{}
	if t := g.tasks[id]; t != nil {
		queue = append(queue, t.SubtaskIDs...)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true
		out = append(out, current)

		if t := g.tasks[current]; t != nil {
			queue = append(queue, t.SubtaskIDs...)
		}
	}
	return out
}

// isDescendant reports whether candidate is a subtask of root at any depth.
func (g *Graph) isDescendant(root, candidate string) bool {
	return slices.Contains(g.Descendants(root), candidate)
}

// Ancestors returns the parent chain of a task, nearest first.
func (g *Graph) Ancestors(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	t := g.tasks[id]
	for t != nil && t.ParentID != "" && !visited[t.ParentID] {
		visited[t.ParentID] = true
		out = append(out, t.ParentID)
		t = g.tasks[t.ParentID]
	}
	return out
}

// Dependents returns ids of tasks that depend on the given task.
func (g *Graph) Dependents(id string) []string {
	var dependents []string
	for _, t := range g.tasks {
		if slices.Contains(t.DependsOn, id) {
			dependents = append(dependents, t.ID)
		}
	}
	sort.Strings(dependents)
	return dependents
}

// Unblocked returns incomplete, unarchived tasks with no blocking, sorted
// by priority then creation time.
func (g *Graph) Unblocked() []*task.Task {
	var ready []*task.Task
	for _, t := range g.tasks {
		if t.IsCompleted() || t.Archived {
			continue
		}
		if !g.IsBlocked(t.ID) {
			ready = append(ready, t)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		pi := task.PriorityOrder(ready[i].Priority)
		pj := task.PriorityOrder(ready[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})
	return ready
}
