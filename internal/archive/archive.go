// Package archive decides when a task may be archived and applies the
// archive/unarchive cascade over its subtask tree.
package archive

import (
	"fmt"
	"strings"
	"time"

	"lattice/internal/graph"
	"lattice/internal/storage"
	"lattice/internal/task"
)

const maxListedTitles = 3

// Result is the outcome of an archive legality check.
type Result struct {
	CanArchive     bool
	BlockingIssues []string
	Warnings       []string
}

// Allowed reports whether archiving may proceed without confirmation.
func (r Result) Allowed() bool {
	return r.CanArchive && len(r.Warnings) == 0
}

// Validate checks whether a task may be archived. Blocking issues prevent
// archiving and suppress warning computation; warnings flag live
// dependents but still allow archiving on explicit acknowledgement.
func Validate(t *task.Task, g *graph.Graph) Result {
	var issues []string
	if !t.IsCompleted() {
		issues = append(issues, "task is not completed")
	}

	var incomplete []string
	for _, id := range g.Descendants(t.ID) {
		sub := g.Get(id)
		if sub != nil && !sub.IsCompleted() {
			incomplete = append(incomplete, sub.Title)
		}
	}
	if len(incomplete) > 0 {
		issues = append(issues, fmt.Sprintf("%d incomplete %s: %s",
			len(incomplete), pluralize("subtask", len(incomplete)), truncateTitles(incomplete)))
	}

	if len(issues) > 0 {
		return Result{CanArchive: false, BlockingIssues: issues}
	}

	var dependents []string
	for _, id := range g.Dependents(t.ID) {
		dep := g.Get(id)
		if dep != nil && !dep.Archived {
			dependents = append(dependents, dep.Title)
		}
	}
	var warnings []string
	if len(dependents) > 0 {
		warnings = append(warnings, fmt.Sprintf("%d %s still %s on this task: %s",
			len(dependents), pluralize("task", len(dependents)),
			dependVerb(len(dependents)), truncateTitles(dependents)))
	}

	return Result{CanArchive: true, Warnings: warnings}
}

// Archiver applies archive cascades and commits them through the store.
type Archiver struct {
	store storage.Store
	now   func() time.Time
}

// NewArchiver creates an Archiver backed by the given store.
func NewArchiver(store storage.Store) *Archiver {
	return &Archiver{store: store, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (a *Archiver) SetClock(now func() time.Time) {
	a.now = now
}

// Archive marks the task and every descendant subtask archived, regardless
// of each one's completion state, then commits once.
func (a *Archiver) Archive(t *task.Task, g *graph.Graph) error {
	ts := a.now()
	mark(t, &ts)
	for _, id := range g.Descendants(t.ID) {
		if sub := g.Get(id); sub != nil {
			mark(sub, &ts)
		}
	}
	return a.store.Save()
}

// Unarchive clears archive state on the task and every descendant, then
// commits once.
func (a *Archiver) Unarchive(t *task.Task, g *graph.Graph) error {
	mark(t, nil)
	for _, id := range g.Descendants(t.ID) {
		if sub := g.Get(id); sub != nil {
			mark(sub, nil)
		}
	}
	return a.store.Save()
}

func mark(t *task.Task, at *time.Time) {
	if at != nil {
		ts := *at
		t.Archived = true
		t.ArchivedAt = &ts
		return
	}
	t.Archived = false
	t.ArchivedAt = nil
}

// truncateTitles joins up to maxListedTitles titles, then appends "+N more".
func truncateTitles(titles []string) string {
	if len(titles) <= maxListedTitles {
		return strings.Join(titles, ", ")
	}
	listed := strings.Join(titles[:maxListedTitles], ", ")
	return fmt.Sprintf("%s +%d more", listed, len(titles)-maxListedTitles)
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func dependVerb(n int) string {
	if n == 1 {
		return "depends"
	}
	return "depend"
}
