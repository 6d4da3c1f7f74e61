//nolint:testpackage // Tests require internal access for thorough testing
package archive

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"lattice/internal/graph"
	"lattice/internal/storage"
	"lattice/internal/task"
)

func makeTask(id string, completed bool, deps ...string) *task.Task {
	t := &task.Task{
		ID:        id,
		Title:     "Task " + id,
		Priority:  task.PriorityMedium,
		CreatedAt: time.Now(),
		DependsOn: deps,
	}
	if completed {
		now := time.Now()
		t.CompletedAt = &now
	}
	return t
}

func makeSubtask(id, parentID string, completed bool) *task.Task {
	t := makeTask(id, completed)
	t.ParentID = parentID
	return t
}

func TestValidateNotCompleted(t *testing.T) {
	open := makeTask("a", false)
	g := graph.New([]*task.Task{open})

	res := Validate(open, g)
	if res.CanArchive {
		t.Fatal("CanArchive = true for incomplete task")
	}
	if len(res.BlockingIssues) != 1 || res.BlockingIssues[0] != "task is not completed" {
		t.Errorf("BlockingIssues = %v", res.BlockingIssues)
	}
}

func TestValidateIncompleteSubtasks(t *testing.T) {
	parent := makeTask("parent", true)
	s1 := makeSubtask("s1", "parent", false)
	s2 := makeSubtask("s2", "parent", true)
	s3 := makeSubtask("s3", "s1", false)
	parent.SubtaskIDs = []string{"s1", "s2"}
	s1.SubtaskIDs = []string{"s3"}

	g := graph.New([]*task.Task{parent, s1, s2, s3})

	res := Validate(parent, g)
	if res.CanArchive {
		t.Fatal("CanArchive = true with incomplete subtasks")
	}
	want := "2 incomplete subtasks: Task s1, Task s3"
	if len(res.BlockingIssues) != 1 || res.BlockingIssues[0] != want {
		t.Errorf("BlockingIssues = %v, want [%s]", res.BlockingIssues, want)
	}
}

func TestValidateTruncatesLongTitleLists(t *testing.T) {
	parent := makeTask("parent", true)
	all := []*task.Task{parent}
	for i := 0; i < 5; i++ {
		sub := makeSubtask(fmt.Sprintf("s%d", i), "parent", false)
		parent.SubtaskIDs = append(parent.SubtaskIDs, sub.ID)
		all = append(all, sub)
	}

	g := graph.New(all)
	res := Validate(parent, g)

	if len(res.BlockingIssues) != 1 {
		t.Fatalf("BlockingIssues = %v, want 1 entry", res.BlockingIssues)
	}
	if !strings.HasSuffix(res.BlockingIssues[0], "+2 more") {
		t.Errorf("issue %q should end in +2 more", res.BlockingIssues[0])
	}
}

func TestValidateWarnsOnDependents(t *testing.T) {
	done := makeTask("done", true)
	dependent := makeTask("dependent", false, "done")
	archived := makeTask("archived", false, "done")
	archived.Archived = true

	g := graph.New([]*task.Task{done, dependent, archived})

	res := Validate(done, g)
	if !res.CanArchive {
		t.Fatalf("CanArchive = false, issues %v", res.BlockingIssues)
	}
	if res.Allowed() {
		t.Error("Allowed() = true despite live dependents")
	}
	want := "1 task still depends on this task: Task dependent"
	if len(res.Warnings) != 1 || res.Warnings[0] != want {
		t.Errorf("Warnings = %v, want [%s]", res.Warnings, want)
	}
}

func TestValidateBlockingSuppressesWarnings(t *testing.T) {
	open := makeTask("open", false)
	dependent := makeTask("dependent", false, "open")

	g := graph.New([]*task.Task{open, dependent})

	res := Validate(open, g)
	if res.CanArchive {
		t.Fatal("CanArchive = true for incomplete task")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none while blocked", res.Warnings)
	}
}

func TestValidateCleanTask(t *testing.T) {
	done := makeTask("done", true)
	g := graph.New([]*task.Task{done})

	res := Validate(done, g)
	if !res.Allowed() {
		t.Errorf("Allowed() = false: issues %v, warnings %v", res.BlockingIssues, res.Warnings)
	}
}

func newStore(t *testing.T, tasks ...*task.Task) *storage.FileStore {
	t.Helper()
	store := storage.NewFileStoreWithPath(t.TempDir())
	if err := store.Init(false); err != nil {
		t.Fatal(err)
	}
	for _, tk := range tasks {
		if err := store.Insert(tk); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestArchiveCascade(t *testing.T) {
	parent := makeTask("parent", true)
	child := makeSubtask("child", "parent", true)
	grandchild := makeSubtask("grandchild", "child", false) // incomplete, still archived
	parent.SubtaskIDs = []string{"child"}
	child.SubtaskIDs = []string{"grandchild"}

	store := newStore(t, parent, child, grandchild)
	g := graph.New([]*task.Task{parent, child, grandchild})

	a := NewArchiver(store)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.SetClock(func() time.Time { return fixed })

	if err := a.Archive(parent, g); err != nil {
		t.Fatal(err)
	}

	for _, tk := range []*task.Task{parent, child, grandchild} {
		if !tk.Archived {
			t.Errorf("%s not archived", tk.ID)
		}
		if tk.ArchivedAt == nil || !tk.ArchivedAt.Equal(fixed) {
			t.Errorf("%s ArchivedAt = %v, want %v", tk.ID, tk.ArchivedAt, fixed)
		}
	}

	if err := a.Unarchive(parent, g); err != nil {
		t.Fatal(err)
	}
	for _, tk := range []*task.Task{parent, child, grandchild} {
		if tk.Archived || tk.ArchivedAt != nil {
			t.Errorf("%s still archived after unarchive", tk.ID)
		}
	}
}
