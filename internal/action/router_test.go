//nolint:testpackage // Tests require internal access for thorough testing
package action

import (
	"errors"
	"testing"

	"lattice/internal/storage"
)

func TestRouteCompleteConfirmations(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *memStore)
		want  ConfirmKind
	}{
		{
			name: "blocked only",
			setup: func(s *memStore) {
				s.Insert(makeTask("blocker", false))
				s.Insert(makeTask("target", false, "blocker"))
			},
			want: ConfirmForceComplete,
		},
		{
			name: "incomplete subtasks only",
			setup: func(s *memStore) {
				parent := makeTask("target", false)
				child := makeSubtask("child", "target", false)
				parent.SubtaskIDs = []string{"child"}
				s.Insert(parent)
				s.Insert(child)
			},
			want: ConfirmCascadeComplete,
		},
		{
			name: "blocked with incomplete subtasks",
			setup: func(s *memStore) {
				parent := makeTask("target", false)
				child := makeSubtask("child", "target", false, "blocker")
				parent.SubtaskIDs = []string{"child"}
				s.Insert(parent)
				s.Insert(child)
				s.Insert(makeTask("blocker", false))
			},
			want: ConfirmForceCascadeComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			tt.setup(store)
			router := NewRouter(store, nil)

			out := router.Invoke(Action{Kind: KindComplete, TaskID: "target"})
			if out.State != StateAwaitingConfirmation {
				t.Fatalf("State = %s, want awaiting_confirmation (err %v)", out.State, out.Err)
			}
			if out.Confirmation.Kind != tt.want {
				t.Errorf("Confirmation.Kind = %s, want %s", out.Confirmation.Kind, tt.want)
			}
			if store.tasks["target"].IsCompleted() {
				t.Error("awaiting confirmation must not mutate")
			}
		})
	}
}

func TestRouteCompleteClean(t *testing.T) {
	store := newMemStore(makeTask("a", false))
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindComplete, TaskID: "a"})
	if out.State != StateApplied {
		t.Fatalf("State = %s, want applied (err %v)", out.State, out.Err)
	}
	if out.Effect != EffectSuccess {
		t.Errorf("Effect = %s, want success", out.Effect)
	}
	if !store.tasks["a"].IsCompleted() {
		t.Error("task not completed")
	}
}

func TestResolveCascadeComplete(t *testing.T) {
	parent := makeTask("parent", false)
	child := makeSubtask("child", "parent", false)
	parent.SubtaskIDs = []string{"child"}
	store := newMemStore(parent, child)
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindComplete, TaskID: "parent"})
	if out.State != StateAwaitingConfirmation {
		t.Fatalf("State = %s, want awaiting_confirmation", out.State)
	}

	out = router.Resolve(*out.Confirmation, DecisionAccept)
	if out.State != StateApplied {
		t.Fatalf("resolved State = %s, want applied (err %v)", out.State, out.Err)
	}
	if !parent.IsCompleted() || !child.IsCompleted() {
		t.Error("cascade completion not applied")
	}
}

func TestResolveCancel(t *testing.T) {
	parent := makeTask("parent", false)
	child := makeSubtask("child", "parent", false)
	parent.SubtaskIDs = []string{"child"}
	store := newMemStore(parent, child)
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindComplete, TaskID: "parent"})
	out = router.Resolve(*out.Confirmation, DecisionCancel)

	if out.State != StateCancelled {
		t.Fatalf("State = %s, want cancelled", out.State)
	}
	if parent.IsCompleted() || child.IsCompleted() {
		t.Error("cancel must not mutate")
	}
}

func TestCompleteParentFollowUp(t *testing.T) {
	parent := makeTask("parent", false)
	done := makeSubtask("done", "parent", true)
	last := makeSubtask("last", "parent", false)
	parent.SubtaskIDs = []string{"done", "last"}
	store := newMemStore(parent, done, last)
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindComplete, TaskID: "last"})
	if out.State != StateApplied {
		t.Fatalf("State = %s, want applied (err %v)", out.State, out.Err)
	}
	if out.FollowUp == nil {
		t.Fatal("expected complete-parent follow-up")
	}
	if out.FollowUp.Kind != ConfirmCompleteParent || out.FollowUp.Action.TaskID != "parent" {
		t.Errorf("FollowUp = %+v", out.FollowUp)
	}
	if parent.IsCompleted() {
		t.Error("follow-up must never auto-apply")
	}

	out = router.Resolve(*out.FollowUp, DecisionAccept)
	if out.State != StateApplied {
		t.Fatalf("resolved follow-up State = %s (err %v)", out.State, out.Err)
	}
	if !parent.IsCompleted() {
		t.Error("accepted follow-up did not complete parent")
	}
}

func TestNoFollowUpWhileSiblingsOpen(t *testing.T) {
	parent := makeTask("parent", false)
	first := makeSubtask("first", "parent", false)
	second := makeSubtask("second", "parent", false)
	parent.SubtaskIDs = []string{"first", "second"}
	store := newMemStore(parent, first, second)
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindComplete, TaskID: "first"})
	if out.State != StateApplied {
		t.Fatalf("State = %s (err %v)", out.State, out.Err)
	}
	if out.FollowUp != nil {
		t.Errorf("FollowUp = %+v, want nil while a sibling is open", out.FollowUp)
	}
}

func TestRouteUncompleteChoice(t *testing.T) {
	parent := makeTask("parent", true)
	child := makeSubtask("child", "parent", true)
	parent.SubtaskIDs = []string{"child"}
	store := newMemStore(parent, child)
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindUncomplete, TaskID: "parent"})
	if out.State != StateAwaitingConfirmation || out.Confirmation.Kind != ConfirmUncompleteChoice {
		t.Fatalf("out = %+v, want uncomplete choice", out)
	}

	// "Only this task" leaves the subtask completed.
	res := router.Resolve(*out.Confirmation, DecisionOnly)
	if res.State != StateApplied {
		t.Fatalf("DecisionOnly State = %s (err %v)", res.State, res.Err)
	}
	if parent.IsCompleted() || !child.IsCompleted() {
		t.Errorf("DecisionOnly: parent completed=%v child completed=%v, want false/true",
			parent.IsCompleted(), child.IsCompleted())
	}

	// Re-complete and choose "all" this time.
	parent.Complete(child.CreatedAt)
	out = router.Invoke(Action{Kind: KindUncomplete, TaskID: "parent"})
	res = router.Resolve(*out.Confirmation, DecisionAll)
	if res.State != StateApplied {
		t.Fatalf("DecisionAll State = %s (err %v)", res.State, res.Err)
	}
	if parent.IsCompleted() || child.IsCompleted() {
		t.Error("DecisionAll should uncomplete the whole subtree")
	}
}

func TestRouteUncompleteNoSubtasks(t *testing.T) {
	store := newMemStore(makeTask("a", true))
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindUncomplete, TaskID: "a"})
	if out.State != StateApplied {
		t.Fatalf("State = %s, want applied without prompting", out.State)
	}
	if store.tasks["a"].IsCompleted() {
		t.Error("task still completed")
	}
}

func TestRouteDeleteAlwaysConfirms(t *testing.T) {
	store := newMemStore(makeTask("a", false))
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindDelete, TaskID: "a"})
	if out.State != StateAwaitingConfirmation || out.Confirmation.Kind != ConfirmDelete {
		t.Fatalf("out = %+v, want delete confirmation", out)
	}
	if len(store.tasks) != 1 {
		t.Fatal("task deleted before confirmation")
	}

	destructive := false
	for _, opt := range out.Confirmation.Options {
		if opt.Role == RoleDestructive {
			destructive = true
		}
	}
	if !destructive {
		t.Error("delete confirmation lacks a destructive option")
	}

	out = router.Resolve(*out.Confirmation, DecisionAccept)
	if out.State != StateApplied {
		t.Fatalf("resolved State = %s (err %v)", out.State, out.Err)
	}
	if len(store.tasks) != 0 {
		t.Error("task not deleted after acceptance")
	}
}

func TestRouteStartTimerConfirmations(t *testing.T) {
	blocker := makeTask("blocker", false)
	blocked := makeTask("blocked", false, "blocker")
	store := newMemStore(blocker, blocked)
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindStartTimer, TaskID: "blocked"})
	if out.State != StateAwaitingConfirmation || out.Confirmation.Kind != ConfirmForceStartTimer {
		t.Fatalf("out = %+v, want force-start confirmation", out)
	}

	out = router.Resolve(*out.Confirmation, DecisionAccept)
	if out.State != StateApplied {
		t.Fatalf("resolved State = %s (err %v)", out.State, out.Err)
	}
	if len(store.records) != 1 {
		t.Fatalf("records = %d, want 1", len(store.records))
	}

	// A second start on the same task offers to stop the running timer.
	out = router.Invoke(Action{Kind: KindStartTimer, TaskID: "blocked", Force: true})
	if out.State != StateAwaitingConfirmation || out.Confirmation.Kind != ConfirmStopRunningTimer {
		t.Fatalf("out = %+v, want stop-running confirmation", out)
	}
	out = router.Resolve(*out.Confirmation, DecisionAccept)
	if out.State != StateApplied {
		t.Fatalf("resolved State = %s (err %v)", out.State, out.Err)
	}
	if store.records[0].IsOpen() {
		t.Error("accepted stop-instead did not close the record")
	}
}

func TestRouteStopTimerWithoutTimer(t *testing.T) {
	store := newMemStore(makeTask("a", false))
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindStopTimer, TaskID: "a"})
	if out.State != StateRejected {
		t.Fatalf("State = %s, want rejected", out.State)
	}
	if out.Alert == nil {
		t.Fatal("expected informational alert, not an error")
	}
	if out.Err != nil {
		t.Errorf("Err = %v, want nil alongside alert", out.Err)
	}
}

func TestRouteArchive(t *testing.T) {
	open := makeTask("open", false)
	done := makeTask("done", true)
	dependent := makeTask("dependent", false, "done")
	store := newMemStore(open, done, dependent)
	router := NewRouter(store, nil)

	// Incomplete task: terminal alert, no confirmation path.
	out := router.Invoke(Action{Kind: KindArchive, TaskID: "open"})
	if out.State != StateRejected || out.Alert == nil {
		t.Fatalf("out = %+v, want rejected with alert", out)
	}

	// Live dependents: archivable after acknowledgement.
	out = router.Invoke(Action{Kind: KindArchive, TaskID: "done"})
	if out.State != StateAwaitingConfirmation || out.Confirmation.Kind != ConfirmArchiveAnyway {
		t.Fatalf("out = %+v, want archive-anyway confirmation", out)
	}
	out = router.Resolve(*out.Confirmation, DecisionAccept)
	if out.State != StateApplied {
		t.Fatalf("resolved State = %s (err %v)", out.State, out.Err)
	}
	if !done.Archived {
		t.Error("task not archived after acknowledgement")
	}
}

func TestRouteDuplicateReturnsCreated(t *testing.T) {
	store := newMemStore(makeTask("a", false))
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindDuplicate, TaskID: "a"})
	if out.State != StateApplied {
		t.Fatalf("State = %s (err %v)", out.State, out.Err)
	}
	if out.Created == nil || out.Created.ID == "a" {
		t.Errorf("Created = %+v, want fresh task", out.Created)
	}
}

func TestRouteIntentKinds(t *testing.T) {
	store := newMemStore(makeTask("a", false))
	router := NewRouter(store, nil)

	for _, kind := range []Kind{KindAddSubtask, KindEdit} {
		out := router.Invoke(Action{Kind: kind, TaskID: "a"})
		if out.State != StateApplied || out.Navigate != kind {
			t.Errorf("%s: out = %+v, want applied with navigation", kind, out)
		}
	}
	if len(store.tasks) != 1 {
		t.Error("intent kinds must not mutate")
	}
}

func TestRouteUnknownTask(t *testing.T) {
	store := newMemStore()
	router := NewRouter(store, nil)

	out := router.Invoke(Action{Kind: KindComplete, TaskID: "nope"})
	if out.State != StateRejected {
		t.Fatalf("State = %s, want rejected", out.State)
	}
	var notFound storage.TaskNotFoundError
	if !errors.As(out.Err, &notFound) {
		t.Errorf("Err = %v, want TaskNotFoundError", out.Err)
	}
}

func TestNotifierReceivesEffects(t *testing.T) {
	store := newMemStore(makeTask("a", false))
	var effects []Effect
	router := NewRouter(store, notifierFunc(func(e Effect) { effects = append(effects, e) }))

	router.Invoke(Action{Kind: KindComplete, TaskID: "a"})
	router.Invoke(Action{Kind: KindUncomplete, TaskID: "a"})

	want := []Effect{EffectSuccess, EffectImpact}
	if len(effects) != len(want) {
		t.Fatalf("effects = %v, want %v", effects, want)
	}
	for i := range want {
		if effects[i] != want[i] {
			t.Errorf("effects[%d] = %s, want %s", i, effects[i], want[i])
		}
	}
}

type notifierFunc func(Effect)

func (f notifierFunc) Notify(e Effect) { f(e) }
