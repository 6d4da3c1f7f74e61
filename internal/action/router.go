package action

import (
	"errors"
	"fmt"
	"sync"

	"lattice/internal/graph"
	"lattice/internal/storage"
	"lattice/internal/task"
)

// State is where an invocation ended up.
type State string

const (
	StateApplied              State = "applied"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCancelled            State = "cancelled"
	StateRejected             State = "rejected"
)

// Role classifies a confirmation option for presentation.
type Role string

const (
	RoleDefault     Role = "default"
	RoleDestructive Role = "destructive"
	RoleCancel      Role = "cancel"
)

// Decision is the caller's answer to a confirmation request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionCancel Decision = "cancel"
	DecisionAll    Decision = "all"
	DecisionOnly   Decision = "only"
)

// Option is one selectable answer on a confirmation request.
type Option struct {
	Label    string   `json:"label"`
	Role     Role     `json:"role"`
	Decision Decision `json:"decision"`
}

// ConfirmKind names the confirmation being requested.
type ConfirmKind string

const (
	ConfirmForceComplete        ConfirmKind = "force_complete"
	ConfirmCascadeComplete      ConfirmKind = "cascade_complete"
	ConfirmForceCascadeComplete ConfirmKind = "force_cascade_complete"
	ConfirmCompleteParent       ConfirmKind = "complete_parent"
	ConfirmUncompleteChoice     ConfirmKind = "uncomplete_choice"
	ConfirmForceStartTimer      ConfirmKind = "force_start_timer"
	ConfirmStopRunningTimer     ConfirmKind = "stop_running_timer"
	ConfirmDelete               ConfirmKind = "delete"
	ConfirmArchiveAnyway        ConfirmKind = "archive_anyway"
)

// ConfirmationRequest is a pending decision point raised instead of a
// mutation. It carries the original action plus derived flags; the caller
// presents it and re-invokes the router with a Decision. Requests never
// time out.
type ConfirmationRequest struct {
	Kind    ConfirmKind `json:"kind"`
	Action  Action      `json:"action"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Options []Option    `json:"options"`
}

// Alert is an informational notice with no retry path.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Outcome is the result of routing one action.
type Outcome struct {
	State        State
	Effect       Effect
	Confirmation *ConfirmationRequest
	// FollowUp is an additional confirmation offered after an applied
	// action (e.g. "complete parent too?"). Never auto-applied.
	FollowUp *ConfirmationRequest
	Alert    *Alert
	Created  *task.Task // set by duplicate and create
	Navigate Kind       // set for intent-only actions
	Err      error      // terminal failure (store errors, unknown task)
}

// Router turns actions into direct executions or confirmation requests.
// It owns the engine's single-writer critical section: each invocation
// fetches a snapshot, validates and mutates without interleaving.
type Router struct {
	mu       sync.Mutex
	store    storage.Store
	exec     *Executor
	notifier Notifier
}

// NewRouter creates a Router over the store. A nil notifier discards
// feedback effects.
func NewRouter(store storage.Store, notifier Notifier) *Router {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Router{
		store:    store,
		exec:     NewExecutor(store),
		notifier: notifier,
	}
}

// Executor exposes the underlying executor, mainly for hook installation.
func (r *Router) Executor() *Executor {
	return r.exec
}

// Invoke routes one action: execute directly when safe, otherwise return
// an awaiting-confirmation outcome.
func (r *Router) Invoke(act Action) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route(act)
}

// Resolve applies the caller's decision to a previously returned
// confirmation request.
func (r *Router) Resolve(req ConfirmationRequest, d Decision) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d == DecisionCancel {
		return Outcome{State: StateCancelled}
	}

	act := req.Action
	switch req.Kind {
	case ConfirmForceComplete:
		act.Force = true
	case ConfirmCascadeComplete:
		act.Cascade = true
	case ConfirmForceCascadeComplete:
		act.Force = true
		act.Cascade = true
	case ConfirmCompleteParent:
		// Action already targets the parent; route it like a fresh
		// completion so grandparent offers chain naturally.
	case ConfirmUncompleteChoice:
		switch d {
		case DecisionAll:
			act.Cascade = true
		case DecisionOnly:
			act.Force = true // decision made, skip the choice prompt
		default:
			return Outcome{State: StateCancelled}
		}
	case ConfirmForceStartTimer:
		act.Force = true
	case ConfirmStopRunningTimer:
		act = Action{Kind: KindStopTimer, TaskID: act.TaskID}
	case ConfirmDelete:
		act.Force = true
	case ConfirmArchiveAnyway:
		act.Force = true
	default:
		return Outcome{State: StateRejected, Err: fmt.Errorf("unknown confirmation kind %q", req.Kind)}
	}

	return r.route(act)
}

func (r *Router) route(act Action) Outcome {
	tasks, err := r.store.FetchAll()
	if err != nil {
		return Outcome{State: StateRejected, Err: err}
	}
	g := graph.New(tasks)

	t := g.Get(act.TaskID)
	if t == nil {
		return Outcome{State: StateRejected, Err: storage.TaskNotFoundError{ID: act.TaskID}}
	}

	switch act.Kind {
	case KindComplete:
		return r.routeComplete(act, t, g)
	case KindUncomplete:
		return r.routeUncomplete(act, t, g)
	case KindStartTimer:
		return r.routeStartTimer(act, t, g)
	case KindStopTimer:
		return r.routeStopTimer(act, t)
	case KindDelete:
		return r.routeDelete(act, t, g)
	case KindArchive:
		return r.routeArchive(act, t, g)
	case KindUnarchive:
		return r.applied(act.Kind, r.exec.Unarchive(t, g))
	case KindDuplicate:
		dup, err := r.exec.Duplicate(t, g)
		out := r.applied(act.Kind, err)
		out.Created = dup
		return out
	case KindSetPriority:
		return r.applied(act.Kind, r.exec.SetPriority(t, act.Priority))
	case KindMoveToProject:
		return r.applied(act.Kind, r.exec.MoveToProject(t, act.ProjectID))
	case KindAddDependency:
		return r.applied(act.Kind, r.exec.AddDependency(t, g, act.DependsOn))
	case KindRemoveDependency:
		return r.applied(act.Kind, r.exec.RemoveDependency(t, act.DependsOn))
	case KindAddSubtask, KindEdit:
		// Intent-only: signal navigation, mutate nothing.
		effect := EffectFor(act.Kind)
		r.notifier.Notify(effect)
		return Outcome{State: StateApplied, Effect: effect, Navigate: act.Kind}
	default:
		return Outcome{State: StateRejected, Err: fmt.Errorf("unknown action kind %q", act.Kind)}
	}
}

// applied wraps an executor result into an Applied or Rejected outcome
// and dispatches the feedback effect on success.
func (r *Router) applied(k Kind, err error) Outcome {
	if err != nil {
		return Outcome{State: StateRejected, Err: err}
	}
	effect := EffectFor(k)
	r.notifier.Notify(effect)
	return Outcome{State: StateApplied, Effect: effect}
}

func (r *Router) routeComplete(act Action, t *task.Task, g *graph.Graph) Outcome {
	blocked := g.IsBlocked(t.ID)
	incomplete := r.exec.CountIncompleteSubtasks(t, g)

	if !act.Force && !act.Cascade {
		switch {
		case blocked && incomplete > 0:
			return awaiting(ConfirmationRequest{
				Kind:    ConfirmForceCascadeComplete,
				Action:  act,
				Title:   "Complete anyway?",
				Message: fmt.Sprintf("%q is blocked and has %d incomplete subtasks. Force-complete everything?", t.Title, incomplete),
				Options: acceptCancel("Complete All", RoleDefault),
			})
		case blocked:
			return awaiting(ConfirmationRequest{
				Kind:    ConfirmForceComplete,
				Action:  act,
				Title:   "Task is blocked",
				Message: fmt.Sprintf("%q has incomplete dependencies. Complete it anyway?", t.Title),
				Options: acceptCancel("Complete Anyway", RoleDefault),
			})
		case incomplete > 0:
			return awaiting(ConfirmationRequest{
				Kind:    ConfirmCascadeComplete,
				Action:  act,
				Title:   "Complete subtasks too?",
				Message: fmt.Sprintf("%q has %d incomplete subtasks. Complete them as well?", t.Title, incomplete),
				Options: acceptCancel("Complete All", RoleDefault),
			})
		}
	}

	var err error
	if act.Cascade {
		err = r.exec.CompleteWithSubtasks(t, g, act.Force)
	} else {
		err = r.exec.Complete(t, g, act.Force)
	}

	var blockedErr BlockedError
	if errors.As(err, &blockedErr) && !act.Cascade {
		return awaiting(ConfirmationRequest{
			Kind:    ConfirmForceComplete,
			Action:  act,
			Title:   "Task is blocked",
			Message: blockedErr.Error(),
			Options: acceptCancel("Complete Anyway", RoleDefault),
		})
	}
	if err != nil && !errors.As(err, &blockedErr) {
		return Outcome{State: StateRejected, Err: err}
	}

	out := r.applied(KindComplete, nil)
	out.FollowUp = r.completeParentOffer(t, g)
	return out
}

// completeParentOffer returns a "complete parent too?" confirmation when
// the completed task's parent is incomplete but all of its subtasks are
// now complete. Never auto-applied.
func (r *Router) completeParentOffer(t *task.Task, g *graph.Graph) *ConfirmationRequest {
	parent := g.Get(t.ParentID)
	if parent == nil || parent.IsCompleted() {
		return nil
	}
	if !r.exec.AreAllSubtasksComplete(parent, g) {
		return nil
	}
	return &ConfirmationRequest{
		Kind:    ConfirmCompleteParent,
		Action:  Action{Kind: KindComplete, TaskID: parent.ID},
		Title:   "Complete parent too?",
		Message: fmt.Sprintf("All subtasks of %q are now complete. Complete it as well?", parent.Title),
		Options: acceptCancel("Complete Parent", RoleDefault),
	}
}

func (r *Router) routeUncomplete(act Action, t *task.Task, g *graph.Graph) Outcome {
	if act.Cascade {
		return r.applied(KindUncomplete, r.exec.UncompleteWithSubtasks(t, g))
	}

	completed := r.exec.CountCompletedSubtasks(t, g)
	if completed > 0 && !act.Force {
		return awaiting(ConfirmationRequest{
			Kind:    ConfirmUncompleteChoice,
			Action:  act,
			Title:   "Uncomplete subtasks?",
			Message: fmt.Sprintf("%q has %d completed subtasks.", t.Title, completed),
			Options: []Option{
				{Label: "Uncomplete All", Role: RoleDefault, Decision: DecisionAll},
				{Label: "Only This Task", Role: RoleDefault, Decision: DecisionOnly},
				{Label: "Cancel", Role: RoleCancel, Decision: DecisionCancel},
			},
		})
	}

	return r.applied(KindUncomplete, r.exec.Uncomplete(t))
}

func (r *Router) routeStartTimer(act Action, t *task.Task, g *graph.Graph) Outcome {
	_, err := r.exec.StartTimer(t, g, act.Force)
	if err == nil {
		return r.applied(KindStartTimer, nil)
	}

	var blockedErr BlockedError
	if errors.As(err, &blockedErr) {
		return awaiting(ConfirmationRequest{
			Kind:    ConfirmForceStartTimer,
			Action:  act,
			Title:   "Task is blocked",
			Message: fmt.Sprintf("%q has incomplete dependencies. Start the timer anyway?", t.Title),
			Options: acceptCancel("Start Anyway", RoleDefault),
		})
	}
	var runningErr TimerRunningError
	if errors.As(err, &runningErr) {
		return awaiting(ConfirmationRequest{
			Kind:    ConfirmStopRunningTimer,
			Action:  act,
			Title:   "Timer already running",
			Message: fmt.Sprintf("%q already has a running timer. Stop it instead?", t.Title),
			Options: acceptCancel("Stop Timer", RoleDefault),
		})
	}
	return Outcome{State: StateRejected, Err: err}
}

func (r *Router) routeStopTimer(act Action, t *task.Task) Outcome {
	_, err := r.exec.StopTimer(t)
	var noTimer NoTimerError
	if errors.As(err, &noTimer) {
		return Outcome{
			State: StateRejected,
			Alert: &Alert{
				Title:   "No timer running",
				Message: fmt.Sprintf("%q has no running timer to stop.", t.Title),
			},
		}
	}
	return r.applied(KindStopTimer, err)
}

func (r *Router) routeDelete(act Action, t *task.Task, g *graph.Graph) Outcome {
	if !act.Force {
		// Destructive actions are never executed without confirmation.
		return awaiting(ConfirmationRequest{
			Kind:    ConfirmDelete,
			Action:  act,
			Title:   "Delete task?",
			Message: fmt.Sprintf("%q and its subtasks will be deleted. This cannot be undone.", t.Title),
			Options: acceptCancel("Delete", RoleDestructive),
		})
	}
	return r.applied(KindDelete, r.exec.Delete(t, g))
}

func (r *Router) routeArchive(act Action, t *task.Task, g *graph.Graph) Outcome {
	err := r.exec.Archive(t, g, act.Force)
	if err == nil {
		return r.applied(KindArchive, nil)
	}

	var cannot CannotArchiveError
	if errors.As(err, &cannot) {
		return Outcome{
			State: StateRejected,
			Alert: &Alert{
				Title:   "Cannot archive",
				Message: joinLines(cannot.Issues),
			},
		}
	}
	var warning ArchiveWarningError
	if errors.As(err, &warning) {
		return awaiting(ConfirmationRequest{
			Kind:    ConfirmArchiveAnyway,
			Action:  act,
			Title:   "Archive anyway?",
			Message: joinLines(warning.Warnings),
			Options: acceptCancel("Archive Anyway", RoleDefault),
		})
	}
	return Outcome{State: StateRejected, Err: err}
}

func awaiting(req ConfirmationRequest) Outcome {
	return Outcome{State: StateAwaitingConfirmation, Confirmation: &req}
}

func acceptCancel(label string, role Role) []Option {
	return []Option{
		{Label: label, Role: role, Decision: DecisionAccept},
		{Label: "Cancel", Role: RoleCancel, Decision: DecisionCancel},
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
