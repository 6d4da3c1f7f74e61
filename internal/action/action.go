// Package action is the only place task state is mutated. It defines the
// action vocabulary, the guarded Executor, the per-surface availability
// rules and the confirmation-aware Router.
package action

import (
	"log/slog"

	"lattice/internal/task"
)

// Kind identifies an action a user can take on a task.
type Kind string

const (
	KindComplete         Kind = "complete"
	KindUncomplete       Kind = "uncomplete"
	KindStartTimer       Kind = "start_timer"
	KindStopTimer        Kind = "stop_timer"
	KindDelete           Kind = "delete"
	KindDuplicate        Kind = "duplicate"
	KindSetPriority      Kind = "set_priority"
	KindMoveToProject    Kind = "move_to_project"
	KindArchive          Kind = "archive"
	KindUnarchive        Kind = "unarchive"
	KindAddDependency    Kind = "add_dependency"
	KindRemoveDependency Kind = "remove_dependency"

	// Intent-only kinds: the router signals navigation, never mutates.
	KindAddSubtask Kind = "add_subtask"
	KindEdit       Kind = "edit"
)

// Action is one invocable action with its payload. Force and Cascade are
// derived flags carried back through the confirmation round-trip.
type Action struct {
	Kind    Kind   `json:"kind"`
	TaskID  string `json:"task_id"`
	Force   bool   `json:"force,omitempty"`
	Cascade bool   `json:"cascade,omitempty"`

	Priority  task.Priority `json:"priority,omitempty"`   // set_priority payload
	ProjectID string        `json:"project_id,omitempty"` // move_to_project payload
	DependsOn string        `json:"depends_on,omitempty"` // dependency edit payload
}

// Effect is the feedback signal dispatched after a successful execution.
type Effect string

const (
	EffectSuccess   Effect = "success"
	EffectImpact    Effect = "impact"
	EffectWarning   Effect = "warning"
	EffectSelection Effect = "selection"
)

// effectTable maps each action kind to exactly one feedback effect.
var effectTable = map[Kind]Effect{
	KindComplete:         EffectSuccess,
	KindUncomplete:       EffectImpact,
	KindStartTimer:       EffectImpact,
	KindStopTimer:        EffectImpact,
	KindDelete:           EffectWarning,
	KindDuplicate:        EffectSuccess,
	KindSetPriority:      EffectSelection,
	KindMoveToProject:    EffectSelection,
	KindArchive:          EffectSuccess,
	KindUnarchive:        EffectImpact,
	KindAddDependency:    EffectSelection,
	KindRemoveDependency: EffectSelection,
	KindAddSubtask:       EffectSelection,
	KindEdit:             EffectSelection,
}

// EffectFor returns the feedback effect for an action kind. Unknown kinds
// get the neutral selection effect.
func EffectFor(k Kind) Effect {
	if e, ok := effectTable[k]; ok {
		return e
	}
	return EffectSelection
}

// Notifier receives the feedback effect after a successful execution.
// Implementations must be no-op safe: a failed notification never rolls
// back a task mutation.
type Notifier interface {
	Notify(e Effect)
}

// NopNotifier discards effects.
type NopNotifier struct{}

func (NopNotifier) Notify(Effect) {}

// LogNotifier records effects through slog, standing in for the haptic
// dispatcher of a UI host.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(e Effect) {
	if n.Logger == nil {
		return
	}
	n.Logger.Debug("feedback", slog.String("effect", string(e)))
}
