package action

// Context describes the task state an availability lookup is made for.
type Context struct {
	IsCompleted     bool
	IsSubtask       bool
	HasActiveTimer  bool
	InProjectDetail bool
}

// Surfaces holds the ordered action lists exposed on each UI surface.
type Surfaces struct {
	Primary       []Kind
	Secondary     []Kind
	QuickActions  []Kind
	EditShortcuts []Kind
}

// Available returns the actions exposed for a task state. The rules are
// declarative and total: every context yields a non-empty set.
func Available(ctx Context) Surfaces {
	completeToggle := KindComplete
	if ctx.IsCompleted {
		completeToggle = KindUncomplete
	}
	timerToggle := KindStartTimer
	if ctx.HasActiveTimer {
		timerToggle = KindStopTimer
	}

	var s Surfaces

	// Primary gesture is always the completion toggle.
	s.Primary = []Kind{completeToggle}

	// Secondary gesture is the timer toggle, only for incomplete tasks.
	if !ctx.IsCompleted {
		s.Secondary = []Kind{timerToggle}
	}

	s.QuickActions = []Kind{completeToggle, timerToggle}
	if !ctx.IsSubtask {
		s.QuickActions = append(s.QuickActions, KindAddSubtask)
	}
	s.QuickActions = append(s.QuickActions, KindDuplicate, KindEdit, KindDelete)

	s.EditShortcuts = []Kind{KindEdit, KindSetPriority}
	if !ctx.InProjectDetail {
		s.EditShortcuts = append(s.EditShortcuts, KindMoveToProject)
	}
	if ctx.IsCompleted {
		s.EditShortcuts = append(s.EditShortcuts, KindArchive)
	}
	s.EditShortcuts = append(s.EditShortcuts, KindDelete)

	return s
}
