package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lattice/internal/action"
	"lattice/internal/task"
)

// runAction routes one action and renders the outcome. Pending
// confirmations are auto-accepted under --yes; otherwise they print and
// exit non-zero so scripts can detect the unconfirmed state.
func runAction(act action.Action) {
	store, err := getStore()
	if err != nil {
		printError(err)
	}
	router := action.NewRouter(store, nil)

	out := router.Invoke(act)
	for out.State == action.StateAwaitingConfirmation && assumeYes {
		out = router.Resolve(*out.Confirmation, action.DecisionAccept)
	}

	switch out.State {
	case action.StateApplied:
		msg := fmt.Sprintf("%s: %s", act.Kind, act.TaskID)
		if out.Created != nil {
			msg = fmt.Sprintf("%s: %s -> %s", act.Kind, act.TaskID, out.Created.ID)
		}
		printOutput(formatter.FormatMessage(msg))
		if out.FollowUp != nil {
			printOutput(formatter.FormatMessage(fmt.Sprintf(
				"%s Run 'lattice complete %s' to confirm.",
				out.FollowUp.Message, out.FollowUp.Action.TaskID)))
		}
	case action.StateAwaitingConfirmation:
		printOutput(formatter.FormatConfirmation(*out.Confirmation))
		os.Exit(1)
	case action.StateCancelled:
		printOutput(formatter.FormatMessage("Cancelled."))
	default:
		if out.Alert != nil {
			printOutput(formatter.FormatMessage(fmt.Sprintf("%s\n%s", out.Alert.Title, out.Alert.Message)))
			os.Exit(1)
		}
		printError(out.Err)
	}
}

// completeCmd implements 'lattice complete'.
func completeCmd() *cobra.Command {
	var force bool
	var cascade bool
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task as complete",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:    action.KindComplete,
				TaskID:  args[0],
				Force:   force,
				Cascade: cascade,
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Complete even if blocked by incomplete dependencies")
	cmd.Flags().BoolVar(&cascade, "cascade", false, "Complete all subtasks as well")
	return cmd
}

// uncompleteCmd implements 'lattice uncomplete'.
func uncompleteCmd() *cobra.Command {
	var only bool
	var cascade bool
	cmd := &cobra.Command{
		Use:   "uncomplete <id>",
		Short: "Mark a completed task as incomplete again",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:    action.KindUncomplete,
				TaskID:  args[0],
				Force:   only,
				Cascade: cascade,
			})
		},
	}
	cmd.Flags().BoolVar(&only, "only", false, "Uncomplete only this task, leaving subtasks complete")
	cmd.Flags().BoolVar(&cascade, "cascade", false, "Uncomplete all subtasks as well")
	return cmd
}

// startCmd implements 'lattice start'.
func startCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start a timer on a task",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:   action.KindStartTimer,
				TaskID: args[0],
				Force:  force,
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Start even if the task is blocked")
	return cmd
}

// stopCmd implements 'lattice stop'.
func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop the running timer on a task",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{Kind: action.KindStopTimer, TaskID: args[0]})
		},
	}
}

// archiveCmd implements 'lattice archive'.
func archiveCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a completed task and its subtasks",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:   action.KindArchive,
				TaskID: args[0],
				Force:  force,
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Archive despite dependent-task warnings")
	return cmd
}

// unarchiveCmd implements 'lattice unarchive'.
func unarchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unarchive <id>",
		Short: "Restore an archived task and its subtasks",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{Kind: action.KindUnarchive, TaskID: args[0]})
		},
	}
}

// deleteCmd implements 'lattice delete'.
func deleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task and its subtasks",
		Args:    cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:   action.KindDelete,
				TaskID: args[0],
				Force:  force,
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without confirmation")
	return cmd
}

// duplicateCmd implements 'lattice duplicate'.
func duplicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Duplicate a task next to the original",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{Kind: action.KindDuplicate, TaskID: args[0]})
		},
	}
}

// priorityCmd implements 'lattice priority'.
func priorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority <id> <priority>",
		Short: "Set a task's priority",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			p := task.Priority(args[1])
			if !task.IsValidPriority(p) {
				printError(fmt.Errorf("invalid priority: %s (valid: critical, high, medium, low)", args[1]))
			}
			runAction(action.Action{
				Kind:     action.KindSetPriority,
				TaskID:   args[0],
				Priority: p,
			})
		},
	}
}

// moveCmd implements 'lattice move'.
func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <project-id>",
		Short: "Move a task to a project",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:      action.KindMoveToProject,
				TaskID:    args[0],
				ProjectID: args[1],
			})
		},
	}
}
