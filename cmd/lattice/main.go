package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"lattice/internal/action"
	"lattice/internal/graph"
	"lattice/internal/output"
	"lattice/internal/storage"
	"lattice/internal/storage/sqlite"
	"lattice/internal/task"
)

var (
	jsonOutput bool
	dbPath     string
	assumeYes  bool
	formatter  output.Formatter
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lattice",
		Short: "A task tracker with subtasks and dependencies",
		Long:  "lattice - A task tracker built on an ownership tree of subtasks overlaid with a blocked-by dependency graph.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if jsonOutput {
				formatter = output.NewJSONFormatter()
			} else {
				formatter = output.NewHumanFormatter()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Use a SQLite database at this path instead of the file store")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Accept confirmation prompts without asking")

	rootCmd.AddCommand(
		initCmd(),
		addCmd(),
		subCmd(),
		listCmd(),
		showCmd(),
		treeCmd(),
		readyCmd(),
		depCmd(),
		undepCmd(),
		completeCmd(),
		uncompleteCmd(),
		startCmd(),
		stopCmd(),
		archiveCmd(),
		unarchiveCmd(),
		deleteCmd(),
		duplicateCmd(),
		priorityCmd(),
		moveCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getStore() (storage.Store, error) {
	if dbPath != "" {
		return sqlite.Open(dbPath, slog.Default())
	}
	return storage.NewFileStore()
}

func printOutput(s string) {
	os.Stdout.WriteString(s)
}

func printError(err error) {
	os.Stdout.WriteString(formatter.FormatError(err))
	os.Exit(1)
}

// mustFetch loads the full snapshot or exits.
func mustFetch(store storage.Store) ([]*task.Task, *graph.Graph) {
	tasks, err := store.FetchAll()
	if err != nil {
		printError(err)
	}
	return tasks, graph.New(tasks)
}

// initCmd implements 'lattice init'.
func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the lattice task directory",
		Run: func(_ *cobra.Command, _ []string) {
			store, err := storage.NewFileStore()
			if err != nil {
				printError(err)
			}
			if err = store.Init(force); err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Initialized lattice at %s", store.BasePath())))
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinitialize even if already exists")
	return cmd
}

// addCmd implements 'lattice add'.
func addCmd() *cobra.Command {
	var notes string
	var priority string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new task",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			createTask(args[0], priority, notes, "")
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Task notes")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority (critical, high, medium, low)")
	return cmd
}

// subCmd implements 'lattice sub'.
func subCmd() *cobra.Command {
	var notes string
	var priority string
	cmd := &cobra.Command{
		Use:   "sub <parent-id> <title>",
		Short: "Add a subtask under an existing task",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			createTask(args[1], priority, notes, args[0])
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Task notes")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "Priority (critical, high, medium, low)")
	return cmd
}

func createTask(title, priority, notes, parentID string) {
	p := task.Priority(priority)
	if !task.IsValidPriority(p) {
		printError(fmt.Errorf("invalid priority: %s (valid: critical, high, medium, low)", priority))
	}

	store, err := getStore()
	if err != nil {
		printError(err)
	}
	_, g := mustFetch(store)

	exec := action.NewExecutor(store)
	t, err := exec.CreateTask(title, p, parentID, g)
	if err != nil {
		printError(err)
	}
	if notes != "" {
		t.Notes = notes
		if err = store.Save(); err != nil {
			printError(err)
		}
	}
	printOutput(formatter.FormatTask(output.Row{Task: t, Status: task.ComputeStatus(t, g.IsBlocked(t.ID))}))
}

// listCmd implements 'lattice list'.
func listCmd() *cobra.Command {
	var showArchived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Run: func(_ *cobra.Command, _ []string) {
			store, err := getStore()
			if err != nil {
				printError(err)
			}
			tasks, g := mustFetch(store)

			var visible []*task.Task
			for _, t := range tasks {
				if t.Archived && !showArchived {
					continue
				}
				visible = append(visible, t)
			}
			printOutput(formatter.FormatTaskList(output.Rows(visible, g)))
		},
	}
	cmd.Flags().BoolVar(&showArchived, "archived", false, "Include archived tasks")
	return cmd
}

// showCmd implements 'lattice show'.
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			store, err := getStore()
			if err != nil {
				printError(err)
			}
			_, g := mustFetch(store)

			t := g.Get(args[0])
			if t == nil {
				printError(storage.TaskNotFoundError{ID: args[0]})
			}
			printOutput(formatter.FormatTask(output.Row{Task: t, Status: task.ComputeStatus(t, g.IsBlocked(t.ID))}))
		},
	}
}

// treeCmd implements 'lattice tree'.
func treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Display the subtask tree",
		Run: func(_ *cobra.Command, _ []string) {
			store, err := getStore()
			if err != nil {
				printError(err)
			}
			_, g := mustFetch(store)
			printOutput(formatter.FormatTree(output.BuildTree(g)))
		},
	}
}

// readyCmd implements 'lattice ready'.
func readyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "List unblocked tasks ready to be worked on",
		Run: func(_ *cobra.Command, _ []string) {
			store, err := getStore()
			if err != nil {
				printError(err)
			}
			_, g := mustFetch(store)
			printOutput(formatter.FormatTaskList(output.Rows(g.Unblocked(), g)))
		},
	}
}

// depCmd implements 'lattice dep'.
func depCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dep <id> <depends-on-id>",
		Short: "Add a dependency",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:      action.KindAddDependency,
				TaskID:    args[0],
				DependsOn: args[1],
			})
		},
	}
}

// undepCmd implements 'lattice undep'.
func undepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undep <id> <depends-on-id>",
		Short: "Remove a dependency",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			runAction(action.Action{
				Kind:      action.KindRemoveDependency,
				TaskID:    args[0],
				DependsOn: args[1],
			})
		},
	}
}
