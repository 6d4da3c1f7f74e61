package output

import (
	"lattice/internal/action"
	"lattice/internal/graph"
	"lattice/internal/task"
)

// Row pairs a task with its resolved display status.
type Row struct {
	Task   *task.Task
	Status task.Status
}

// TreeNode represents a node in the subtask tree output.
type TreeNode struct {
	Row
	Children []TreeNode
}

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatTask(r Row) string
	FormatTaskList(rows []Row) string
	FormatError(err error) string
	FormatMessage(msg string) string
	FormatTree(nodes []TreeNode) string
	FormatConfirmation(req action.ConfirmationRequest) string
}

// Rows resolves display statuses for a slice of tasks.
func Rows(tasks []*task.Task, g *graph.Graph) []Row {
	rows := make([]Row, len(tasks))
	for i, t := range tasks {
		rows[i] = Row{Task: t, Status: task.ComputeStatus(t, g.IsBlocked(t.ID))}
	}
	return rows
}

// BuildTree arranges the snapshot into the ownership tree, roots first.
func BuildTree(g *graph.Graph) []TreeNode {
	var roots []TreeNode
	for _, t := range g.All() {
		if t.ParentID == "" {
			roots = append(roots, buildNode(t, g))
		}
	}
	return roots
}

func buildNode(t *task.Task, g *graph.Graph) TreeNode {
	node := TreeNode{
		Row: Row{Task: t, Status: task.ComputeStatus(t, g.IsBlocked(t.ID))},
	}
	for _, id := range t.SubtaskIDs {
		if sub := g.Get(id); sub != nil {
			node.Children = append(node.Children, buildNode(sub, g))
		}
	}
	return node
}
