package output

import (
	"fmt"
	"strings"

	"lattice/internal/action"
	"lattice/internal/task"
)

// HumanFormatter formats output for human-readable terminal display.
type HumanFormatter struct{}

// NewHumanFormatter creates a new HumanFormatter.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// FormatTask formats a single task for display.
func (f *HumanFormatter) FormatTask(r Row) string {
	t := r.Task
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", t.ID, t.Title))
	sb.WriteString(fmt.Sprintf("  Status:   %s\n", r.Status))
	sb.WriteString(fmt.Sprintf("  Priority: %s\n", t.Priority))
	sb.WriteString(fmt.Sprintf("  Created:  %s\n", t.CreatedAt.Format("2006-01-02 15:04")))

	if t.DueDate != nil {
		sb.WriteString(fmt.Sprintf("  Due:      %s\n", t.DueDate.Format("2006-01-02")))
	}
	if t.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("  Done:     %s\n", t.CompletedAt.Format("2006-01-02 15:04")))
	}
	if t.ArchivedAt != nil {
		sb.WriteString(fmt.Sprintf("  Archived: %s\n", t.ArchivedAt.Format("2006-01-02 15:04")))
	}
	if t.ParentID != "" {
		sb.WriteString(fmt.Sprintf("  Parent:   %s\n", t.ParentID))
	}
	if len(t.SubtaskIDs) > 0 {
		sb.WriteString(fmt.Sprintf("  Subtasks: %s\n", strings.Join(t.SubtaskIDs, ", ")))
	}
	if len(t.DependsOn) > 0 {
		sb.WriteString(fmt.Sprintf("  Depends:  %s\n", strings.Join(t.DependsOn, ", ")))
	}
	if t.ProjectID != "" {
		sb.WriteString(fmt.Sprintf("  Project:  %s\n", t.ProjectID))
	}
	if t.EstimateMinutes > 0 {
		sb.WriteString(fmt.Sprintf("  Estimate: %dm\n", t.EstimateMinutes))
	}
	if t.Notes != "" {
		sb.WriteString("\n")
		sb.WriteString(t.Notes)
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatTaskList formats a list of tasks for display.
func (f *HumanFormatter) FormatTaskList(rows []Row) string {
	if len(rows) == 0 {
		return "No tasks found.\n"
	}

	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(f.formatTaskLine(r))
	}
	return sb.String()
}

// formatTaskLine formats a single task as a compact one-liner.
func (f *HumanFormatter) formatTaskLine(r Row) string {
	t := r.Task
	deps := ""
	if len(t.DependsOn) > 0 {
		deps = fmt.Sprintf(" [depends on: %s]", strings.Join(t.DependsOn, ", "))
	}
	return fmt.Sprintf("%s %s [%s] %s%s\n",
		f.statusIcon(r.Status), f.priorityMark(t.Priority), t.ID, t.Title, deps)
}

func (f *HumanFormatter) statusIcon(s task.Status) string {
	switch s {
	case task.StatusOpen:
		return "[ ]"
	case task.StatusBlocked:
		return "[!]"
	case task.StatusCompleted:
		return "[X]"
	case task.StatusArchived:
		return "[A]"
	default:
		return "[?]"
	}
}

func (f *HumanFormatter) priorityMark(p task.Priority) string {
	switch p {
	case task.PriorityCritical:
		return "P0"
	case task.PriorityHigh:
		return "P1"
	case task.PriorityMedium:
		return "P2"
	case task.PriorityLow:
		return "P3"
	default:
		return "P?"
	}
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err.Error())
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}

// FormatTree formats the subtask tree as ASCII art.
func (f *HumanFormatter) FormatTree(nodes []TreeNode) string {
	if len(nodes) == 0 {
		return "No tasks found.\n"
	}

	var sb strings.Builder
	for _, node := range nodes {
		f.formatTreeNode(&sb, node, "", true)
	}
	return sb.String()
}

func (f *HumanFormatter) formatTreeNode(sb *strings.Builder, node TreeNode, prefix string, isLast bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	if prefix == "" {
		connector = ""
	}

	fmt.Fprintf(sb, "%s%s%s [%s] %s\n",
		prefix, connector, f.statusIcon(node.Status), node.Task.ID, node.Task.Title)

	childPrefix := prefix
	if prefix != "" {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}

	for i, child := range node.Children {
		f.formatTreeNode(sb, child, childPrefix, i == len(node.Children)-1)
	}
}

// FormatConfirmation renders a pending confirmation with its options.
func (f *HumanFormatter) FormatConfirmation(req action.ConfirmationRequest) string {
	var sb strings.Builder
	sb.WriteString(req.Title + "\n")
	sb.WriteString(req.Message + "\n")
	for _, opt := range req.Options {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", opt.Decision, opt.Label))
	}
	return sb.String()
}
