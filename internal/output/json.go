package output

import (
	"encoding/json"
	"time"

	"lattice/internal/action"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data) + "\n"
}

// taskJSON is the JSON representation of a task.
type taskJSON struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	CreatedAt       string   `json:"created_at"`
	DueDate         *string  `json:"due_date,omitempty"`
	CompletedAt     *string  `json:"completed_at,omitempty"`
	Archived        bool     `json:"archived,omitempty"`
	ArchivedAt      *string  `json:"archived_at,omitempty"`
	Parent          string   `json:"parent,omitempty"`
	Subtasks        []string `json:"subtasks,omitempty"`
	Order           int      `json:"order"`
	DependsOn       []string `json:"depends_on,omitempty"`
	Project         string   `json:"project,omitempty"`
	EstimateMinutes int      `json:"estimate_minutes,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

func timestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toTaskJSON(r Row) taskJSON {
	t := r.Task
	return taskJSON{
		ID:              t.ID,
		Title:           t.Title,
		Status:          string(r.Status),
		Priority:        string(t.Priority),
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		DueDate:         timestamp(t.DueDate),
		CompletedAt:     timestamp(t.CompletedAt),
		Archived:        t.Archived,
		ArchivedAt:      timestamp(t.ArchivedAt),
		Parent:          t.ParentID,
		Subtasks:        t.SubtaskIDs,
		Order:           t.Order,
		DependsOn:       t.DependsOn,
		Project:         t.ProjectID,
		EstimateMinutes: t.EstimateMinutes,
		Notes:           t.Notes,
	}
}

// FormatTask formats a single task as JSON.
func (f *JSONFormatter) FormatTask(r Row) string {
	return marshalJSON(toTaskJSON(r))
}

// FormatTaskList formats a list of tasks as JSON.
func (f *JSONFormatter) FormatTaskList(rows []Row) string {
	jsonTasks := make([]taskJSON, len(rows))
	for i, r := range rows {
		jsonTasks[i] = toTaskJSON(r)
	}
	return marshalJSON(jsonTasks)
}

// errorJSON is the JSON representation of an error.
type errorJSON struct {
	Error string `json:"error"`
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(errorJSON{Error: err.Error()})
}

// messageJSON is the JSON representation of a message.
type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}

// treeNodeJSON is the JSON representation of a tree node.
type treeNodeJSON struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Status   string         `json:"status"`
	Priority string         `json:"priority"`
	Children []treeNodeJSON `json:"children,omitempty"`
}

func toTreeNodeJSON(node TreeNode) treeNodeJSON {
	children := make([]treeNodeJSON, len(node.Children))
	for i, c := range node.Children {
		children[i] = toTreeNodeJSON(c)
	}
	return treeNodeJSON{
		ID:       node.Task.ID,
		Title:    node.Task.Title,
		Status:   string(node.Status),
		Priority: string(node.Task.Priority),
		Children: children,
	}
}

// FormatTree formats the subtask tree as JSON.
func (f *JSONFormatter) FormatTree(nodes []TreeNode) string {
	jsonNodes := make([]treeNodeJSON, len(nodes))
	for i, n := range nodes {
		jsonNodes[i] = toTreeNodeJSON(n)
	}
	return marshalJSON(jsonNodes)
}

// FormatConfirmation formats a pending confirmation as JSON.
func (f *JSONFormatter) FormatConfirmation(req action.ConfirmationRequest) string {
	return marshalJSON(req)
}
