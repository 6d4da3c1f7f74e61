package storage

import (
	"bytes"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lattice/internal/task"
)

const frontmatterDelimiter = "---"

// taskFrontmatter is the YAML-serializable portion of a task.
type taskFrontmatter struct {
	ID              string        `yaml:"id"`
	Title           string        `yaml:"title"`
	Priority        task.Priority `yaml:"priority"`
	CreatedAt       string        `yaml:"created_at"`
	DueDate         *string       `yaml:"due_date,omitempty"`
	CompletedAt     *string       `yaml:"completed_at,omitempty"`
	Archived        bool          `yaml:"archived,omitempty"`
	ArchivedAt      *string       `yaml:"archived_at,omitempty"`
	Parent          string        `yaml:"parent,omitempty"`
	Subtasks        []string      `yaml:"subtasks,omitempty"`
	Order           int           `yaml:"order"`
	DependsOn       []string      `yaml:"depends_on,omitempty"`
	Project         string        `yaml:"project,omitempty"`
	EstimateMinutes int           `yaml:"estimate_minutes,omitempty"`
}

// ParseMarkdown parses a markdown file with YAML frontmatter into a Task.
func ParseMarkdown(content []byte) (*task.Task, error) {
	lines := strings.Split(string(content), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return nil, &parseError{"missing YAML frontmatter"}
	}

	var frontmatterEnd int
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			frontmatterEnd = i
			break
		}
	}
	if frontmatterEnd == 0 {
		return nil, &parseError{"unclosed YAML frontmatter"}
	}

	var fm taskFrontmatter
	yamlContent := strings.Join(lines[1:frontmatterEnd], "\n")
	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return nil, &parseError{"invalid YAML: " + err.Error()}
	}

	createdAt, err := parseTime(fm.CreatedAt)
	if err != nil {
		return nil, &parseError{"invalid created_at: " + err.Error()}
	}
	dueDate, err := parseOptionalTime(fm.DueDate)
	if err != nil {
		return nil, &parseError{"invalid due_date: " + err.Error()}
	}
	completedAt, err := parseOptionalTime(fm.CompletedAt)
	if err != nil {
		return nil, &parseError{"invalid completed_at: " + err.Error()}
	}
	archivedAt, err := parseOptionalTime(fm.ArchivedAt)
	if err != nil {
		return nil, &parseError{"invalid archived_at: " + err.Error()}
	}

	var notes string
	if frontmatterEnd+1 < len(lines) {
		notes = strings.TrimSpace(strings.Join(lines[frontmatterEnd+1:], "\n"))
	}

	return &task.Task{
		ID:              fm.ID,
		Title:           fm.Title,
		Priority:        fm.Priority,
		CreatedAt:       createdAt,
		DueDate:         dueDate,
		CompletedAt:     completedAt,
		Archived:        fm.Archived,
		ArchivedAt:      archivedAt,
		ParentID:        fm.Parent,
		SubtaskIDs:      fm.Subtasks,
		Order:           fm.Order,
		DependsOn:       fm.DependsOn,
		ProjectID:       fm.Project,
		EstimateMinutes: fm.EstimateMinutes,
		Notes:           notes,
	}, nil
}

// SerializeMarkdown converts a Task to markdown with YAML frontmatter.
func SerializeMarkdown(t *task.Task) ([]byte, error) {
	fm := taskFrontmatter{
		ID:              t.ID,
		Title:           t.Title,
		Priority:        t.Priority,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		DueDate:         formatOptionalTime(t.DueDate),
		CompletedAt:     formatOptionalTime(t.CompletedAt),
		Archived:        t.Archived,
		ArchivedAt:      formatOptionalTime(t.ArchivedAt),
		Parent:          t.ParentID,
		Subtasks:        t.SubtaskIDs,
		Order:           t.Order,
		DependsOn:       t.DependsOn,
		Project:         t.ProjectID,
		EstimateMinutes: t.EstimateMinutes,
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, err
	}
	enc.Close()

	buf.WriteString(frontmatterDelimiter + "\n")

	if t.Notes != "" {
		buf.WriteString("\n")
		buf.WriteString(t.Notes)
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// parseError represents a parsing error.
type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}

// parseTime tries to parse a time string in common formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &parseError{"unrecognized time format"}
}

func parseOptionalTime(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
