// Package storage defines the persistent store boundary and the default
// file-backed implementation: one markdown file per task with YAML
// frontmatter, plus a JSON sidecar for time records.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"lattice/internal/task"
	"lattice/internal/timelog"
)

const (
	latticeDir  = ".lattice"
	fileExt     = ".md"
	recordsFile = "timelog.json"
)

// Store is the persistence boundary the engine mutates through. FetchAll
// returns live pointers; callers mutate them in place and commit every
// pending change with a single Save.
type Store interface {
	FetchAll() ([]*task.Task, error)
	Insert(t *task.Task) error
	Delete(id string) error
	Save() error

	Records() ([]*timelog.Record, error)
	InsertRecord(r *timelog.Record) error
	DeleteRecordsFor(taskID string) error
}

// FileStore keeps tasks as markdown files under a project-scoped
// directory (~/.lattice/<sanitized-project-root>/).
type FileStore struct {
	basePath string
	tasks    map[string]*task.Task
	records  []*timelog.Record
	loaded   bool
}

// NewFileStore creates a FileStore scoped to the enclosing git project.
func NewFileStore() (*FileStore, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	basePath := filepath.Join(home, latticeDir, sanitizePath(projectRoot))
	return &FileStore{basePath: basePath}, nil
}

// NewFileStoreWithPath creates a FileStore with a custom base path.
func NewFileStoreWithPath(path string) *FileStore {
	return &FileStore{basePath: path}
}

// BasePath returns the base path of the store.
func (s *FileStore) BasePath() string {
	return s.basePath
}

// IsInitialized checks if the data directory exists.
func (s *FileStore) IsInitialized() bool {
	info, err := os.Stat(s.basePath)
	return err == nil && info.IsDir()
}

// Init creates the data directory.
func (s *FileStore) Init(force bool) error {
	if s.IsInitialized() && !force {
		return AlreadyInitializedError{}
	}
	return os.MkdirAll(s.basePath, 0o755)
}

func (s *FileStore) taskPath(id string) string {
	return filepath.Join(s.basePath, id+fileExt)
}

// load reads every task file and the records sidecar into memory once.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}
	if !s.IsInitialized() {
		return NotInitializedError{}
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return err
	}

	s.tasks = make(map[string]*task.Task)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			return err
		}
		t, err := ParseMarkdown(content)
		if err != nil {
			continue // Skip malformed files
		}
		s.tasks[t.ID] = t
	}

	data, err := os.ReadFile(filepath.Join(s.basePath, recordsFile))
	switch {
	case os.IsNotExist(err):
		s.records = nil
	case err != nil:
		return err
	default:
		if err := json.Unmarshal(data, &s.records); err != nil {
			return err
		}
	}

	s.loaded = true
	return nil
}

// FetchAll returns every task, sorted by priority then creation time.
func (s *FileStore) FetchAll() ([]*task.Task, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		pi := task.PriorityOrder(tasks[i].Priority)
		pj := task.PriorityOrder(tasks[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Get returns a single task by id.
func (s *FileStore) Get(id string) (*task.Task, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	t := s.tasks[id]
	if t == nil {
		return nil, TaskNotFoundError{ID: id}
	}
	return t, nil
}

// Exists checks if a task with the given ID exists.
func (s *FileStore) Exists(id string) bool {
	if err := s.load(); err != nil {
		return false
	}
	return s.tasks[id] != nil
}

// Insert registers a new task. It is written out on the next Save.
func (s *FileStore) Insert(t *task.Task) error {
	if err := s.load(); err != nil {
		return err
	}
	s.tasks[t.ID] = t
	return nil
}

// Delete removes a task file and drops it from the cache.
func (s *FileStore) Delete(id string) error {
	if err := s.load(); err != nil {
		return err
	}
	if s.tasks[id] == nil {
		return TaskNotFoundError{ID: id}
	}
	delete(s.tasks, id)
	err := os.Remove(s.taskPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Save commits every cached task and the records sidecar to disk.
func (s *FileStore) Save() error {
	if !s.loaded {
		return nil // Nothing fetched, nothing to commit
	}
	for _, t := range s.tasks {
		content, err := SerializeMarkdown(t)
		if err != nil {
			return SaveError{Err: err}
		}
		if err := os.WriteFile(s.taskPath(t.ID), content, 0o644); err != nil {
			return SaveError{Err: err}
		}
	}

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return SaveError{Err: err}
	}
	if err := os.WriteFile(filepath.Join(s.basePath, recordsFile), data, 0o644); err != nil {
		return SaveError{Err: err}
	}
	return nil
}

// Records returns all time records.
func (s *FileStore) Records() ([]*timelog.Record, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.records, nil
}

// InsertRecord registers a new time record.
func (s *FileStore) InsertRecord(r *timelog.Record) error {
	if err := s.load(); err != nil {
		return err
	}
	s.records = append(s.records, r)
	return nil
}

// DeleteRecordsFor drops every time record belonging to a task.
func (s *FileStore) DeleteRecordsFor(taskID string) error {
	if err := s.load(); err != nil {
		return err
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if r.TaskID != taskID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

// findProjectRoot walks up from cwd looking for a .git directory.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		info, err := os.Stat(filepath.Join(dir, ".git"))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", NotInRepoError{}
		}
		dir = parent
	}
}

// sanitizePath converts an absolute path to a safe directory name.
// "/home/sam/myproject" -> "home-sam-myproject"
func sanitizePath(path string) string {
	result := strings.TrimPrefix(path, "/")
	re := regexp.MustCompile(`[^a-zA-Z0-9]+`)
	result = re.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
