// Package sqlite provides a SQLite-backed implementation of the storage
// boundary, for hosts that outgrow the flat-file layout.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"lattice/internal/storage"
	"lattice/internal/task"
	"lattice/internal/timelog"
)

// Store wraps access to the SQLite database behind the storage.Store
// interface. Like the file store, it serves live pointers from an
// in-memory snapshot and commits every pending change on Save.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	tasks   map[string]*task.Task
	records []*timelog.Record
	loaded  bool
}

// Open initializes the store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Debug("sqlite store opened", slog.String("path", dbPath))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium',
			created_at TEXT NOT NULL,
			due_date TEXT,
			completed_at TEXT,
			archived INTEGER NOT NULL DEFAULT 0,
			archived_at TEXT,
			parent_id TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0,
			project_id TEXT NOT NULL DEFAULT '',
			estimate_minutes INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS dependencies (
			task_id TEXT NOT NULL,
			depends_on_task_id TEXT NOT NULL,
			PRIMARY KEY (task_id, depends_on_task_id)
		);`,
		`CREATE TABLE IF NOT EXISTS time_records (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			stopped_at TEXT,
			note TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_records_task ON time_records(task_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	rows, err := s.db.Query(`SELECT id, title, priority, created_at, due_date,
		completed_at, archived, archived_at, parent_id, position, project_id,
		estimate_minutes, notes FROM tasks`)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	s.tasks = make(map[string]*task.Task)
	for rows.Next() {
		var (
			t                              task.Task
			createdAt                      string
			dueDate, completedAt, archived sql.NullString
			archivedFlag                   int
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Priority, &createdAt, &dueDate,
			&completedAt, &archivedFlag, &archived, &t.ParentID, &t.Order,
			&t.ProjectID, &t.EstimateMinutes, &t.Notes); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return fmt.Errorf("parse created_at: %w", err)
		}
		if t.DueDate, err = nullTime(dueDate); err != nil {
			return fmt.Errorf("parse due_date: %w", err)
		}
		if t.CompletedAt, err = nullTime(completedAt); err != nil {
			return fmt.Errorf("parse completed_at: %w", err)
		}
		if t.ArchivedAt, err = nullTime(archived); err != nil {
			return fmt.Errorf("parse archived_at: %w", err)
		}
		t.Archived = archivedFlag != 0
		s.tasks[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if err := s.loadDependencies(); err != nil {
		return err
	}
	s.rebuildSubtaskLists()

	if err := s.loadRecords(); err != nil {
		return err
	}

	s.loaded = true
	return nil
}

func (s *Store) loadDependencies() error {
	rows, err := s.db.Query(`SELECT task_id, depends_on_task_id FROM dependencies`)
	if err != nil {
		return fmt.Errorf("load dependencies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return fmt.Errorf("scan dependency: %w", err)
		}
		if t := s.tasks[from]; t != nil {
			t.DependsOn = append(t.DependsOn, to)
		}
	}
	return rows.Err()
}

// rebuildSubtaskLists derives each parent's ordered child list from the
// children's parent_id and position columns.
func (s *Store) rebuildSubtaskLists() {
	children := make(map[string][]*task.Task)
	for _, t := range s.tasks {
		if t.ParentID != "" {
			children[t.ParentID] = append(children[t.ParentID], t)
		}
	}
	for parentID, subs := range children {
		parent := s.tasks[parentID]
		if parent == nil {
			continue
		}
		sort.Slice(subs, func(i, j int) bool { return subs[i].Order < subs[j].Order })
		parent.SubtaskIDs = make([]string, len(subs))
		for i, sub := range subs {
			parent.SubtaskIDs[i] = sub.ID
		}
	}
}

func (s *Store) loadRecords() error {
	rows, err := s.db.Query(`SELECT id, task_id, started_at, stopped_at, note FROM time_records`)
	if err != nil {
		return fmt.Errorf("load time records: %w", err)
	}
	defer rows.Close()

	s.records = nil
	for rows.Next() {
		var (
			r         timelog.Record
			startedAt string
			stoppedAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.TaskID, &startedAt, &stoppedAt, &r.Note); err != nil {
			return fmt.Errorf("scan time record: %w", err)
		}
		r.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return fmt.Errorf("parse started_at: %w", err)
		}
		if r.StoppedAt, err = nullTime(stoppedAt); err != nil {
			return fmt.Errorf("parse stopped_at: %w", err)
		}
		s.records = append(s.records, &r)
	}
	return rows.Err()
}

// FetchAll returns every task, sorted by priority then creation time.
func (s *Store) FetchAll() ([]*task.Task, error) {
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

// Insert registers a new task. It is written out on the next Save.
func (s *Store) Insert(t *task.Task) error {
	if err := s.load(); err != nil {
		return err
	}
	s.tasks[t.ID] = t
	return nil
}

// Delete removes a task and its dependency rows immediately.
func (s *Store) Delete(id string) error {
	if err := s.load(); err != nil {
		return err
	}
	if s.tasks[id] == nil {
		return storage.TaskNotFoundError{ID: id}
	}
	delete(s.tasks, id)

	stmts := []string{
		`DELETE FROM tasks WHERE id = ?`,
		`DELETE FROM dependencies WHERE task_id = ? OR depends_on_task_id = ?`,
	}
	if _, err := s.db.Exec(stmts[0], id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if _, err := s.db.Exec(stmts[1], id, id); err != nil {
		return fmt.Errorf("delete dependencies: %w", err)
	}
	return nil
}

// Save commits every cached task, dependency edge and time record in a
// single transaction.
func (s *Store) Save() error {
	if !s.loaded {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storage.SaveError{Err: err}
	}
	defer tx.Rollback()

	for _, t := range s.tasks {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO tasks
			(id, title, priority, created_at, due_date, completed_at, archived,
			 archived_at, parent_id, position, project_id, estimate_minutes, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, string(t.Priority), t.CreatedAt.Format(time.RFC3339),
			timeString(t.DueDate), timeString(t.CompletedAt), boolInt(t.Archived),
			timeString(t.ArchivedAt), t.ParentID, t.Order, t.ProjectID,
			t.EstimateMinutes, t.Notes); err != nil {
			return storage.SaveError{Err: err}
		}
		if _, err := tx.Exec(`DELETE FROM dependencies WHERE task_id = ?`, t.ID); err != nil {
			return storage.SaveError{Err: err}
		}
		for _, dep := range t.DependsOn {
			if _, err := tx.Exec(`INSERT INTO dependencies (task_id, depends_on_task_id) VALUES (?, ?)`,
				t.ID, dep); err != nil {
				return storage.SaveError{Err: err}
			}
		}
	}

	for _, r := range s.records {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO time_records
			(id, task_id, started_at, stopped_at, note) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.TaskID, r.StartedAt.Format(time.RFC3339),
			timeString(r.StoppedAt), r.Note); err != nil {
			return storage.SaveError{Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.SaveError{Err: err}
	}
	return nil
}

// Records returns all time records.
func (s *Store) Records() ([]*timelog.Record, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.records, nil
}

// InsertRecord registers a new time record.
func (s *Store) InsertRecord(r *timelog.Record) error {
	if err := s.load(); err != nil {
		return err
	}
	s.records = append(s.records, r)
	return nil
}

// DeleteRecordsFor drops every time record belonging to a task.
func (s *Store) DeleteRecordsFor(taskID string) error {
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

	if _, err := s.db.Exec(`DELETE FROM time_records WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("delete time records: %w", err)
	}
	return nil
}

func nullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func timeString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
