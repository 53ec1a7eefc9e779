// Package sqlite is a durable storage.Storage on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// InMemory opens a private in-memory database.
const InMemory = ":memory:"

// Store implements storage.Storage on a single tasks table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (and creates if needed) the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every connection to :memory: is a fresh database
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL DEFAULT '',
		context TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT '',
		gtd_status TEXT NOT NULL DEFAULT 'inbox',
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at TEXT,
		due_date TEXT,                      -- YYYY-MM-DD
		is_template INTEGER NOT NULL DEFAULT 0,
		template_id TEXT NOT NULL DEFAULT '',
		recurrence_rule TEXT,               -- JSON
		end_condition TEXT NOT NULL DEFAULT '{}', -- JSON
		occurrence_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_template ON tasks(template_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

const taskSelectColumns = `id, user_id, text, comment, category, project, context, priority,
       gtd_status, completed, completed_at, due_date,
       is_template, template_id, recurrence_rule, end_condition, occurrence_count,
       created_at, updated_at`

// rowScanner abstracts row scanning for reuse between QueryRow and rows.Next()
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*storage.Task, error) {
	var t storage.Task
	var completedAt, dueDate, ruleJSON sql.NullString
	var endJSON, createdAt, updatedAt string

	err := row.Scan(
		&t.ID, &t.UserID, &t.Text, &t.Comment, &t.Category, &t.Project, &t.Context, &t.Priority,
		&t.Status, &t.Completed, &completedAt, &dueDate,
		&t.IsTemplate, &t.TemplateID, &ruleJSON, &endJSON, &t.OccurrenceCount,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if completedAt.Valid && completedAt.String != "" {
		at, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("completed_at of %s: %w", t.ID, err)
		}
		t.CompletedAt = &at
	}
	if dueDate.Valid && dueDate.String != "" {
		d, err := recurrence.ParseDate(dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("due_date of %s: %w", t.ID, err)
		}
		t.DueDate = &d
	}
	if ruleJSON.Valid && ruleJSON.String != "" {
		var rule recurrence.Rule
		if err := json.Unmarshal([]byte(ruleJSON.String), &rule); err != nil {
			return nil, fmt.Errorf("recurrence_rule of %s: %w", t.ID, err)
		}
		t.RecurrenceRule = &rule
	}
	if err := json.Unmarshal([]byte(endJSON), &t.EndCondition); err != nil {
		return nil, fmt.Errorf("end_condition of %s: %w", t.ID, err)
	}
	return &t, nil
}

// taskArgs renders t in taskSelectColumns order.
func taskArgs(t *storage.Task) ([]any, error) {
	var completedAt, dueDate, rule any
	if t.CompletedAt != nil {
		completedAt = t.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	if t.DueDate != nil {
		dueDate = t.DueDate.String()
	}
	if t.RecurrenceRule != nil {
		b, err := json.Marshal(t.RecurrenceRule)
		if err != nil {
			return nil, fmt.Errorf("marshal recurrence rule: %w", err)
		}
		rule = string(b)
	}
	end, err := json.Marshal(t.EndCondition)
	if err != nil {
		return nil, fmt.Errorf("marshal end condition: %w", err)
	}

	return []any{
		t.ID, t.UserID, t.Text, t.Comment, t.Category, t.Project, t.Context, t.Priority,
		string(t.Status), t.Completed, completedAt, dueDate,
		t.IsTemplate, t.TemplateID, rule, string(end), t.OccurrenceCount,
		t.CreatedAt.UTC().Format(time.RFC3339Nano), t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*storage.Task, error) {
	return getTask(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, q queryer, id string) (*storage.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskSelectColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(id)
	}
	if err != nil {
		return nil, storage.Unavailable("query task", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, opts *storage.ListOptions) ([]*storage.Task, error) {
	var where []string
	var args []any
	if opts != nil {
		if opts.UserID != "" {
			where = append(where, "user_id = ?")
			args = append(args, opts.UserID)
		}
		if opts.Templates != nil {
			where = append(where, "is_template = ?")
			args = append(args, *opts.Templates)
		}
		if opts.TemplateID != "" {
			where = append(where, "template_id = ?")
			args = append(args, opts.TemplateID)
		}
	}

	query := `SELECT ` + taskSelectColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable("query tasks", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*storage.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storage.Unavailable("scan task", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("list tasks", err)
	}
	return tasks, nil
}

func (s *Store) InsertTask(ctx context.Context, task *storage.Task) (*storage.Task, error) {
	if task == nil {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "nil task"}
	}
	t := task.Clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = storage.StatusInbox
	}
	now := s.now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	args, err := taskArgs(t)
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "encode task", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskSelectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, &storage.Error{
				Type:    storage.ErrAlreadyExists,
				Message: "task already exists: " + t.ID,
				Err:     err,
			}
		}
		return nil, storage.Unavailable("insert task", err)
	}
	return t, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) (*storage.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Unavailable("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(t)
	t.UpdatedAt = s.now().UTC()

	args, err := taskArgs(t)
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "encode task", Err: err}
	}
	// drop id from the front, append it for the WHERE clause
	args = append(args[1:], id)

	_, err = tx.ExecContext(ctx, `UPDATE tasks SET
		user_id = ?, text = ?, comment = ?, category = ?, project = ?, context = ?, priority = ?,
		gtd_status = ?, completed = ?, completed_at = ?, due_date = ?,
		is_template = ?, template_id = ?, recurrence_rule = ?, end_condition = ?, occurrence_count = ?,
		created_at = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return nil, storage.Unavailable("update task", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storage.Unavailable("commit", err)
	}
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return storage.Unavailable("delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("delete task", err)
	}
	if n == 0 {
		return storage.NotFound(id)
	}
	return nil
}

func (s *Store) DeleteTasksByTemplate(ctx context.Context, templateID string) error {
	if templateID == "" {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "template id is required"}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE template_id = ?`, templateID); err != nil {
		return storage.Unavailable("delete tasks by template", err)
	}
	return nil
}
