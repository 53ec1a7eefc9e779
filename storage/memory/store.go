// memory based implementation for testing and the CLI's default backend
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cyp0633/taskrecur/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage interface using in-memory maps
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*storage.Task
	now   func() time.Time
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// New creates a new in-memory storage
func New(opts ...Option) *Store {
	s := &Store{
		tasks: make(map[string]*storage.Task),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) GetTask(ctx context.Context, id string) (*storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Unavailable("get task", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, storage.NotFound(id)
	}
	return t.Clone(), nil
}

func (s *Store) ListTasks(ctx context.Context, opts *storage.ListOptions) ([]*storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Unavailable("list tasks", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*storage.Task
	for _, t := range s.tasks {
		if opts.Match(t) {
			tasks = append(tasks, t.Clone())
		}
	}
	storage.SortTasks(tasks)
	return tasks, nil
}

func (s *Store) InsertTask(ctx context.Context, task *storage.Task) (*storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Unavailable("insert task", err)
	}
	if task == nil {
		return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "nil task"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := task.Clone()
	if t.ID == "" {
		t.ID = s.newID()
	}
	if t.Status == "" {
		t.Status = storage.StatusInbox
	}
	if _, exists := s.tasks[t.ID]; exists {
		return nil, &storage.Error{
			Type:    storage.ErrAlreadyExists,
			Message: "task already exists: " + t.ID,
		}
	}

	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tasks[t.ID] = t

	return t.Clone(), nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) (*storage.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Unavailable("update task", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, storage.NotFound(id)
	}
	patch.Apply(t)
	t.UpdatedAt = s.now()

	return t.Clone(), nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return storage.Unavailable("delete task", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return storage.NotFound(id)
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) DeleteTasksByTemplate(ctx context.Context, templateID string) error {
	if err := ctx.Err(); err != nil {
		return storage.Unavailable("delete tasks by template", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tasks {
		if t.TemplateID == templateID {
			delete(s.tasks, id)
		}
	}
	return nil
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
